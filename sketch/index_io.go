package sketch

// This file defines WriteIndex and ReadIndex. An index file is a recordio
// file. Each record is a block of up to elementsPerBlock sketch elements in
// sorted order, each element encoded as elementBytes little-endian bytes,
// optionally snappy-compressed. The trailer holds the read metadata and a
// seahash checksum of the uncompressed blocks. The lookup tables are rebuilt
// on load.

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"math"

	"blainsmith.com/go/seahash"
	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
)

const (
	// <indexVersionHeader, indexVersion> is stored in a recordio header.
	indexVersionHeader = "sketchversion"
	indexVersion       = "SKETCH_V1"
	// blockCompressionHeader records how each block was compressed on top of
	// the recordio transformers: "snappy" or "".
	blockCompressionHeader = "sketchblockcompression"

	elementBytes     = 8 + 4 + 4 + 1
	elementsPerBlock = 1 << 16
)

// Compression names accepted by WriteOpts.
const (
	CompressionZstd   = "zstd"
	CompressionSnappy = "snappy"
	CompressionNone   = "none"
)

// WriteOpts configures WriteIndex.
type WriteOpts struct {
	// Compression is one of CompressionZstd (the default if empty),
	// CompressionSnappy, or CompressionNone.
	Compression string
}

// indexTrailer is stored in the trailer section of the recordio file.
type indexTrailer struct {
	KmerSize, WindowSize int
	ReadNames            []string
	ReadLengths          []uint32
	NumElements          uint64
	ReachedEnd           bool
	// Checksum is the seahash of the concatenated uncompressed blocks.
	Checksum uint64
}

func encodeElement(buf []byte, e SketchElement) {
	binary.LittleEndian.PutUint64(buf[0:], uint64(e.Representation))
	binary.LittleEndian.PutUint32(buf[8:], uint32(e.Position))
	binary.LittleEndian.PutUint32(buf[12:], uint32(e.ReadID))
	buf[16] = byte(e.Direction)
}

func decodeElement(buf []byte) SketchElement {
	return SketchElement{
		Representation: Representation(binary.LittleEndian.Uint64(buf[0:])),
		Position:       PositionInRead(binary.LittleEndian.Uint32(buf[8:])),
		ReadID:         ReadID(binary.LittleEndian.Uint32(buf[12:])),
		Direction:      Direction(buf[16]),
	}
}

// WriteIndex stores a built index in path. path may be any file.Implementation
// path, e.g., "s3://bucket/foo.sketch".
func WriteIndex(ctx context.Context, path string, idx Index, opts WriteOpts) (err error) {
	if !idx.Built() {
		return errors.E(errors.Invalid, "write", path, "index has not been built")
	}
	var (
		transformers []string
		blockComp    string
	)
	switch opts.Compression {
	case "", CompressionZstd:
		recordiozstd.Init()
		transformers = []string{recordiozstd.Name}
	case CompressionSnappy:
		blockComp = CompressionSnappy
	case CompressionNone:
	default:
		return errors.E(errors.Invalid, "write", path, fmt.Sprintf("unknown compression %q", opts.Compression))
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	var e errors.Once
	defer func() {
		e.Set(out.Close(ctx))
		err = e.Err()
	}()

	w := recordio.NewWriter(out.Writer(ctx), recordio.WriterOpts{Transformers: transformers})
	w.AddHeader(indexVersionHeader, indexVersion)
	w.AddHeader(blockCompressionHeader, blockComp)
	w.AddHeader(recordio.KeyTrailer, true)

	var (
		n        = len(idx.ReadIDs())
		checksum = seahash.New()
	)
	for start := 0; start < n; start += elementsPerBlock {
		end := start + elementsPerBlock
		if end > n {
			end = n
		}
		// The writer may hold onto the slice until the block is flushed, so each
		// record gets its own buffer.
		raw := make([]byte, (end-start)*elementBytes)
		for i := start; i < end; i++ {
			encodeElement(raw[(i-start)*elementBytes:], idx.SketchElement(uint64(i)))
		}
		checksum.Write(raw) // nolint: errcheck
		if blockComp == CompressionSnappy {
			raw = snappy.Encode(nil, raw)
		}
		w.Append(raw)
	}

	trailer := indexTrailer{
		KmerSize:    idx.KmerSize(),
		WindowSize:  idx.WindowSize(),
		ReadNames:   idx.ReadNames(),
		ReadLengths: idx.ReadLengths(),
		NumElements: uint64(n),
		ReachedEnd:  idx.ReachedEndOfInput(),
		Checksum:    checksum.Sum64(),
	}
	b := bytes.NewBuffer(nil)
	if encErr := gob.NewEncoder(b).Encode(trailer); encErr != nil {
		e.Set(errors.E(encErr, "encode trailer", path))
		return
	}
	w.SetTrailer(b.Bytes())
	e.Set(w.Finish())
	log.Debug.Printf("sketch: wrote %d sketch elements, %d reads to %s", n, len(trailer.ReadNames), path)
	return
}

// checkTrailer validates the metadata of an index file. An index with no reads
// may have k=w=0, as written for NewEmptyIndex.
func checkTrailer(t indexTrailer) error {
	if len(t.ReadNames) != len(t.ReadLengths) {
		return errors.E(errors.Integrity, "read names and lengths disagree")
	}
	if uint64(len(t.ReadNames)) > math.MaxUint32 {
		return errors.E(errors.Integrity, fmt.Sprintf("too many reads: %d", len(t.ReadNames)))
	}
	if t.KmerSize == 0 && t.WindowSize == 0 && len(t.ReadNames) == 0 && t.NumElements == 0 {
		return nil
	}
	if err := validateKW(t.KmerSize, t.WindowSize); err != nil {
		return errors.E(errors.Integrity, err)
	}
	return nil
}

// ReadIndex loads an index written by WriteIndex. The file is checked for
// version, checksum and sort order.
func ReadIndex(ctx context.Context, path string) (_ Index, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	var e errors.Once
	defer func() {
		e.Set(in.Close(ctx))
		if err == nil {
			err = e.Err()
		}
	}()
	recordiozstd.Init()
	sc := recordio.NewScanner(in.Reader(ctx), recordio.ScannerOpts{})
	defer func() { e.Set(sc.Finish()) }()

	var (
		versionFound bool
		blockComp    string
	)
	for _, kv := range sc.Header() {
		switch kv.Key {
		case indexVersionHeader:
			if v, _ := kv.Value.(string); v != indexVersion {
				return nil, errors.E(errors.NotSupported, path, fmt.Sprintf("index version %v, expect %v", kv.Value, indexVersion))
			}
			versionFound = true
		case blockCompressionHeader:
			blockComp, _ = kv.Value.(string)
		}
	}
	if !versionFound {
		return nil, errors.E(errors.Invalid, path, indexVersionHeader+" not found")
	}
	if err := sc.Err(); err != nil {
		return nil, errors.E(err, "read", path)
	}
	var trailer indexTrailer
	if err := gob.NewDecoder(bytes.NewReader(sc.Trailer())).Decode(&trailer); err != nil {
		return nil, errors.E(err, "decode trailer", path)
	}
	if err := checkTrailer(trailer); err != nil {
		return nil, errors.E(err, path)
	}

	// The store grows with the blocks actually present, so a bad NumElements
	// can't trigger a huge allocation.
	var (
		n        = trailer.NumElements
		store    = newSketchStore(0)
		checksum = seahash.New()
		nRead    = ReadID(len(trailer.ReadNames))
		k        uint64
	)
	for sc.Scan() {
		raw := sc.Get().([]byte)
		if blockComp == CompressionSnappy {
			if raw, err = snappy.Decode(nil, raw); err != nil {
				return nil, errors.E(errors.Integrity, err, path)
			}
		}
		if len(raw)%elementBytes != 0 || k+uint64(len(raw)/elementBytes) > n {
			return nil, errors.E(errors.Integrity, path, fmt.Sprintf("bad block of %d bytes after %d elements", len(raw), k))
		}
		checksum.Write(raw) // nolint: errcheck
		for off := 0; off < len(raw); off += elementBytes {
			el := decodeElement(raw[off:])
			if el.ReadID >= nRead {
				return nil, errors.E(errors.Integrity, path, fmt.Sprintf("element %d: read ID %d, but only %d reads", k, el.ReadID, nRead))
			}
			if el.Direction > ReverseComplement {
				return nil, errors.E(errors.Integrity, path, fmt.Sprintf("element %d: bad direction %d", k, el.Direction))
			}
			if k > 0 {
				last := store.get(int(k - 1))
				if el.Representation < last.Representation ||
					(el.Representation == last.Representation && el.ReadID < last.ReadID) {
					return nil, errors.E(errors.Integrity, path, fmt.Sprintf("element %d is out of order", k))
				}
			}
			store.add(el)
			k++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.E(err, "read", path)
	}
	if k != n {
		return nil, errors.E(errors.Integrity, path, fmt.Sprintf("found %d sketch elements, expect %d", k, n))
	}
	if got := checksum.Sum64(); got != trailer.Checksum {
		return nil, errors.E(errors.Integrity, path, fmt.Sprintf("checksum %x, expect %x", got, trailer.Checksum))
	}

	idx := &flatIndex{
		kmerSize:    trailer.KmerSize,
		windowSize:  trailer.WindowSize,
		store:       *store,
		readNames:   trailer.ReadNames,
		readLengths: trailer.ReadLengths,
		reachedEnd:  trailer.ReachedEnd,
		built:       true,
	}
	idx.group(Opts{}.parallelism())
	return idx, nil
}
