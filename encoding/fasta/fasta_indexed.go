package fasta

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	gunsafe "github.com/grailbio/base/unsafe"
)

type indexEntry struct {
	name      string
	length    uint64
	offset    uint64 // of the first base.
	lineBases uint64
	lineBytes uint64 // lineBases plus the line terminator.
}

// faiRow is one line of a .fai file, e.g., "read3\t12345\t9000\t80\t81".
type faiRow struct {
	Name      string
	Length    int64
	Offset    int64
	LineBases int64
	LineBytes int64
}

// parseIndex reads a .fai file. The entries are sorted by file offset.
func parseIndex(in io.Reader) ([]indexEntry, error) {
	var (
		entries []indexEntry
		r       = tsv.NewReader(in)
	)
	for {
		var row faiRow
		if err := r.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(errors.Invalid, err, fmt.Sprintf("fasta index entry %d", len(entries)))
		}
		if row.Length < 0 || row.Offset < 0 || (row.Length > 0 && (row.LineBases <= 0 || row.LineBytes < row.LineBases)) {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("fasta index entry %s: bad geometry %+v", row.Name, row))
		}
		entries = append(entries, indexEntry{
			name:      row.Name,
			length:    uint64(row.Length),
			offset:    uint64(row.Offset),
			lineBases: uint64(row.LineBases),
			lineBytes: uint64(row.LineBytes),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].offset < entries[j].offset })
	return entries, nil
}

// indexedFasta reads bases on demand through a .fai index.
type indexedFasta struct {
	entries  map[string]indexEntry
	seqNames []string

	mu     sync.Mutex
	in     io.ReadSeeker
	bufOff int64
	buf    []byte // file contents starting at bufOff.
}

// NewIndexed creates a Fasta that seeks into in for every Get, using the .fai
// index read from index. Only the index is kept in memory.
func NewIndexed(in io.ReadSeeker, index io.Reader) (Fasta, error) {
	entries, err := parseIndex(index)
	if err != nil {
		return nil, err
	}
	f := &indexedFasta{entries: make(map[string]indexEntry, len(entries)), in: in}
	for _, e := range entries {
		if _, ok := f.entries[e.name]; ok {
			return nil, errors.E(errors.Invalid, "duplicate sequence name in fasta index", e.name)
		}
		f.entries[e.name] = e
		f.seqNames = append(f.seqNames, e.name)
	}
	return f, nil
}

// IndexedLengths returns the length of every sequence listed in a .fai index,
// keyed by name. The FASTA file itself is not needed.
func IndexedLengths(index io.Reader) (map[string]uint64, error) {
	entries, err := parseIndex(index)
	if err != nil {
		return nil, err
	}
	lengths := make(map[string]uint64, len(entries))
	for _, e := range entries {
		lengths[e.name] = e.length
	}
	return lengths, nil
}

// Len implements Fasta.Len().
func (f *indexedFasta) Len(seqName string) (uint64, error) {
	e, ok := f.entries[seqName]
	if !ok {
		return 0, errors.E(errors.NotExist, "sequence not found in index", seqName)
	}
	return e.length, nil
}

// SeqNames implements Fasta.SeqNames().
func (f *indexedFasta) SeqNames() []string { return f.seqNames }

// fill makes f.buf cover file bytes [off, off+n).
//
// REQUIRES: f.mu is locked.
func (f *indexedFasta) fill(off int64, n int) ([]byte, error) {
	if off >= f.bufOff && off+int64(n) <= f.bufOff+int64(len(f.buf)) {
		return f.buf[off-f.bufOff : off-f.bufOff+int64(n)], nil
	}
	if _, err := f.in.Seek(off, io.SeekStart); err != nil {
		return nil, errors.E(err, fmt.Sprintf("seek to %d", off))
	}
	size := n
	if size < 64<<10 {
		size = 64 << 10
	}
	if cap(f.buf) < size {
		f.buf = make([]byte, size)
	}
	f.buf = f.buf[:size]
	got, err := io.ReadAtLeast(f.in, f.buf, n)
	if err != nil {
		f.buf = f.buf[:0]
		return nil, errors.E(err, fmt.Sprintf("read %d bytes at %d (bad index?)", n, off))
	}
	f.bufOff, f.buf = off, f.buf[:got]
	return f.buf[:n], nil
}

// Get implements Fasta.Get().
func (f *indexedFasta) Get(seqName string, start, end uint64) (string, error) {
	e, ok := f.entries[seqName]
	if !ok {
		return "", errors.E(errors.NotExist, "sequence not found in index", seqName)
	}
	if end <= start {
		return "", errors.E(errors.Invalid, "start must be less than end")
	}
	if end > e.length {
		return "", errors.E(errors.Invalid, fmt.Sprintf("end is past end of sequence %s: %d", seqName, e.length))
	}
	var (
		firstLine = start / e.lineBases
		lastLine  = (end - 1) / e.lineBases
		off       = e.offset + firstLine*e.lineBytes + start%e.lineBases
		limit     = e.offset + lastLine*e.lineBytes + (end-1)%e.lineBases + 1
	)
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := f.fill(int64(off), int(limit-off))
	if err != nil {
		return "", err
	}
	// Copy the bases, skipping the line terminators.
	result := make([]byte, 0, end-start)
	col := start % e.lineBases
	for i := 0; i < len(raw); {
		n := int(e.lineBases - col)
		if n > len(raw)-i {
			n = len(raw) - i
		}
		result = append(result, raw[i:i+n]...)
		i += n + int(e.lineBytes-e.lineBases)
		col = 0
	}
	return gunsafe.BytesToString(result), nil
}
