package sketch

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"v.io/x/lib/vlog"
)

// Parser supplies reads by their ordinal in the input. The index builder
// treats it as an opaque pull source. Read need not be thread safe; the builder
// calls it from one goroutine.
type Parser interface {
	// NumReads returns the number of reads in the input.
	NumReads() uint64
	// ReadLength returns the length of the i'th read.
	ReadLength(i uint64) (uint64, error)
	// Read returns the name and the bases of the i'th read.
	Read(i uint64) (name, seq string, err error)
}

// ReadRange is a half-open range [Start, End) of read ordinals in a Parser.
type ReadRange struct {
	Start, End uint64
}

func (r ReadRange) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// readBatch holds the reads fetched for one build.
type readBatch struct {
	names      []string
	lengths    []uint32
	seqs       []string
	reachedEnd bool
}

// pendingBuild is the state kept by an index created with Opts.DeferBuild.
type pendingBuild struct {
	previous *flatIndex
	seqs     []string
	opts     Opts
}

// New builds an index of the minimizers of the reads in ranges[i] of
// parsers[i], for every i.
//
// If previous is non-nil, the new index also contains all the reads and sketch
// elements of previous. The reads of previous keep their IDs and the new reads
// are numbered from previous.NumReads(). previous is not modified.
//
// Ranges that extend past the end of their parser are truncated. An inverted
// range is an error. Any error aborts the whole build.
func New(ctx context.Context, parsers []Parser, ranges []ReadRange, previous Index, opts Opts) (Index, error) {
	if err := validateKW(opts.KmerSize, opts.WindowSize); err != nil {
		return nil, err
	}
	if len(parsers) != len(ranges) {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("got %d parsers but %d ranges", len(parsers), len(ranges)))
	}
	prev, err := previousIndex(previous, opts)
	if err != nil {
		return nil, err
	}
	batch, err := loadBatch(ctx, parsers, ranges, prev.NumReads())
	if err != nil {
		return nil, err
	}
	idx := &flatIndex{
		kmerSize:    opts.KmerSize,
		windowSize:  opts.WindowSize,
		readNames:   concatStrings(prev.readNames, batch.names),
		readLengths: concatUint32s(prev.readLengths, batch.lengths),
		reachedEnd:  batch.reachedEnd,
	}
	if opts.DeferBuild {
		idx.pending = &pendingBuild{previous: prev, seqs: batch.seqs, opts: opts}
		return idx, nil
	}
	if err := idx.build(ctx, prev, batch.seqs, opts); err != nil {
		return nil, err
	}
	return idx, nil
}

// BuildDeferred runs the build pipeline for an index created with
// Opts.DeferBuild. It returns a new index; idx is not modified.
func BuildDeferred(ctx context.Context, idx Index) (Index, error) {
	fi, ok := idx.(*flatIndex)
	if !ok || fi.pending == nil {
		return nil, errors.E(errors.Invalid, "index was not created with DeferBuild")
	}
	p := fi.pending
	out := &flatIndex{
		kmerSize:    fi.kmerSize,
		windowSize:  fi.windowSize,
		readNames:   fi.readNames,
		readLengths: fi.readLengths,
		reachedEnd:  fi.reachedEnd,
	}
	if err := out.build(ctx, p.previous, p.seqs, p.opts); err != nil {
		return nil, err
	}
	return out, nil
}

func previousIndex(previous Index, opts Opts) (*flatIndex, error) {
	if previous == nil {
		return &flatIndex{built: true}, nil
	}
	prev, ok := previous.(*flatIndex)
	if !ok {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("unsupported previous index type %T", previous))
	}
	if !prev.built {
		return nil, errors.E(errors.Invalid, "previous index has not been built")
	}
	if prev.kmerSize == 0 && prev.NumReads() == 0 {
		// Created by NewEmptyIndex.
		return prev, nil
	}
	if prev.kmerSize != opts.KmerSize || prev.windowSize != opts.WindowSize {
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("previous index has (k,w)=(%d,%d), but building with (%d,%d)",
				prev.kmerSize, prev.windowSize, opts.KmerSize, opts.WindowSize))
	}
	return prev, nil
}

// loadBatch fetches the reads in the given ranges. firstReadID is the ID
// assigned to the first read.
func loadBatch(ctx context.Context, parsers []Parser, ranges []ReadRange, firstReadID uint64) (readBatch, error) {
	b := readBatch{reachedEnd: true}
	var nBase uint64
	for pi, p := range parsers {
		r := ranges[pi]
		if r.Start > r.End {
			return b, errors.E(errors.Invalid, fmt.Sprintf("inverted read range %s", r))
		}
		nRead := p.NumReads()
		end := r.End
		if end > nRead {
			end = nRead
		}
		if end < nRead {
			b.reachedEnd = false
		}
		for i := r.Start; i < end; i++ {
			if (i-r.Start)%4096 == 0 {
				if err := ctx.Err(); err != nil {
					return b, err
				}
			}
			name, seq, err := p.Read(i)
			if err != nil {
				return b, errors.E(err, fmt.Sprintf("parser %d: read %d", pi, i))
			}
			if uint64(len(seq)) > math.MaxUint32 {
				return b, errors.E(errors.Invalid, fmt.Sprintf("read %s is too long: %d bases", name, len(seq)))
			}
			b.names = append(b.names, name)
			b.lengths = append(b.lengths, uint32(len(seq)))
			b.seqs = append(b.seqs, seq)
			nBase += uint64(len(seq))
		}
	}
	if firstReadID+uint64(len(b.names)) > math.MaxUint32 {
		return b, errors.E(errors.Invalid, fmt.Sprintf("too many reads: %d", firstReadID+uint64(len(b.names))))
	}
	log.Debug.Printf("sketch: loaded %d reads, %d bases from %d ranges", len(b.names), nBase, len(ranges))
	return b, nil
}

func concatStrings(a, b []string) []string {
	return append(append(make([]string, 0, len(a)+len(b)), a...), b...)
}

func concatUint32s(a, b []uint32) []uint32 {
	return append(append(make([]uint32, 0, len(a)+len(b)), a...), b...)
}

// forEachShard splits [0,n) into at most parallelism contiguous shards and
// calls fn on each of them in parallel.
func forEachShard(n, parallelism int, fn func(start, end int)) {
	if parallelism > n {
		parallelism = n
	}
	if parallelism <= 0 {
		return
	}
	_ = traverse.Each(parallelism, func(jobIdx int) error {
		fn((jobIdx*n)/parallelism, ((jobIdx+1)*n)/parallelism)
		return nil
	})
}

// build sketches seqs, sorts the result, merges it with prev, and fills the
// lookup tables. idx.readNames must already list every read.
func (idx *flatIndex) build(ctx context.Context, prev *flatIndex, seqs []string, opts Opts) error {
	var (
		parallelism = opts.parallelism()
		firstReadID = ReadID(len(prev.readNames))
		startTime   = time.Now()
	)
	batch := sketchReads(seqs, firstReadID, opts.KmerSize, opts.WindowSize, parallelism)
	vlog.VI(1).Infof("sketch: selected %d minimizers from %d reads in %v", batch.len(), len(seqs), time.Since(startTime))
	if err := ctx.Err(); err != nil {
		return err
	}

	sortStart := time.Now()
	sorted := sortStore(batch, parallelism, opts.HugePages)
	vlog.VI(1).Infof("sketch: sorted %d sketch elements in %v", sorted.len(), time.Since(sortStart))
	if err := ctx.Err(); err != nil {
		return err
	}
	if prev.store.len() > 0 {
		sorted = mergeStores(&prev.store, sorted)
	}
	idx.store = *sorted
	idx.group(parallelism)
	idx.built = true
	log.Printf("sketch: built index with k=%d w=%d: %d reads, %d sketch elements, %d representations in %v",
		idx.kmerSize, idx.windowSize, idx.NumReads(), idx.store.len(), len(idx.groupReps), time.Since(startTime))
	return nil
}

// sortStore returns a copy of s sorted by (representation, read ID). Elements
// with the same representation and read ID keep their order in s.
func sortStore(s *sketchStore, parallelism int, hugePages bool) *sketchStore {
	n := s.len()
	keys, freeKeys := allocSortKeys(n, hugePages)
	defer freeKeys()
	tmp, freeTmp := allocSortKeys(n, hugePages)
	defer freeTmp()

	forEachShard(n, parallelism, func(start, end int) {
		for i := start; i < end; i++ {
			keys[i] = sortKey{rep: s.representations[i], ord: uint64(i)}
		}
	})
	sorted := parallelSortKeys(keys, tmp, parallelism)
	out := newSketchStore(n)
	forEachShard(n, parallelism, func(start, end int) {
		for i := start; i < end; i++ {
			out.set(i, s.get(int(sorted[i].ord)))
		}
	})
	return out
}

// mergeStores merges two stores sorted by (representation, read ID).
//
// REQUIRES: every read ID in b is larger than every read ID in a.
func mergeStores(a, b *sketchStore) *sketchStore {
	out := newSketchStore(a.len() + b.len())
	i, j, k := 0, 0, 0
	for i < a.len() && j < b.len() {
		if b.representations[j] < a.representations[i] {
			out.set(k, b.get(j))
			j++
		} else {
			out.set(k, a.get(i))
			i++
		}
		k++
	}
	for ; i < a.len(); i++ {
		out.set(k, a.get(i))
		k++
	}
	for ; j < b.len(); j++ {
		out.set(k, b.get(j))
		k++
	}
	return out
}

type representationGroup struct {
	rep   Representation
	block ArrayBlock
}

// group computes the global block of every distinct representation and the
// per-read tables from the sorted store.
func (idx *flatIndex) group(parallelism int) {
	var (
		n      = idx.store.len()
		reps   = idx.store.representations
		nRead  = len(idx.readNames)
		byRead = make([][]RepresentationToSketchElements, nRead)
	)
	idx.byRead = byRead
	idx.groupReps, idx.groupBlocks = nil, nil
	idx.minRep, idx.maxRep = 0, 0
	if n == 0 {
		return
	}
	idx.minRep, idx.maxRep = reps[0], reps[n-1]

	// Shard boundaries are moved forward to the start of a run, so no run
	// crosses shards.
	nShard := parallelism
	if nShard > n {
		nShard = n
	}
	bounds := make([]int, nShard+1)
	bounds[nShard] = n
	for s := 1; s < nShard; s++ {
		b := (s * n) / nShard
		for b < n && reps[b] == reps[b-1] {
			b++
		}
		bounds[s] = b
	}
	shardGroups := make([][]representationGroup, nShard)
	_ = traverse.Each(nShard, func(s int) error {
		var groups []representationGroup
		for i := bounds[s]; i < bounds[s+1]; {
			j := i + 1
			for j < bounds[s+1] && reps[j] == reps[i] {
				j++
			}
			if j-i > math.MaxUint32 {
				log.Panicf("representation %x has %d sketch elements", reps[i], j-i)
			}
			groups = append(groups, representationGroup{reps[i], ArrayBlock{Start: uint64(i), Count: uint32(j - i)}})
			i = j
		}
		shardGroups[s] = groups
		return nil
	})
	nGroup := 0
	for _, g := range shardGroups {
		nGroup += len(g)
	}
	idx.groupReps = make([]Representation, 0, nGroup)
	idx.groupBlocks = make([]ArrayBlock, 0, nGroup)
	for _, groups := range shardGroups {
		for _, g := range groups {
			idx.groupReps = append(idx.groupReps, g.rep)
			idx.groupBlocks = append(idx.groupBlocks, g.block)
		}
	}

	// Per-read tables. Groups are visited in ascending representation order,
	// so each read's entries come out sorted. All entries share one arena.
	readIDs := idx.store.readIDs
	eachLocalBlock := func(fn func(rid ReadID, local, global ArrayBlock)) {
		for _, global := range idx.groupBlocks {
			for i := global.Start; i < global.End(); {
				j := i + 1
				for j < global.End() && readIDs[j] == readIDs[i] {
					j++
				}
				fn(readIDs[i], ArrayBlock{Start: i, Count: uint32(j - i)}, global)
				i = j
			}
		}
	}
	counts := make([]int, nRead+1)
	eachLocalBlock(func(rid ReadID, _, _ ArrayBlock) { counts[rid+1]++ })
	for r := 0; r < nRead; r++ {
		counts[r+1] += counts[r]
	}
	arena := make([]RepresentationToSketchElements, counts[nRead])
	for r := 0; r < nRead; r++ {
		byRead[r] = arena[counts[r]:counts[r]:counts[r+1]]
	}
	eachLocalBlock(func(rid ReadID, local, global ArrayBlock) {
		byRead[rid] = append(byRead[rid], RepresentationToSketchElements{
			Representation: reps[global.Start],
			ForRead:        local,
			ForAllReads:    global,
		})
	})
}
