package sketch

import (
	"sort"
)

// RepresentationToSketchElements describes where the sketch elements of one
// representation live, for one read and for all reads.
type RepresentationToSketchElements struct {
	Representation Representation
	// ForRead spans the elements with this representation in the read that
	// owns this entry.
	ForRead ArrayBlock
	// ForAllReads spans the elements with this representation in every read.
	// It is the same in every read that has the representation.
	ForAllReads ArrayBlock
}

// Index maps (k,w)-minimizer representations to all of their occurrences in a
// set of reads.
//
// The sketch elements are stored in parallel arrays (PositionsInReads,
// ReadIDs, Directions, Representations) sorted by (representation, read ID).
// A built Index is immutable and safe for concurrent use. Slices returned by
// the accessors are shared and must not be modified.
type Index interface {
	// PositionsInReads returns the starting position of each sketch element in
	// its read.
	PositionsInReads() []PositionInRead
	// ReadIDs returns the read of each sketch element.
	ReadIDs() []ReadID
	// Directions returns the strand that produced each sketch element's
	// representation.
	Directions() []Direction
	// Representations returns the representation of each sketch element. It is
	// sorted in non-decreasing order.
	Representations() []Representation
	// SketchElement returns the i'th sketch element.
	//
	// REQUIRES: i < len(ReadIDs())
	SketchElement(i uint64) SketchElement

	// NumReads returns the number of reads, including those inherited from a
	// previous index.
	NumReads() uint64
	// ReadNames maps a read ID to the read's name.
	ReadNames() []string
	// ReadLengths maps a read ID to the read's length in bases.
	ReadLengths() []uint32

	// MinRepresentation returns the smallest representation in the index, or 0
	// if the index has no sketch elements.
	MinRepresentation() Representation
	// MaxRepresentation returns the largest representation in the index, or 0
	// if the index has no sketch elements.
	MaxRepresentation() Representation
	// Empty is true iff the index has no sketch elements.
	Empty() bool

	// SketchElementsByRead returns, for each read ID, the representations found
	// in that read in ascending order, with their per-read and all-read blocks.
	SketchElementsByRead() [][]RepresentationToSketchElements
	// Lookup finds the block of all sketch elements with the given
	// representation. O(log n).
	Lookup(rep Representation) (ArrayBlock, bool)
	// LookupKmer is Lookup for a kmer string of length KmerSize().
	LookupKmer(kmer string) (ArrayBlock, bool)

	// ReachedEndOfInput is true when the ranges this index was built from
	// reached the end of their parsers, so there are no more reads to fetch.
	ReachedEndOfInput() bool
	// Built is false for an index created with Opts.DeferBuild that hasn't been
	// passed to BuildDeferred.
	Built() bool

	KmerSize() int
	WindowSize() int
}

// flatIndex is the Index implementation. The sketch elements are kept in a
// sketchStore; distinct representations and their global blocks are kept in
// groupReps and groupBlocks so Lookup is a binary search.
type flatIndex struct {
	kmerSize, windowSize int

	store       sketchStore
	readNames   []string
	readLengths []uint32

	minRep, maxRep Representation
	groupReps      []Representation
	groupBlocks    []ArrayBlock
	byRead         [][]RepresentationToSketchElements

	reachedEnd bool
	built      bool

	// pending is set only when the index was created with Opts.DeferBuild.
	pending *pendingBuild
}

// NewEmptyIndex creates an index with no reads.
func NewEmptyIndex() Index {
	return &flatIndex{reachedEnd: true, built: true}
}

func (idx *flatIndex) PositionsInReads() []PositionInRead { return idx.store.positions }
func (idx *flatIndex) ReadIDs() []ReadID                  { return idx.store.readIDs }
func (idx *flatIndex) Directions() []Direction            { return idx.store.directions }
func (idx *flatIndex) Representations() []Representation { return idx.store.representations }
func (idx *flatIndex) SketchElement(i uint64) SketchElement {
	return idx.store.get(int(i))
}

func (idx *flatIndex) NumReads() uint64      { return uint64(len(idx.readNames)) }
func (idx *flatIndex) ReadNames() []string   { return idx.readNames }
func (idx *flatIndex) ReadLengths() []uint32 { return idx.readLengths }

func (idx *flatIndex) MinRepresentation() Representation { return idx.minRep }
func (idx *flatIndex) MaxRepresentation() Representation { return idx.maxRep }
func (idx *flatIndex) Empty() bool                       { return idx.store.len() == 0 }

func (idx *flatIndex) SketchElementsByRead() [][]RepresentationToSketchElements {
	return idx.byRead
}

func (idx *flatIndex) Lookup(rep Representation) (ArrayBlock, bool) {
	i := sort.Search(len(idx.groupReps), func(i int) bool { return idx.groupReps[i] >= rep })
	if i < len(idx.groupReps) && idx.groupReps[i] == rep {
		return idx.groupBlocks[i], true
	}
	return ArrayBlock{}, false
}

func (idx *flatIndex) LookupKmer(kmer string) (ArrayBlock, bool) {
	if len(kmer) != idx.kmerSize {
		return ArrayBlock{}, false
	}
	rep, _, err := EncodeKmer(kmer)
	if err != nil {
		return ArrayBlock{}, false
	}
	return idx.Lookup(rep)
}

func (idx *flatIndex) ReachedEndOfInput() bool { return idx.reachedEnd }
func (idx *flatIndex) Built() bool             { return idx.built }
func (idx *flatIndex) KmerSize() int           { return idx.kmerSize }
func (idx *flatIndex) WindowSize() int         { return idx.windowSize }
