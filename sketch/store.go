package sketch

import (
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
)

// ReadID is a dense sequence number (0, 1, 2, ...) assigned to a read. IDs are
// valid only within one Index.
type ReadID uint32

// PositionInRead is the 0-based offset of a kmer's first base in its read.
type PositionInRead uint32

// SketchElement is one selected minimizer occurrence.
type SketchElement struct {
	Representation Representation
	Position       PositionInRead
	ReadID         ReadID
	Direction      Direction
}

// ArrayBlock is a run [Start, Start+Count) in one of the Index's flat arrays.
type ArrayBlock struct {
	Start uint64
	Count uint32
}

// End returns Start+Count.
func (b ArrayBlock) End() uint64 { return b.Start + uint64(b.Count) }

// sketchStore holds sketch elements as parallel arrays. All four slices have
// the same length.
type sketchStore struct {
	representations []Representation
	positions       []PositionInRead
	readIDs         []ReadID
	directions      []Direction
}

func newSketchStore(n int) *sketchStore {
	return &sketchStore{
		representations: make([]Representation, n),
		positions:       make([]PositionInRead, n),
		readIDs:         make([]ReadID, n),
		directions:      make([]Direction, n),
	}
}

func (s *sketchStore) len() int { return len(s.representations) }

func (s *sketchStore) set(i int, e SketchElement) {
	s.representations[i] = e.Representation
	s.positions[i] = e.Position
	s.readIDs[i] = e.ReadID
	s.directions[i] = e.Direction
}

func (s *sketchStore) get(i int) SketchElement {
	return SketchElement{
		Representation: s.representations[i],
		Position:       s.positions[i],
		ReadID:         s.readIDs[i],
		Direction:      s.directions[i],
	}
}

func (s *sketchStore) add(e SketchElement) {
	s.representations = append(s.representations, e.Representation)
	s.positions = append(s.positions, e.Position)
	s.readIDs = append(s.readIDs, e.ReadID)
	s.directions = append(s.directions, e.Direction)
}

// move copies n elements starting at src to dst. The ranges may overlap.
func (s *sketchStore) move(dst, src, n int) {
	copy(s.representations[dst:dst+n], s.representations[src:src+n])
	copy(s.positions[dst:dst+n], s.positions[src:src+n])
	copy(s.readIDs[dst:dst+n], s.readIDs[src:src+n])
	copy(s.directions[dst:dst+n], s.directions[src:src+n])
}

func (s *sketchStore) truncate(n int) {
	s.representations = s.representations[:n]
	s.positions = s.positions[:n]
	s.readIDs = s.readIDs[:n]
	s.directions = s.directions[:n]
}

// sketchReads selects the minimizers of seqs, whose read IDs are
// firstReadID, firstReadID+1, .... The result is ordered by read ID, then
// position.
//
// The store is allocated once, sized by the per-read upper bound, and each read
// writes its minimizers at its own offset in parallel. A final pass moves the
// per-read runs down to close the gaps.
func sketchReads(seqs []string, firstReadID ReadID, kmerSize, windowSize, parallelism int) *sketchStore {
	nRead := len(seqs)
	offsets := make([]int, nRead+1)
	for i, seq := range seqs {
		offsets[i+1] = offsets[i] + maxMinimizers(len(seq), kmerSize, windowSize)
	}
	store := newSketchStore(offsets[nRead])
	counts := make([]int, nRead)
	if parallelism > nRead {
		parallelism = nRead
	}
	if parallelism > 0 {
		_ = traverse.Each(parallelism, func(jobIdx int) error {
			startIdx := (jobIdx * nRead) / parallelism
			endIdx := ((jobIdx + 1) * nRead) / parallelism
			sel := newMinimizerSelector(kmerSize, windowSize)
			var scratch []SketchElement
			for ri := startIdx; ri < endIdx; ri++ {
				scratch = sel.Select(firstReadID+ReadID(ri), seqs[ri], scratch[:0])
				if len(scratch) > offsets[ri+1]-offsets[ri] {
					log.Panicf("read %d: %d minimizers, expect at most %d", ri, len(scratch), offsets[ri+1]-offsets[ri])
				}
				for j, e := range scratch {
					store.set(offsets[ri]+j, e)
				}
				counts[ri] = len(scratch)
			}
			return nil
		})
	}
	n := 0
	for ri := 0; ri < nRead; ri++ {
		if n != offsets[ri] {
			store.move(n, offsets[ri], counts[ri])
		}
		n += counts[ri]
	}
	store.truncate(n)
	return store
}
