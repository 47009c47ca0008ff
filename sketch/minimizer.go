package sketch

// windowEntry is a kmer kept in the sliding-window deque.
type windowEntry struct {
	ordinal int // index of the kmer within its segment.
	pos     int
	rep     Representation
	dir     Direction
}

// minimizerSelector picks (k,w)-minimizers from reads. It keeps scratch
// buffers between reads, so one selector should be used per goroutine. Thread
// compatible.
type minimizerSelector struct {
	kmerSize, windowSize int
	km                   *kmerizer
	dq                   []windowEntry
}

func newMinimizerSelector(kmerSize, windowSize int) *minimizerSelector {
	return &minimizerSelector{
		kmerSize:   kmerSize,
		windowSize: windowSize,
		km:         newKmerizer(kmerSize),
	}
}

// maxMinimizers is an upper bound on the number of minimizers a read of
// length n can yield: one per window.
func maxMinimizers(n, kmerSize, windowSize int) int {
	if m := n - kmerSize - windowSize + 2; m > 0 {
		return m
	}
	return 0
}

// Select appends the minimizers of seq to dst, in ascending position order,
// and returns the extended slice.
//
// A non-ACGT byte ends a segment: no kmer and no window spans it, and every
// segment is processed as if it were a separate read. In each window of
// windowSize consecutive kmers the one with the smallest representation is
// selected, the leftmost one on ties. A position is emitted only when it first
// becomes the minimum of a window.
func (s *minimizerSelector) Select(readID ReadID, seq string, dst []SketchElement) []SketchElement {
	w := s.windowSize
	var (
		head        int // s.dq[head:] is the live deque.
		ordinal     int // ordinal of the next kmer in the current segment.
		prevPos     = -2
		lastEmitted = -1
	)
	s.dq = s.dq[:0]
	s.km.Reset(seq)
	for s.km.Scan() {
		km := s.km.Get()
		if km.pos != prevPos+1 {
			// Hard break: start a new segment.
			s.dq = s.dq[:0]
			head = 0
			ordinal = 0
		}
		prevPos = km.pos
		rep, dir := km.canonical()

		// Entries that are strictly larger than the new kmer can never be a
		// window minimum again. Equal entries stay, so the leftmost one wins.
		for len(s.dq) > head && s.dq[len(s.dq)-1].rep > rep {
			s.dq = s.dq[:len(s.dq)-1]
		}
		s.dq = append(s.dq, windowEntry{ordinal: ordinal, pos: km.pos, rep: rep, dir: dir})
		for s.dq[head].ordinal <= ordinal-w {
			head++
		}
		if ordinal >= w-1 {
			min := s.dq[head]
			if min.pos != lastEmitted {
				dst = append(dst, SketchElement{
					Representation: min.rep,
					Position:       PositionInRead(min.pos),
					ReadID:         readID,
					Direction:      min.dir,
				})
				lastEmitted = min.pos
			}
		}
		ordinal++
		if head > 4*w && head > len(s.dq)/2 {
			// Reclaim the dead prefix so the buffer stays O(w).
			n := copy(s.dq, s.dq[head:])
			s.dq = s.dq[:n]
			head = 0
		}
	}
	return dst
}

// SelectMinimizers returns the (k,w)-minimizers of one read. It is the
// single-read form of what New does for every read of a batch.
func SelectMinimizers(readID ReadID, seq string, kmerSize, windowSize int) ([]SketchElement, error) {
	if err := validateKW(kmerSize, windowSize); err != nil {
		return nil, err
	}
	s := newMinimizerSelector(kmerSize, windowSize)
	return s.Select(readID, seq, nil), nil
}
