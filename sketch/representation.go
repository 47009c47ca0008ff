package sketch

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/simd"
	gunsafe "github.com/grailbio/base/unsafe"
)

const invalidBaseBits = uint8(255)

var (
	asciiToBaseBits                  [256]uint8
	asciiToReverseComplementBaseBits [256]uint8
)

func init() {
	for i := range asciiToBaseBits {
		asciiToBaseBits[i] = invalidBaseBits
		asciiToReverseComplementBaseBits[i] = invalidBaseBits
	}
	for _, b := range []struct {
		lower, upper byte
		bits         uint8
	}{{'a', 'A', 0}, {'c', 'C', 1}, {'g', 'G', 2}, {'t', 'T', 3}} {
		asciiToBaseBits[b.lower] = b.bits
		asciiToBaseBits[b.upper] = b.bits
		asciiToReverseComplementBaseBits[b.lower] = 3 - b.bits
		asciiToReverseComplementBaseBits[b.upper] = 3 - b.bits
	}
}

// Representation is the canonical 2-bit-per-base encoding of a kmer: A=0, C=1,
// G=2, T=3, first base in the most significant position. Of the forward and
// the reverse-complement encoding, the numerically smaller one is used.
type Representation uint64

// Direction records which strand produced the canonical representation of a
// sketch element.
type Direction uint8

const (
	// Forward means the forward-strand encoding was the smaller one (or both
	// were equal).
	Forward Direction = iota
	// ReverseComplement means the reverse-complement encoding was smaller.
	ReverseComplement
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "F"
	case ReverseComplement:
		return "R"
	}
	return "?"
}

// MaxKmerSize returns the longest kmer that fits in a Representation: two
// bits per base.
func MaxKmerSize() int { return 64 / 2 }

// IsValidBase reports whether ch is one of ACGTacgt.
func IsValidBase(ch byte) bool { return asciiToBaseBits[ch] != invalidBaseBits }

// canonical picks the smaller of the two encodings.
func canonical(forward, reverseComplement Representation) (Representation, Direction) {
	if forward <= reverseComplement {
		return forward, Forward
	}
	return reverseComplement, ReverseComplement
}

// EncodeKmer computes the canonical representation of kmer, whose length is
// the kmer size. It fails if the kmer is empty, longer than MaxKmerSize, or
// contains a byte other than ACGTacgt.
func EncodeKmer(kmer string) (Representation, Direction, error) {
	if len(kmer) == 0 || len(kmer) > MaxKmerSize() {
		return 0, Forward, errors.E(errors.Invalid, fmt.Sprintf("kmer length %d not in [1,%d]", len(kmer), MaxKmerSize()))
	}
	var forward, rc Representation
	for i := 0; i < len(kmer); i++ {
		bits := asciiToBaseBits[kmer[i]]
		if bits == invalidBaseBits {
			return 0, Forward, errors.E(errors.Invalid, fmt.Sprintf("invalid base %q at %d in %s", kmer[i], i, kmer))
		}
		forward = (forward << 2) | Representation(bits)
	}
	for i := len(kmer) - 1; i >= 0; i-- {
		rc = (rc << 2) | Representation(asciiToReverseComplementBaseBits[kmer[i]])
	}
	rep, dir := canonical(forward, rc)
	return rep, dir, nil
}

// DecodeRepresentation turns the representation of a k-base kmer back into
// uppercase ACGT.
func DecodeRepresentation(rep Representation, k int) string {
	const bases = "ACGT"
	buf := make([]byte, k)
	for i := k - 1; i >= 0; i-- {
		buf[i] = bases[rep&3]
		rep >>= 2
	}
	return string(buf)
}

var reverseComplementTable = func() (t [256]byte) {
	for i := range t {
		t[i] = 'N'
	}
	for _, p := range []string{"AT", "CG", "GC", "TA", "at", "cg", "gc", "ta"} {
		t[p[0]] = p[1]
	}
	return
}()

// ReverseComplementSeq returns the reverse complement of seq. Bytes other than
// ACGTacgt become 'N'. Case is preserved.
func ReverseComplementSeq(seq string) string {
	n := len(seq)
	buf := simd.MakeUnsafe(n)
	for i := 0; i < n; i++ {
		buf[n-1-i] = reverseComplementTable[seq[i]]
	}
	return gunsafe.BytesToString(buf)
}

// kmerAtPos is one valid kmer of a read.
type kmerAtPos struct {
	pos                        int
	forward, reverseComplement Representation
}

func (km kmerAtPos) canonical() (Representation, Direction) {
	return canonical(km.forward, km.reverseComplement)
}

// kmerizer lists the kmers of a sequence, skipping every kmer that overlaps a
// non-ACGT byte. Consecutive kmers are computed by shifting one base in.
//
// Example:
//   km := newKmerizer(k)
//   km.Reset(seq)
//   for km.Scan() {
//     ... km.Get() ...
//   }
type kmerizer struct {
	kmerSize int
	mask     Representation // low 2*kmerSize bits set.
	rcShift  uint

	seq   string
	si    int  // start of the next kmer.
	valid bool // cur holds the kmer starting at si-1.
	cur   kmerAtPos
}

func newKmerizer(kmerSize int) *kmerizer {
	mask := ^Representation(0)
	if kmerSize < MaxKmerSize() {
		mask = ^(^Representation(0) << uint(2*kmerSize))
	}
	return &kmerizer{
		kmerSize: kmerSize,
		mask:     mask,
		rcShift:  uint(2 * (kmerSize - 1)),
	}
}

func (k *kmerizer) Reset(seq string) {
	k.seq = seq
	k.si = 0
	k.valid = false
}

// Scan advances to the next valid kmer. It returns false at the end of the
// sequence.
func (k *kmerizer) Scan() bool {
	if k.valid && k.si+k.kmerSize <= len(k.seq) {
		nextCh := k.seq[k.si+k.kmerSize-1]
		if bits := asciiToBaseBits[nextCh]; bits != invalidBaseBits {
			k.cur.pos = k.si
			k.cur.forward = ((k.cur.forward << 2) | Representation(bits)) & k.mask
			k.cur.reverseComplement = (k.cur.reverseComplement >> 2) |
				(Representation(asciiToReverseComplementBaseBits[nextCh]) << k.rcShift)
			k.si++
			return true
		}
		// The new base is ambiguous. Restart after it.
		k.si += k.kmerSize
		k.valid = false
	}
	for k.si+k.kmerSize <= len(k.seq) {
		var forward, rc Representation
		bad := -1
		for i := k.si; i < k.si+k.kmerSize; i++ {
			bits := asciiToBaseBits[k.seq[i]]
			if bits == invalidBaseBits {
				bad = i
			}
		}
		if bad >= 0 {
			k.si = bad + 1
			continue
		}
		for i := k.si; i < k.si+k.kmerSize; i++ {
			forward = (forward << 2) | Representation(asciiToBaseBits[k.seq[i]])
		}
		for i := k.si + k.kmerSize - 1; i >= k.si; i-- {
			rc = (rc << 2) | Representation(asciiToReverseComplementBaseBits[k.seq[i]])
		}
		k.cur = kmerAtPos{pos: k.si, forward: forward, reverseComplement: rc}
		k.si++
		k.valid = true
		return true
	}
	k.valid = false
	return false
}

// Get returns the kmer found by the last successful Scan.
func (k *kmerizer) Get() kmerAtPos { return k.cur }
