package sketch

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil/expect"
)

// randomSeq generates a sequence of n bases. Each base is 'N' with
// probability pN.
func randomSeq(r *rand.Rand, n int, pN float64) string {
	const bases = "ACGTacgt"
	buf := make([]byte, n)
	for i := range buf {
		if r.Float64() < pN {
			buf[i] = 'N'
		} else {
			buf[i] = bases[r.Intn(4)]
		}
	}
	return string(buf)
}

func TestEncodeKmer(t *testing.T) {
	tests := []struct {
		kmer string
		rep  Representation
		dir  Direction
	}{
		{"A", 0, Forward},
		{"T", 0, ReverseComplement},
		{"AAA", 0, Forward},
		{"TTT", 0, ReverseComplement},
		{"acg", 6, Forward},
		{"CGT", 6, ReverseComplement},
		{"GTA", 44, Forward},
		{"TAC", 44, ReverseComplement},
		// Palindromes are reported as Forward.
		{"ACGT", 27, Forward},
		{"GGCC", 165, Forward},
		{strings.Repeat("A", 32), 0, Forward},
		{strings.Repeat("T", 32), 0, ReverseComplement},
	}
	for _, tt := range tests {
		rep, dir, err := EncodeKmer(tt.kmer)
		expect.NoError(t, err, tt.kmer)
		expect.EQ(t, rep, tt.rep, tt.kmer)
		expect.EQ(t, dir, tt.dir, tt.kmer)
	}

	for _, bad := range []string{"", "ACN", strings.Repeat("A", 33), "AC-"} {
		_, _, err := EncodeKmer(bad)
		expect.True(t, errors.Is(errors.Invalid, err), "%q: %v", bad, err)
	}
}

func TestCanonicalSymmetry(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	for i := 0; i < 1000; i++ {
		kmer := randomSeq(r, 1+r.Intn(MaxKmerSize()), 0)
		rep, dir, err := EncodeKmer(kmer)
		expect.NoError(t, err)
		rc := ReverseComplementSeq(kmer)
		rcRep, rcDir, err := EncodeKmer(rc)
		expect.NoError(t, err)
		expect.EQ(t, rcRep, rep, kmer)
		if strings.EqualFold(rc, kmer) {
			expect.EQ(t, dir, Forward, kmer)
			expect.EQ(t, rcDir, Forward, kmer)
		} else {
			expect.True(t, dir != rcDir, kmer)
		}
		expect.EQ(t, mustEncode(t, DecodeRepresentation(rep, len(kmer))), rep)
	}
}

func mustEncode(t *testing.T, kmer string) Representation {
	rep, _, err := EncodeKmer(kmer)
	if err != nil {
		t.Fatal(err)
	}
	return rep
}

func TestDecodeRepresentation(t *testing.T) {
	expect.EQ(t, DecodeRepresentation(0, 3), "AAA")
	expect.EQ(t, DecodeRepresentation(27, 4), "ACGT")
	expect.EQ(t, DecodeRepresentation(^Representation(0), 32), strings.Repeat("T", 32))
	expect.EQ(t, MaxKmerSize(), 32)
}

func TestReverseComplementSeq(t *testing.T) {
	expect.EQ(t, ReverseComplementSeq("AACGTN"), "NACGTT")
	expect.EQ(t, ReverseComplementSeq("acgT"), "Acgt")
	expect.EQ(t, ReverseComplementSeq(""), "")
}

func TestKmerizer(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, k := range []int{1, 2, 5, 15, 31, 32} {
		km := newKmerizer(k)
		for i := 0; i < 50; i++ {
			seq := randomSeq(r, r.Intn(200), 0.03)
			var want []kmerAtPos
			for p := 0; p+k <= len(seq); p++ {
				fwd, _, err := EncodeKmer(seq[p : p+k])
				if err != nil {
					continue
				}
				var f, rc Representation
				for j := 0; j < k; j++ {
					f = (f << 2) | Representation(asciiToBaseBits[seq[p+j]])
					rc = (rc << 2) | Representation(asciiToReverseComplementBaseBits[seq[p+k-1-j]])
				}
				rep, _ := canonical(f, rc)
				expect.EQ(t, rep, fwd)
				want = append(want, kmerAtPos{pos: p, forward: f, reverseComplement: rc})
			}
			var got []kmerAtPos
			km.Reset(seq)
			for km.Scan() {
				got = append(got, km.Get())
			}
			expect.EQ(t, got, want, "k=%d seq=%s", k, seq)
		}
	}
}
