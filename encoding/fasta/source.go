package fasta

import (
	"fmt"

	"github.com/pkg/errors"
)

// ReadSource presents the sequences of a Fasta as reads, numbered in the order
// of SeqNames. It implements sketch.Parser.
type ReadSource struct {
	fa    Fasta
	names []string
}

// NewReadSource creates a ReadSource over fa.
func NewReadSource(fa Fasta) *ReadSource {
	return &ReadSource{fa: fa, names: fa.SeqNames()}
}

// NumReads returns the number of sequences.
func (s *ReadSource) NumReads() uint64 { return uint64(len(s.names)) }

// ReadLength returns the length of the i'th sequence.
func (s *ReadSource) ReadLength(i uint64) (uint64, error) {
	if i >= uint64(len(s.names)) {
		return 0, errors.Errorf("read %d out of range [0,%d)", i, len(s.names))
	}
	return s.fa.Len(s.names[i])
}

// Read returns the name and the bases of the i'th sequence.
func (s *ReadSource) Read(i uint64) (name, seq string, err error) {
	n, err := s.ReadLength(i)
	if err != nil {
		return "", "", err
	}
	name = s.names[i]
	if n == 0 {
		return name, "", nil
	}
	if seq, err = s.fa.Get(name, 0, n); err != nil {
		return "", "", errors.Wrap(err, fmt.Sprintf("read %d", i))
	}
	return name, seq, nil
}
