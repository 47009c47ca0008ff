package fastq

import (
	"io"

	"github.com/pkg/errors"
)

// ReadTable holds the names and sequences of the reads of a FASTQ file in
// memory, in file order. It implements sketch.Parser.
type ReadTable struct {
	names []string
	seqs  []string
}

// Load reads every record of r. Qualities are dropped.
func Load(r io.Reader) (*ReadTable, error) {
	var (
		t    = &ReadTable{}
		sc   = NewScanner(r, ID|Seq)
		read Read
	)
	for sc.Scan(&read) {
		t.names = append(t.names, read.Name())
		t.seqs = append(t.seqs, read.Seq)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// NumReads returns the number of records.
func (t *ReadTable) NumReads() uint64 { return uint64(len(t.seqs)) }

// ReadLength returns the sequence length of the i'th record.
func (t *ReadTable) ReadLength(i uint64) (uint64, error) {
	if i >= uint64(len(t.seqs)) {
		return 0, errors.Errorf("read %d out of range [0,%d)", i, len(t.seqs))
	}
	return uint64(len(t.seqs[i])), nil
}

// Read returns the name and the sequence of the i'th record.
func (t *ReadTable) Read(i uint64) (name, seq string, err error) {
	if i >= uint64(len(t.seqs)) {
		return "", "", errors.Errorf("read %d out of range [0,%d)", i, len(t.seqs))
	}
	return t.names[i], t.seqs[i], nil
}
