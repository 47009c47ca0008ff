// Package fasta reads (optionally .fai-indexed) FASTA files and presents
// their sequences as reads to the sketch index builder.
//
// A FASTA file is a list of named sequences, each of which may span several
// lines:
//
// >read1 first read
// ACGTAC
// GAGGAC
// >read2
// ACGT
//
// The name of a sequence is the text after '>' up to the first space, so the
// example above holds "read1" (12 bases) and "read2" (4 bases). See
// http://www.htslib.org/doc/faidx.html for the index format.
package fasta

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const maxLineLength = 256 << 20

// Fasta is a set of named sequences.
type Fasta interface {
	// Get returns bases [start, end) of the named sequence. Thread safe.
	Get(seqName string, start, end uint64) (string, error)

	// Len returns the length of the named sequence.
	Len(seqName string) (uint64, error)

	// SeqNames lists the sequences in the order they appear in the file.
	SeqNames() []string
}

// memFasta keeps every sequence in memory.
type memFasta struct {
	seqs     map[string]string
	seqNames []string
}

// seqNameFromHeader extracts the sequence name from a '>' line.
func seqNameFromHeader(line string) string {
	name := line[1:]
	if i := strings.IndexAny(name, " \t"); i >= 0 {
		name = name[:i]
	}
	return name
}

// New reads all of r into memory.
func New(r io.Reader) (Fasta, error) {
	f := &memFasta{seqs: map[string]string{}}
	var (
		sc      = bufio.NewScanner(r)
		name    string
		inSeq   bool
		builder strings.Builder
	)
	sc.Buffer(nil, maxLineLength)
	add := func() error {
		if _, ok := f.seqs[name]; ok {
			return errors.Errorf("duplicate sequence name %s", name)
		}
		f.seqs[name] = builder.String()
		f.seqNames = append(f.seqNames, name)
		builder.Reset()
		return nil
	}
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if inSeq {
				if err := add(); err != nil {
					return nil, err
				}
			}
			name, inSeq = seqNameFromHeader(line), true
			continue
		}
		if !inSeq {
			return nil, errors.Errorf("malformed FASTA file: bases before the first '>' line")
		}
		builder.WriteString(line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read FASTA data")
	}
	if inSeq {
		if err := add(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Get implements Fasta.Get().
func (f *memFasta) Get(seqName string, start, end uint64) (string, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", seqName)
	}
	if end <= start {
		return "", errors.Errorf("start must be less than end")
	}
	if end > uint64(len(s)) {
		return "", errors.Errorf("end is past end of sequence %s: %d", seqName, len(s))
	}
	return s[start:end], nil
}

// Len implements Fasta.Len().
func (f *memFasta) Len(seqName string) (uint64, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", seqName)
	}
	return uint64(len(s)), nil
}

// SeqNames implements Fasta.SeqNames().
func (f *memFasta) SeqNames() []string { return f.seqNames }
