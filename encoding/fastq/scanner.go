// Package fastq reads FASTQ files and presents their reads to the sketch
// index builder.
package fastq

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// maxLineLength bounds the length of a FASTQ line, and thus of a read.
const maxLineLength = 256 << 20

var (
	// ErrShort is returned when a truncated FASTQ file is encountered.
	ErrShort = errors.New("short FASTQ file")
	// ErrInvalid is returned when an invalid FASTQ file is encountered.
	ErrInvalid = errors.New("invalid FASTQ file")

	errEOF = errors.New("eof")
)

// Read is one FASTQ record. ID is the full header line including the leading
// '@'. Unk is the third line, which starts with '+'.
type Read struct {
	ID, Seq, Unk, Qual string
}

// Name returns the read name: the header line without '@', up to the first
// space or tab.
func (r *Read) Name() string {
	name := r.ID
	if len(name) > 0 && name[0] == '@' {
		name = name[1:]
	}
	for i := 0; i < len(name); i++ {
		if name[i] == ' ' || name[i] == '\t' {
			return name[:i]
		}
	}
	return name
}

// Field enumerates FASTQ fields. It selects the fields filled by a Scanner.
type Field uint

const (
	// ID causes the Read.ID field to be filled
	ID Field = 1 << iota
	// Seq causes the Read.Seq field to be filled
	Seq
	// Unk causes the Read.Unk field to be filled
	Unk
	// Qual causes the Read.Qual field to be filled
	Qual
	// All equals ID|Seq|Unk|Qual.
	All = ID | Seq | Unk | Qual
)

// Scanner reads FASTQ records one at a time. It checks that the header starts
// with '@' and the third line with '+', and that the sequence and quality
// lines have the same length. Not thread safe.
//
// Example:
//   sc := fastq.NewScanner(r, fastq.ID|fastq.Seq)
//   var read fastq.Read
//   for sc.Scan(&read) {
//     ...
//   }
//   if err := sc.Err(); err != nil { ... }
type Scanner struct {
	b      *bufio.Scanner
	err    error
	fields Field
	nRead  int
}

// NewScanner creates a Scanner that fills the given fields of each read.
func NewScanner(r io.Reader, fields Field) *Scanner {
	b := bufio.NewScanner(r)
	b.Buffer(nil, maxLineLength)
	return &Scanner{b: b, fields: fields}
}

// Scan reads the next record into read. It returns false at the end of the
// input or on error. Once Scan returns false, it never returns true again.
func (s *Scanner) Scan(read *Read) bool {
	if s.err != nil {
		return false
	}
	if !s.b.Scan() {
		if s.err = s.b.Err(); s.err == nil {
			s.err = errEOF
		}
		return false
	}
	id := s.b.Bytes()
	if len(id) == 0 || id[0] != '@' {
		s.setInvalid("header does not start with '@'")
		return false
	}
	if s.fields&ID != 0 {
		read.ID = string(id)
	}
	if !s.scanLine() {
		return false
	}
	seqLen := len(s.b.Bytes())
	if s.fields&Seq != 0 {
		read.Seq = s.b.Text()
	}
	if !s.scanLine() {
		return false
	}
	unk := s.b.Bytes()
	if len(unk) == 0 || unk[0] != '+' {
		s.setInvalid("separator does not start with '+'")
		return false
	}
	if s.fields&Unk != 0 {
		read.Unk = string(unk)
	}
	if !s.scanLine() {
		return false
	}
	if len(s.b.Bytes()) != seqLen {
		s.setInvalid("sequence and quality lengths differ")
		return false
	}
	if s.fields&Qual != 0 {
		read.Qual = s.b.Text()
	}
	s.nRead++
	return true
}

func (s *Scanner) setInvalid(msg string) {
	s.err = errors.Wrapf(ErrInvalid, "record %d: %s", s.nRead, msg)
}

func (s *Scanner) scanLine() bool {
	if s.b.Scan() {
		return true
	}
	if s.err = s.b.Err(); s.err == nil {
		s.err = ErrShort
	}
	return false
}

// Err returns the error that stopped Scan, or nil at the end of the input.
// Errors caused by malformed input satisfy errors.Cause(err) == ErrInvalid or
// ErrShort.
func (s *Scanner) Err() error {
	if s.err == errEOF {
		return nil
	}
	return s.err
}
