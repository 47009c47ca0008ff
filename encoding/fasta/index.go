package fasta

import (
	"bufio"
	"bytes"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// GenerateIndex writes the .fai index of the FASTA data in "in" to out, in
// the format of "samtools faidx". The index can be passed to NewIndexed.
func GenerateIndex(out io.Writer, in io.Reader) error {
	var (
		w        = tsv.NewWriter(out)
		r        = bufio.NewReader(in)
		cur      indexEntry
		inSeq    bool
		nBytes   uint64
		firstErr errors.Once
	)
	emit := func() {
		w.WriteString(cur.name)
		w.WriteInt64(int64(cur.length))
		w.WriteInt64(int64(cur.offset))
		w.WriteInt64(int64(cur.lineBases))
		w.WriteInt64(int64(cur.lineBytes))
		firstErr.Set(w.EndLine())
	}
	for firstErr.Err() == nil {
		raw, err := r.ReadBytes('\n')
		if err != nil && err != io.EOF {
			firstErr.Set(err)
			break
		}
		nBytes += uint64(len(raw))
		if line := bytes.TrimRight(raw, "\r\n"); len(line) > 0 {
			if line[0] == '>' {
				if inSeq {
					emit()
				}
				cur, inSeq = indexEntry{name: seqNameFromHeader(string(line)), offset: nBytes}, true
			} else if !inSeq {
				firstErr.Set(errors.E(errors.Invalid, "malformed FASTA file: bases before the first '>' line"))
			} else {
				if cur.lineBytes == 0 {
					// The first line of a sequence sets its geometry.
					cur.lineBytes = uint64(len(raw))
					cur.lineBases = uint64(len(line))
				}
				cur.length += uint64(len(line))
			}
		}
		if err == io.EOF {
			break
		}
	}
	if firstErr.Err() == nil {
		if nBytes == 0 {
			return errors.E(errors.Invalid, "empty FASTA file")
		}
		if inSeq {
			emit()
		}
	}
	firstErr.Set(w.Flush())
	return firstErr.Err()
}
