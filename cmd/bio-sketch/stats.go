package main

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/mapper/sketch"
)

// indexStats summarizes one index file.
type indexStats struct {
	reads, bases    uint64
	elements        int
	representations int
	// maxOccurrences is the size of the largest representation block.
	maxOccurrences uint32
	minRep, maxRep sketch.Representation
}

func computeStats(idx sketch.Index) indexStats {
	s := indexStats{
		reads:    idx.NumReads(),
		elements: len(idx.ReadIDs()),
		minRep:   idx.MinRepresentation(),
		maxRep:   idx.MaxRepresentation(),
	}
	for _, n := range idx.ReadLengths() {
		s.bases += uint64(n)
	}
	reps := idx.Representations()
	for i := 0; i < len(reps); {
		block, _ := idx.Lookup(reps[i])
		s.representations++
		if block.Count > s.maxOccurrences {
			s.maxOccurrences = block.Count
		}
		i = int(block.End())
	}
	return s
}

// stats writes one TSV line per index file.
func stats(ctx context.Context, paths []string, out io.Writer) error {
	w := tsv.NewWriter(out)
	w.WriteString("#path\tk\tw\treads\tbases\telements\trepresentations\tmax_occurrences\tmin_rep\tmax_rep\tfingerprint")
	if err := w.EndLine(); err != nil {
		return err
	}
	for _, path := range paths {
		idx, err := sketch.ReadIndex(ctx, path)
		if err != nil {
			return err
		}
		s := computeStats(idx)
		w.WriteString(path)
		w.WriteInt64(int64(idx.KmerSize()))
		w.WriteInt64(int64(idx.WindowSize()))
		w.WriteInt64(int64(s.reads))
		w.WriteInt64(int64(s.bases))
		w.WriteInt64(int64(s.elements))
		w.WriteInt64(int64(s.representations))
		w.WriteUint32(s.maxOccurrences)
		if idx.Empty() {
			w.WriteString("-")
			w.WriteString("-")
		} else {
			w.WriteString(sketch.DecodeRepresentation(s.minRep, idx.KmerSize()))
			w.WriteString(sketch.DecodeRepresentation(s.maxRep, idx.KmerSize()))
		}
		w.WriteString(fmt.Sprintf("%016x", sketch.Fingerprint(idx)))
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}
