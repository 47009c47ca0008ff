package main

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/mapper/sketch"
)

// lookup writes every occurrence of each kmer in the index at path, one TSV
// line per sketch element: kmer, read name, position, direction.
func lookup(ctx context.Context, path string, kmers []string, out io.Writer) error {
	idx, err := sketch.ReadIndex(ctx, path)
	if err != nil {
		return err
	}
	var (
		w     = tsv.NewWriter(out)
		names = idx.ReadNames()
	)
	for _, kmer := range kmers {
		if len(kmer) != idx.KmerSize() {
			return errors.E(errors.Invalid, fmt.Sprintf("kmer %s has length %d, but the index has k=%d", kmer, len(kmer), idx.KmerSize()))
		}
		if _, _, err := sketch.EncodeKmer(kmer); err != nil {
			return err
		}
		block, ok := idx.LookupKmer(kmer)
		if !ok {
			log.Printf("%s: not found", kmer)
			continue
		}
		for i := block.Start; i < block.End(); i++ {
			e := idx.SketchElement(i)
			w.WriteString(kmer)
			w.WriteString(names[e.ReadID])
			w.WriteUint32(uint32(e.Position))
			w.WriteString(e.Direction.String())
			if err := w.EndLine(); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}
