package main

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/mapper/sketch"
	"v.io/x/lib/vlog"
)

type buildOpts struct {
	sketch sketch.Opts
	cursor sketch.CursorOpts
	write  sketch.WriteOpts
	// merge causes all batches to be accumulated into one index. Otherwise
	// each batch is written to its own file.
	merge bool
}

// shardPath returns the output path of the i'th batch when not merging.
func shardPath(out string, i int) string {
	return fmt.Sprintf("%s-%05d.sketch", out, i)
}

// build indexes the reads in inputs, in order, and writes the result to out
// (merge) or to shardPath(out, i) for each batch i. It returns the paths
// written.
func build(ctx context.Context, inputs []string, out string, opts buildOpts) (paths []string, err error) {
	if len(inputs) == 0 {
		return nil, errors.E(errors.Invalid, "no input files")
	}
	var (
		idx      = sketch.NewEmptyIndex()
		nBatch   int
		firstErr errors.Once
	)
	for _, path := range inputs {
		input, err := openInput(ctx, path)
		if err != nil {
			firstErr.Set(err)
			break
		}
		c := sketch.NewCursor(input.parser, opts.cursor)
		for c.Scan() {
			r := c.Get()
			vlog.VI(1).Infof("%s: indexing reads %v", path, r)
			var prev sketch.Index
			if opts.merge {
				prev = idx
			}
			batchIdx, err := sketch.New(ctx, []sketch.Parser{input.parser}, []sketch.ReadRange{r}, prev, opts.sketch)
			if err == nil && !batchIdx.Built() {
				batchIdx, err = sketch.BuildDeferred(ctx, batchIdx)
			}
			if err != nil {
				firstErr.Set(errors.E(err, path, r.String()))
				break
			}
			if opts.merge {
				idx = batchIdx
			} else {
				p := shardPath(out, nBatch)
				if err := sketch.WriteIndex(ctx, p, batchIdx, opts.write); err != nil {
					firstErr.Set(err)
					break
				}
				paths = append(paths, p)
				log.Printf("%s: wrote reads %v to %s", path, r, p)
			}
			nBatch++
		}
		firstErr.Set(c.Err())
		firstErr.Set(input.close(ctx))
		if firstErr.Err() != nil {
			break
		}
	}
	if err := firstErr.Err(); err != nil {
		return nil, err
	}
	if opts.merge {
		if err := sketch.WriteIndex(ctx, out, idx, opts.write); err != nil {
			return nil, err
		}
		paths = append(paths, out)
		log.Printf("wrote %d reads, %d sketch elements from %d batches to %s",
			idx.NumReads(), len(idx.ReadIDs()), nBatch, out)
	}
	return paths, nil
}
