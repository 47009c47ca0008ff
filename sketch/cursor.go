package sketch

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// CursorOpts bounds the size of the batches produced by a Cursor. A zero
// field means no limit on that dimension.
type CursorOpts struct {
	// MaxReadsPerBatch caps the number of reads in a batch.
	MaxReadsPerBatch uint64
	// MaxBasesPerBatch caps the total length of the reads in a batch. A single
	// read longer than the cap becomes a batch of its own.
	MaxBasesPerBatch uint64
}

// Cursor splits the reads of a Parser into consecutive batches, so that a
// dataset too large to index in one pass can be indexed one ReadRange at a
// time. The caller owns the cursor; abandoning it midway is fine. Thread
// compatible.
//
// Example:
//   c := sketch.NewCursor(parser, opts)
//   for c.Scan() {
//     idx, err := sketch.New(ctx, []sketch.Parser{parser}, []sketch.ReadRange{c.Get()}, nil, sketchOpts)
//     ...
//   }
//   if err := c.Err(); err != nil { ... }
type Cursor struct {
	parser Parser
	opts   CursorOpts
	next   uint64
	cur    ReadRange
	err    error
}

// NewCursor creates a cursor positioned at the first read of p.
func NewCursor(p Parser, opts CursorOpts) *Cursor {
	return &Cursor{parser: p, opts: opts}
}

// Scan computes the next batch. It returns false when all reads have been
// handed out or on error.
func (c *Cursor) Scan() bool {
	if c.err != nil {
		return false
	}
	nRead := c.parser.NumReads()
	if c.next >= nRead {
		return false
	}
	start := c.next
	end := start
	var nBase uint64
	for end < nRead {
		if c.opts.MaxReadsPerBatch > 0 && end-start >= c.opts.MaxReadsPerBatch {
			break
		}
		if c.opts.MaxBasesPerBatch > 0 {
			n, err := c.parser.ReadLength(end)
			if err != nil {
				c.err = errors.E(err, fmt.Sprintf("read %d", end))
				return false
			}
			if end > start && nBase+n > c.opts.MaxBasesPerBatch {
				break
			}
			nBase += n
		}
		end++
	}
	c.cur = ReadRange{Start: start, End: end}
	c.next = end
	return true
}

// Get returns the batch computed by the last successful Scan.
func (c *Cursor) Get() ReadRange { return c.cur }

// Done is true once every read has been handed out. It matches
// ReachedEndOfInput of an index built from the last range.
func (c *Cursor) Done() bool { return c.next >= c.parser.NumReads() }

// Err returns the error that stopped Scan, if any.
func (c *Cursor) Err() error { return c.err }
