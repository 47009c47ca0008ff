package sketch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(c *Cursor) []ReadRange {
	var ranges []ReadRange
	for c.Scan() {
		ranges = append(ranges, c.Get())
	}
	return ranges
}

func TestCursorMaxReads(t *testing.T) {
	p := newTestParser("ACGT", "ACGTACGT", "A", "ACGTAC", "AC")
	c := NewCursor(p, CursorOpts{MaxReadsPerBatch: 2})
	assert.False(t, c.Done())
	assert.Equal(t, []ReadRange{{0, 2}, {2, 4}, {4, 5}}, scanAll(c))
	assert.True(t, c.Done())
	assert.NoError(t, c.Err())
	assert.False(t, c.Scan())
}

func TestCursorMaxBases(t *testing.T) {
	// Lengths 4, 8, 1, 6, 2.
	p := newTestParser("ACGT", "ACGTACGT", "A", "ACGTAC", "AC")
	assert.Equal(t, []ReadRange{{0, 1}, {1, 3}, {3, 5}}, scanAll(NewCursor(p, CursorOpts{MaxBasesPerBatch: 9})))
	// A read longer than the cap gets a batch of its own.
	assert.Equal(t, []ReadRange{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 5}}, scanAll(NewCursor(p, CursorOpts{MaxBasesPerBatch: 3})))
	// Both limits.
	assert.Equal(t, []ReadRange{{0, 2}, {2, 4}, {4, 5}}, scanAll(NewCursor(p, CursorOpts{MaxReadsPerBatch: 2, MaxBasesPerBatch: 100})))
	assert.Equal(t, []ReadRange{{0, 1}, {1, 3}, {3, 5}}, scanAll(NewCursor(p, CursorOpts{MaxReadsPerBatch: 2, MaxBasesPerBatch: 9})))
}

func TestCursorUnlimited(t *testing.T) {
	p := newTestParser("ACGT", "ACGTACGT", "A")
	assert.Equal(t, []ReadRange{{0, 3}}, scanAll(NewCursor(p, CursorOpts{})))

	empty := newTestParser()
	c := NewCursor(empty, CursorOpts{MaxReadsPerBatch: 10})
	assert.True(t, c.Done())
	assert.False(t, c.Scan())
	assert.NoError(t, c.Err())
}

// badLengthParser fails ReadLength for one read.
type badLengthParser struct {
	*testParser
	bad uint64
}

func (p badLengthParser) ReadLength(i uint64) (uint64, error) {
	if i == p.bad {
		return 0, assert.AnError
	}
	return p.testParser.ReadLength(i)
}

func TestCursorError(t *testing.T) {
	p := badLengthParser{newTestParser("ACGT", "ACGT", "ACGT", "ACGT"), 3}
	c := NewCursor(p, CursorOpts{MaxBasesPerBatch: 8})
	require.True(t, c.Scan())
	assert.Equal(t, ReadRange{0, 2}, c.Get())
	assert.False(t, c.Scan())
	assert.Error(t, c.Err())
	assert.Contains(t, c.Err().Error(), "read 3")
	assert.False(t, c.Scan())
}

// Indexing a parser batch by batch and merging gives the same index as
// indexing it in one pass.
func TestCursorBuild(t *testing.T) {
	ctx := context.Background()
	p := randomParser(5, 60, 300)
	opts := testOpts(9, 4)
	want := mustNew(t, []Parser{p}, []ReadRange{all(p)}, nil, opts)

	var (
		c   = NewCursor(p, CursorOpts{MaxBasesPerBatch: 1000})
		idx = NewEmptyIndex()
		n   int
	)
	for c.Scan() {
		var err error
		idx, err = New(ctx, []Parser{p}, []ReadRange{c.Get()}, idx, opts)
		require.NoError(t, err)
		assert.Equal(t, c.Done(), idx.ReachedEndOfInput())
		n++
	}
	require.NoError(t, c.Err())
	assert.True(t, n > 1)
	assert.Equal(t, Fingerprint(want), Fingerprint(idx))
}
