package main

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/mapper/sketch"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/testutil/h"
	"github.com/klauspost/compress/gzip"
)

const (
	testFasta = `>r0 first
ACGTTGCAAGGCTTAACCGGTTAGCA
>r1
TTGCAAGGCTTAACNNGGTTAGCAACGT
`
	testFastq = `@q0 extra
GGCTTAACCGGTTAGCAAC
+
IIIIIIIIIIIIIIIIIII
@q1
ACGTACGTAC
+
IIIIIIIIII
`
)

func writeTestInputs(t *testing.T, dir string) (faPath, fqPath string) {
	faPath = filepath.Join(dir, "reads.fa")
	assert.NoError(t, ioutil.WriteFile(faPath, []byte(testFasta), 0644))

	fqPath = filepath.Join(dir, "reads.fq.gz")
	f, err := os.Create(fqPath)
	assert.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(testFastq))
	assert.NoError(t, err)
	assert.NoError(t, gz.Close())
	assert.NoError(t, f.Close())
	return
}

func testBuildOpts() buildOpts {
	opts := buildOpts{sketch: sketch.DefaultOpts, merge: true}
	opts.sketch.KmerSize, opts.sketch.WindowSize = 5, 3
	opts.sketch.HugePages = false
	return opts
}

func TestGuessFormat(t *testing.T) {
	expect.EQ(t, guessFormat("a.fa"), fastaFormat)
	expect.EQ(t, guessFormat("s3://b/a.FASTA.gz"), fastaFormat)
	expect.EQ(t, guessFormat("a.fastq.gz"), fastqFormat)
	expect.EQ(t, guessFormat("a.fq"), fastqFormat)
	expect.EQ(t, guessFormat("a.bam"), unknownFormat)
}

func TestBuildMerged(t *testing.T) {
	ctx := vcontext.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	faPath, fqPath := writeTestInputs(t, tempDir)

	out := filepath.Join(tempDir, "all.sketch")
	paths, err := build(ctx, []string{faPath, fqPath}, out, testBuildOpts())
	assert.NoError(t, err)
	expect.That(t, paths, h.ElementsAre(out))

	idx, err := sketch.ReadIndex(ctx, out)
	assert.NoError(t, err)
	expect.That(t, idx.ReadNames(), h.ElementsAre("r0", "r1", "q0", "q1"))
	expect.That(t, idx.ReadLengths(), h.ElementsAre(uint32(26), uint32(28), uint32(19), uint32(10)))
	expect.EQ(t, idx.KmerSize(), 5)
	expect.True(t, idx.ReachedEndOfInput())

	// Batching doesn't change the result.
	opts := testBuildOpts()
	opts.cursor.MaxReadsPerBatch = 1
	opts.sketch.DeferBuild = true
	out1 := filepath.Join(tempDir, "all1.sketch")
	_, err = build(ctx, []string{faPath, fqPath}, out1, opts)
	assert.NoError(t, err)
	idx1, err := sketch.ReadIndex(ctx, out1)
	assert.NoError(t, err)
	expect.EQ(t, sketch.Fingerprint(idx1), sketch.Fingerprint(idx))
}

func TestBuildShards(t *testing.T) {
	ctx := vcontext.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	faPath, fqPath := writeTestInputs(t, tempDir)

	opts := testBuildOpts()
	opts.merge = false
	opts.cursor.MaxBasesPerBatch = 30
	opts.write.Compression = sketch.CompressionSnappy
	prefix := filepath.Join(tempDir, "shard")
	paths, err := build(ctx, []string{faPath, fqPath}, prefix, opts)
	assert.NoError(t, err)
	// r0 (26), r1 (28), q0+q1 (29).
	expect.That(t, paths, h.ElementsAre(shardPath(prefix, 0), shardPath(prefix, 1), shardPath(prefix, 2)))

	idx, err := sketch.ReadIndex(ctx, paths[2])
	assert.NoError(t, err)
	expect.That(t, idx.ReadNames(), h.ElementsAre("q0", "q1"))
	expect.True(t, idx.ReachedEndOfInput())
	idx, err = sketch.ReadIndex(ctx, paths[0])
	assert.NoError(t, err)
	expect.False(t, idx.ReachedEndOfInput())

	_, err = build(ctx, []string{filepath.Join(tempDir, "reads.bam")}, prefix, opts)
	expect.Regexp(t, err, "unknown read format")
}

func TestStatsAndLookup(t *testing.T) {
	ctx := vcontext.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	faPath, _ := writeTestInputs(t, tempDir)
	out := filepath.Join(tempDir, "fa.sketch")
	_, err := build(ctx, []string{faPath}, out, testBuildOpts())
	assert.NoError(t, err)

	var buf bytes.Buffer
	assert.NoError(t, stats(ctx, []string{out}, &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.EQ(t, len(lines), 2)
	expect.True(t, strings.HasPrefix(lines[0], "#path\tk\tw\treads"), lines[0])
	cols := strings.Split(lines[1], "\t")
	assert.EQ(t, len(cols), 11)
	expect.EQ(t, cols[0], out)
	expect.EQ(t, cols[1:5], []string{"5", "3", "2", "54"})

	// "GGCTT" occurs in both reads.
	buf.Reset()
	assert.NoError(t, lookup(ctx, out, []string{"GGCTT"}, &buf))
	lines = strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.EQ(t, len(lines), 2, buf.String())
	expect.True(t, strings.HasPrefix(lines[0], "GGCTT\tr0\t"), lines[0])
	expect.True(t, strings.HasPrefix(lines[1], "GGCTT\tr1\t"), lines[1])

	buf.Reset()
	expect.Regexp(t, lookup(ctx, out, []string{"ACG"}, &buf), "has length 3")
	expect.Regexp(t, lookup(ctx, out, []string{"ACGNN"}, &buf), "invalid base")
}
