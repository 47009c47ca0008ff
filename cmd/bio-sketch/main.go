package main

/*
bio-sketch builds and queries minimizer indexes of FASTA and FASTQ reads.

  bio-sketch build -k 15 -w 10 -out reads.sketch -merge reads.fastq.gz
  bio-sketch stats reads.sketch
  bio-sketch lookup reads.sketch ACGTACGTACGTACG
*/

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/mapper/sketch"
	"v.io/x/lib/cmdline"
)

func newCmdBuild() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "build",
		Short:    "Build minimizer indexes of FASTA or FASTQ files",
		ArgsName: "path...",
		Long: `
Build indexes the reads of the given files, in order. Read IDs are assigned
consecutively across files. Files ending in .gz are gunzipped. An uncompressed
FASTA file with a .fai index is read on demand.

The reads are processed in batches bounded by -max-reads-per-batch and
-max-bases-per-batch. With -merge, all batches are merged into one index
written to -out. Otherwise batch i is written to <out>-<i>.sketch, with read
IDs numbered from zero in each file.`,
	}
	var (
		opts             = buildOpts{sketch: sketch.DefaultOpts}
		out              string
		compression      string
		maxReadsPerBatch uint64
		maxBasesPerBatch uint64
	)
	cmd.Flags.IntVar(&opts.sketch.KmerSize, "k", sketch.DefaultOpts.KmerSize, "Kmer length, at most 32")
	cmd.Flags.IntVar(&opts.sketch.WindowSize, "w", sketch.DefaultOpts.WindowSize, "Number of consecutive kmers in a minimizer window")
	cmd.Flags.IntVar(&opts.sketch.Parallelism, "parallelism", 0, "Max number of threads; 0 = runtime.NumCPU()")
	cmd.Flags.BoolVar(&opts.sketch.HugePages, "hugepages", sketch.DefaultOpts.HugePages, "Use madvised hugepages for sort buffers (linux only)")
	cmd.Flags.BoolVar(&opts.sketch.DeferBuild, "defer-build", false, "Fetch all reads of a batch before sketching any of them")
	cmd.Flags.Uint64Var(&maxReadsPerBatch, "max-reads-per-batch", 0, "Max reads per batch; 0 = unlimited")
	cmd.Flags.Uint64Var(&maxBasesPerBatch, "max-bases-per-batch", 1<<30, "Max bases per batch; 0 = unlimited")
	cmd.Flags.BoolVar(&opts.merge, "merge", false, "Merge all batches into one index")
	cmd.Flags.StringVar(&out, "out", "", "Output path (with -merge) or path prefix")
	cmd.Flags.StringVar(&compression, "compression", sketch.CompressionZstd, "One of zstd, snappy, none")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) == 0 {
			return fmt.Errorf("build takes one or more read files, but got %v", argv)
		}
		if out == "" {
			return fmt.Errorf("-out must be set")
		}
		opts.cursor = sketch.CursorOpts{MaxReadsPerBatch: maxReadsPerBatch, MaxBasesPerBatch: maxBasesPerBatch}
		opts.write = sketch.WriteOpts{Compression: compression}
		_, err := build(vcontext.Background(), argv, out, opts)
		return err
	})
	return cmd
}

func newCmdStats() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "stats",
		Short:    "Print a TSV summary of index files",
		ArgsName: "path...",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) == 0 {
			return fmt.Errorf("stats takes one or more index files, but got %v", argv)
		}
		return stats(vcontext.Background(), argv, env.Stdout)
	})
	return cmd
}

func newCmdLookup() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "lookup",
		Short:    "Print the occurrences of kmers in an index file",
		ArgsName: "path kmer...",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) < 2 {
			return fmt.Errorf("lookup takes an index file and one or more kmers, but got %v", argv)
		}
		return lookup(vcontext.Background(), argv[0], argv[1:], env.Stdout)
	})
	return cmd
}

func main() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-sketch",
			Short:    "Tools for building and querying minimizer indexes",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdBuild(),
				newCmdStats(),
				newCmdLookup(),
			},
		})
}
