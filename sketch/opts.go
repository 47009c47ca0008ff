package sketch

import (
	"fmt"
	"runtime"

	"github.com/grailbio/base/errors"
)

// Opts configures index construction.
type Opts struct {
	// KmerSize is k, the length of kmers. It must be in [1, MaxKmerSize()].
	KmerSize int
	// WindowSize is w, the number of consecutive kmers in a minimizer window.
	// It must be >= 1. With w=1 every valid kmer is a minimizer.
	WindowSize int
	// Parallelism caps the number of goroutines used during construction. If
	// <= 0, runtime.NumCPU() is used.
	Parallelism int
	// HugePages causes the sort buffers to be placed in madvised hugepage
	// memory. Effective only on Linux.
	HugePages bool
	// DeferBuild causes New to register the batch's reads without sketching or
	// sorting them. The result must be passed to BuildDeferred.
	DeferBuild bool
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	KmerSize:   15,
	WindowSize: 15,
	HugePages:  true,
}

func (o Opts) parallelism() int {
	if o.Parallelism <= 0 {
		return runtime.NumCPU()
	}
	return o.Parallelism
}

func validateKW(kmerSize, windowSize int) error {
	if kmerSize < 1 || kmerSize > MaxKmerSize() {
		return errors.E(errors.Invalid, fmt.Sprintf("kmer size %d not in [1,%d]", kmerSize, MaxKmerSize()))
	}
	if windowSize < 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("window size %d must be positive", windowSize))
	}
	return nil
}
