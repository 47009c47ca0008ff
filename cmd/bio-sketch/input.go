package main

import (
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/mapper/encoding/fasta"
	"github.com/grailbio/mapper/encoding/fastq"
	"github.com/grailbio/mapper/sketch"
	"github.com/klauspost/compress/gzip"
)

type readFormat int

const (
	unknownFormat readFormat = iota
	fastaFormat
	fastqFormat
)

// guessFormat determines the read format from the path's extension, ignoring
// a trailing ".gz".
func guessFormat(path string) readFormat {
	p := strings.TrimSuffix(strings.ToLower(path), ".gz")
	for _, ext := range []string{".fa", ".fasta", ".fna"} {
		if strings.HasSuffix(p, ext) {
			return fastaFormat
		}
	}
	for _, ext := range []string{".fq", ".fastq"} {
		if strings.HasSuffix(p, ext) {
			return fastqFormat
		}
	}
	return unknownFormat
}

// readInput is an opened read file.
type readInput struct {
	path   string
	parser sketch.Parser
	// in is non-nil if parser reads from the file on demand.
	in file.File
}

func (r *readInput) close(ctx context.Context) error {
	if r.in == nil {
		return nil
	}
	return r.in.Close(ctx)
}

// openInput opens a FASTA or FASTQ file, possibly gzipped. An uncompressed
// FASTA file with a "path.fai" index is read on demand; any other input is
// loaded into memory.
func openInput(ctx context.Context, path string) (_ *readInput, err error) {
	format := guessFormat(path)
	if format == unknownFormat {
		return nil, errors.E(errors.Invalid, path, "unknown read format; expect .fa, .fasta, .fna, .fq or .fastq, optionally with .gz")
	}
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	gzipped := fileio.DetermineType(path) == fileio.Gzip
	if format == fastaFormat && !gzipped {
		if _, err := file.Stat(ctx, path+".fai"); err == nil {
			fa, err := openIndexedFasta(ctx, in, path+".fai")
			if err != nil {
				in.Close(ctx) // nolint: errcheck
				return nil, errors.E(err, path)
			}
			log.Debug.Printf("%s: reading through index %s.fai", path, path)
			return &readInput{path: path, parser: fasta.NewReadSource(fa), in: in}, nil
		}
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	r := io.Reader(in.Reader(ctx))
	if gzipped {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.E(err, "gunzip", path)
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}
	var parser sketch.Parser
	switch format {
	case fastaFormat:
		fa, err := fasta.New(r)
		if err != nil {
			return nil, errors.E(err, path)
		}
		parser = fasta.NewReadSource(fa)
	case fastqFormat:
		table, err := fastq.Load(r)
		if err != nil {
			return nil, errors.E(err, path)
		}
		parser = table
	}
	log.Printf("%s: loaded %d reads", path, parser.NumReads())
	return &readInput{path: path, parser: parser}, nil
}

func openIndexedFasta(ctx context.Context, in file.File, indexPath string) (fasta.Fasta, error) {
	idxIn, err := file.Open(ctx, indexPath)
	if err != nil {
		return nil, err
	}
	fa, err := fasta.NewIndexed(in.Reader(ctx), idxIn.Reader(ctx))
	if e := idxIn.Close(ctx); e != nil && err == nil {
		err = e
	}
	return fa, err
}
