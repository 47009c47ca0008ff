// Package sketch builds minimizer indexes of sequencing reads.
//
// Each read is reduced to its (k,w)-minimizers: for every window of w
// consecutive kmers, the kmer with the smallest canonical 2-bit
// representation. The resulting sketch elements (representation, position,
// read ID, direction) of all reads are sorted by representation and read ID,
// so that every occurrence of a representation, in one read or in all of them,
// is a contiguous block of the index arrays.
//
// Typical use:
//
//   fa, err := fasta.New(r)
//   ...
//   parser := fasta.NewReadSource(fa)
//   ...
//   idx, err := sketch.New(ctx, []sketch.Parser{parser},
//     []sketch.ReadRange{{0, parser.NumReads()}}, nil, sketch.DefaultOpts)
//   ...
//   block, ok := idx.LookupKmer("ACGTACGTACGTACG")
//   for i := block.Start; ok && i < block.End(); i++ {
//     e := idx.SketchElement(i)
//     ...
//   }
//
// Large inputs can be indexed in batches with a Cursor, passing each batch's
// index as the previous index of the next one, or written out per batch with
// WriteIndex.
package sketch
