package sketch

import (
	"encoding/binary"

	farm "github.com/dgryski/go-farm"
)

// Fingerprint hashes the sorted arrays and the read metadata of an index. Two
// indexes built from the same reads with the same (k,w) have the same
// fingerprint, regardless of parallelism or batching.
func Fingerprint(idx Index) uint64 {
	var (
		h   = farm.Hash64(nil)
		buf = make([]byte, 0, 1<<16)
	)
	flush := func() {
		h = farm.Hash64WithSeed(buf, h)
		buf = buf[:0]
	}
	put := func(v uint64, n int) {
		if len(buf)+8 > cap(buf) {
			flush()
		}
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], v)
		buf = append(buf, tmp[:n]...)
	}
	put(uint64(idx.KmerSize()), 4)
	put(uint64(idx.WindowSize()), 4)
	reps, pos, rids, dirs := idx.Representations(), idx.PositionsInReads(), idx.ReadIDs(), idx.Directions()
	for i := range reps {
		put(uint64(reps[i]), 8)
		put(uint64(pos[i]), 4)
		put(uint64(rids[i]), 4)
		put(uint64(dirs[i]), 1)
	}
	lengths := idx.ReadLengths()
	for i, name := range idx.ReadNames() {
		put(uint64(lengths[i]), 4)
		flush()
		h = farm.Hash64WithSeed([]byte(name), h)
	}
	flush()
	return h
}
