package sketch

import (
	"sort"
	"unsafe"

	"github.com/grailbio/base/traverse"
)

// sortKey orders sketch elements. ord is the element's index in the unsorted
// store, which is ordered by read ID, so sorting by (rep, ord) is a stable sort
// by representation and yields (representation, read ID) order.
type sortKey struct {
	rep Representation
	ord uint64
}

const (
	sortKeySize = unsafe.Sizeof(sortKey{})
	// minSortRun is the smallest run worth sorting in a separate goroutine.
	minSortRun = 1 << 14
)

func (a sortKey) less(b sortKey) bool {
	if a.rep != b.rep {
		return a.rep < b.rep
	}
	return a.ord < b.ord
}

// parallelSortKeys sorts keys using tmp (same length) as the merge buffer. The
// runs are sorted in parallel, then merged pairwise in parallel rounds. It
// returns the slice, keys or tmp, that holds the result.
func parallelSortKeys(keys, tmp []sortKey, parallelism int) []sortKey {
	n := len(keys)
	nRun := parallelism
	if max := (n + minSortRun - 1) / minSortRun; nRun > max {
		nRun = max
	}
	if nRun <= 1 {
		sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
		return keys
	}
	bounds := make([]int, nRun+1)
	for i := range bounds {
		bounds[i] = (i * n) / nRun
	}
	_ = traverse.Each(nRun, func(i int) error {
		run := keys[bounds[i]:bounds[i+1]]
		sort.Slice(run, func(a, b int) bool { return run[a].less(run[b]) })
		return nil
	})

	src, dst := keys, tmp
	for len(bounds) > 2 {
		nOut := len(bounds) / 2 // == ceil(#runs / 2)
		newBounds := make([]int, 0, nOut+1)
		for i := 0; i < len(bounds)-1; i += 2 {
			newBounds = append(newBounds, bounds[i])
		}
		newBounds = append(newBounds, n)
		_ = traverse.Each(nOut, func(m int) error {
			lo := bounds[2*m]
			if 2*m+2 < len(bounds) {
				mid, hi := bounds[2*m+1], bounds[2*m+2]
				mergeSortKeys(dst[lo:hi], src[lo:mid], src[mid:hi])
			} else {
				// Odd run out.
				copy(dst[lo:n], src[lo:n])
			}
			return nil
		})
		src, dst = dst, src
		bounds = newBounds
	}
	return src
}

// mergeSortKeys merges sorted runs a and b into dst.
//
// REQUIRES: len(dst) == len(a)+len(b)
func mergeSortKeys(dst, a, b []sortKey) {
	i, j, k := 0, 0, 0
	for i < len(a) && j < len(b) {
		if b[j].less(a[i]) {
			dst[k] = b[j]
			j++
		} else {
			dst[k] = a[i]
			i++
		}
		k++
	}
	k += copy(dst[k:], a[i:])
	copy(dst[k:], b[j:])
}
