package sketch

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSortKeys(t *testing.T) {
	a := []sortKey{{1, 0}, {3, 1}, {3, 2}, {7, 3}}
	b := []sortKey{{0, 4}, {3, 5}, {8, 6}}
	dst := make([]sortKey, len(a)+len(b))
	mergeSortKeys(dst, a, b)
	assert.Equal(t, []sortKey{{0, 4}, {1, 0}, {3, 1}, {3, 2}, {3, 5}, {7, 3}, {8, 6}}, dst)

	dst = make([]sortKey, len(a))
	mergeSortKeys(dst, a, nil)
	assert.Equal(t, a, dst)
}

func TestParallelSortKeys(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	for _, n := range []int{0, 1, 100, minSortRun - 1, 3*minSortRun + 17, 10 * minSortRun} {
		for _, parallelism := range []int{1, 2, 3, 8} {
			keys := make([]sortKey, n)
			for i := range keys {
				// Few distinct values so that ties are common.
				keys[i] = sortKey{rep: Representation(r.Intn(50)), ord: uint64(i)}
			}
			want := append([]sortKey(nil), keys...)
			sort.SliceStable(want, func(i, j int) bool { return want[i].rep < want[j].rep })

			tmp := make([]sortKey, n)
			got := parallelSortKeys(keys, tmp, parallelism)
			require.Equal(t, len(want), len(got))
			for i := range want {
				if want[i] != got[i] {
					t.Fatalf("n=%d parallelism=%d: element %d: got %+v, want %+v", n, parallelism, i, got[i], want[i])
				}
			}
		}
	}
}

func TestAllocSortKeys(t *testing.T) {
	for _, hugePages := range []bool{false, true} {
		for _, n := range []int{0, 10, 4 << 20 / int(sortKeySize)} {
			keys, free := allocSortKeys(n, hugePages)
			require.Equal(t, n, len(keys))
			for i := range keys {
				keys[i] = sortKey{rep: Representation(i), ord: uint64(i)}
			}
			if n > 0 {
				assert.Equal(t, Representation(n-1), keys[n-1].rep, "n=%d", n)
			}
			free()
		}
	}
}
