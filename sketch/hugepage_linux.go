//go:build linux

package sketch

import (
	"unsafe"

	"github.com/grailbio/base/log"
	"golang.org/x/sys/unix"
)

// allocSortKeys returns a []sortKey of length n and a function that releases
// it. When hugePages is set, the slice lives in an anon-mapped region with
// madvise(MADV_HUGEPAGE) to reduce TLB misses during the sort. Ubuntu, by
// default, activates transparent hugepages only for madvised regions, so this
// bypasses Go's allocator. If the mapping fails, a regular slice is returned.
//
// For more details, see
// https://www.kernel.org/doc/Documentation/vm/transhuge.txt.
func allocSortKeys(n int, hugePages bool) ([]sortKey, func()) {
	const hugePageSize = 2 << 20 // size of Linux transparent hugetlb.
	if !hugePages || n == 0 || n*int(sortKeySize) < hugePageSize {
		return make([]sortKey, n), func() {}
	}
	data, err := unix.Mmap(-1, 0, n*int(sortKeySize)+hugePageSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		log.Error.Printf("mmap %d sort keys: %v; using the heap", n, err)
		return make([]sortKey, n), func() {}
	}
	if err := unix.Madvise(data, unix.MADV_HUGEPAGE); err != nil {
		log.Debug.Printf("madvise(MADV_HUGEPAGE): %v", err)
	}
	// Round the start up to a hugePageSize boundary.
	base := uintptr(unsafe.Pointer(&data[0]))
	start := ((base-1)/hugePageSize + 1) * hugePageSize
	keys := unsafe.Slice((*sortKey)(unsafe.Pointer(&data[start-base])), n)
	return keys, func() {
		if err := unix.Munmap(data); err != nil {
			log.Panicf("munmap: %v", err)
		}
	}
}
