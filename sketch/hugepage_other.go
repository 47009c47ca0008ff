//go:build !linux

package sketch

// allocSortKeys returns a []sortKey of length n. Hugepages are supported only
// on Linux, so hugePages is ignored.
func allocSortKeys(n int, hugePages bool) ([]sortKey, func()) {
	return make([]sortKey, n), func() {}
}
