package maildir

// Batches partitions items into consecutive groups of size elements.
// The last group may be smaller. Order is preserved and the groups share
// the backing array of items. It panics if size is not positive.
func Batches[T any](items []T, size int) [][]T {
	if size <= 0 {
		panic("maildir: Batches called with non-positive size")
	}
	if len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end:end])
	}
	return out
}
