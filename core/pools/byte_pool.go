package pools

import "sync"

// tier couples one slice size with its pool. Entries are stored as
// pointers so a Put never allocates a new slice header on the heap.
type tier struct {
	size int
	pool sync.Pool
}

// BytePool hands out byte slices from size-classed pools. The default
// classes match the server's buffer shapes: file chunks and response
// heads, read scratch, and one large spare.
type BytePool struct {
	tiers []*tier
}

// NewBytePool creates a byte pool with the standard size classes.
func NewBytePool() *BytePool {
	return NewBytePoolWithSizes([]int{512, 4096, 8192})
}

// NewBytePoolWithSizes creates a byte pool with custom size classes,
// sorted ascending.
func NewBytePoolWithSizes(sizes []int) *BytePool {
	bp := &BytePool{tiers: make([]*tier, 0, len(sizes))}
	for _, size := range sizes {
		tr := &tier{size: size}
		tr.pool.New = func() any {
			buf := make([]byte, tr.size)
			return &buf
		}
		bp.tiers = append(bp.tiers, tr)
	}
	return bp
}

// Get returns a slice with len(buf) == size, taken from the smallest
// class that fits. Requests above the largest class are allocated
// directly and will not be recycled.
func (bp *BytePool) Get(size int) []byte {
	for _, tr := range bp.tiers {
		if size <= tr.size {
			return (*tr.pool.Get().(*[]byte))[:size]
		}
	}
	return make([]byte, size)
}

// Put recycles a slice whose capacity matches a class exactly. Grown or
// foreign slices are left to the garbage collector.
func (bp *BytePool) Put(buf []byte) {
	if buf == nil {
		return
	}
	for _, tr := range bp.tiers {
		if cap(buf) == tr.size {
			buf = buf[:tr.size]
			tr.pool.Put(&buf)
			return
		}
	}
}
