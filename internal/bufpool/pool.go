// Package bufpool provides the process-wide pooled buffer allocator
// described in spec §5: shared across codec instances and internally
// synchronized via sync.Pool, the same mechanism the teacher uses for its
// per-metric sample buffers (internal/memorystore/buffer.go's bufferPool).
package bufpool

import "sync"

// BytePool hands out byte slices of at least the requested capacity and
// recycles them on Put. Slices are reset to zero length, never zeroed.
type BytePool struct {
	pool sync.Pool
}

// NewBytePool creates a pool whose New function allocates defaultCap bytes.
func NewBytePool(defaultCap int) *BytePool {
	bp := &BytePool{}
	bp.pool.New = func() any {
		return make([]byte, 0, defaultCap)
	}
	return bp
}

// Get returns a slice with length 0 and capacity >= n.
func (p *BytePool) Get(n int) []byte {
	b := p.pool.Get().([]byte)
	if cap(b) < n {
		return make([]byte, 0, n)
	}
	return b[:0]
}

// Put returns b to the pool for reuse. Callers must not use b afterwards.
func (p *BytePool) Put(b []byte) {
	p.pool.Put(b[:0]) //nolint:staticcheck // intentional len-0 re-slice before pooling
}

// Shared is the default process-wide byte pool, sized for typical
// compressed-frame payloads.
var Shared = NewBytePool(64 * 1024)

// SlicePool is a generic sync.Pool wrapper for typed element slices, used by
// pkg/chcolumn to recycle pooled column backing arrays. Each instance is
// specific to one element width/type so callers never get back a
// wrongly-typed slice.
type SlicePool[T any] struct {
	pool       sync.Pool
	defaultCap int
}

// NewSlicePool creates a pool of []T with the given default capacity.
func NewSlicePool[T any](defaultCap int) *SlicePool[T] {
	sp := &SlicePool[T]{defaultCap: defaultCap}
	sp.pool.New = func() any {
		return make([]T, 0, defaultCap)
	}
	return sp
}

// Get returns a []T with length 0 and capacity >= n.
func (p *SlicePool[T]) Get(n int) []T {
	s := p.pool.Get().([]T)
	if cap(s) < n {
		return make([]T, 0, n)
	}
	return s[:0]
}

// Put returns s to the pool. Callers must not use s afterwards.
func (p *SlicePool[T]) Put(s []T) {
	p.pool.Put(s[:0])
}
