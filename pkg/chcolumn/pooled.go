package chcolumn

import "github.com/clickhouse-native-go/chcodec/internal/bufpool"

// Pooled is a column backed by a slice rented from a bufpool.SlicePool[T].
// Release returns the slice to its pool exactly once.
type Pooled[T any] struct {
	kind     ElementKind
	pool     *bufpool.SlicePool[T]
	values   []T
	released bool
}

// NewPooled wraps values (rented from pool, or nil if the column owns its
// storage outright despite being "pool-rented" in shape) as a Pooled column.
func NewPooled[T any](kind ElementKind, pool *bufpool.SlicePool[T], values []T) *Pooled[T] {
	return &Pooled[T]{kind: kind, pool: pool, values: values}
}

func (c *Pooled[T]) Count() int              { return len(c.values) }
func (c *Pooled[T]) ElementKind() ElementKind { return c.kind }
func (c *Pooled[T]) Get(i int) T             { return c.values[i] }
func (c *Pooled[T]) Values() []T             { return c.values }

// Release returns the backing slice to its pool. A second call is a no-op,
// per spec §4.6's "double-drop MUST be a no-op".
func (c *Pooled[T]) Release() {
	if c.released {
		return
	}
	c.released = true
	if c.pool != nil {
		c.pool.Put(c.values)
	}
	c.values = nil
}
