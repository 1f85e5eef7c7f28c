package chcolumn

// Dictionary is the dictionary-encoded column shape from spec §4.6: a
// small owned dictionary of distinct values plus a pool-rented index array.
// Row i's value is dictionary[indices[i]]. Used for LowCardinality.
type Dictionary[T any] struct {
	kind       ElementKind
	dictionary []T
	indices    *Pooled[uint32]
	released   bool
}

// NewDictionary builds a Dictionary column. dictionary is owned outright
// (it is expected to be small relative to row count); indices is pooled.
func NewDictionary[T any](kind ElementKind, dictionary []T, indices *Pooled[uint32]) *Dictionary[T] {
	return &Dictionary[T]{kind: kind, dictionary: dictionary, indices: indices}
}

func (c *Dictionary[T]) Count() int              { return c.indices.Count() }
func (c *Dictionary[T]) ElementKind() ElementKind { return c.kind }

// Get returns the dictionary value for row i.
func (c *Dictionary[T]) Get(i int) T {
	return c.dictionary[c.indices.values[i]]
}

// Dictionary exposes the distinct values backing every row.
func (c *Dictionary[T]) Dictionary() []T { return c.dictionary }

// Indices exposes the raw per-row dictionary indices.
func (c *Dictionary[T]) Indices() []uint32 { return c.indices.values }

// Release releases the indices pool ticket. The dictionary itself is owned,
// not pooled, so it is simply dropped. A second call is a no-op.
func (c *Dictionary[T]) Release() {
	if c.released {
		return
	}
	c.released = true
	c.indices.Release()
	c.dictionary = nil
}
