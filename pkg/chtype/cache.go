package chtype

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of distinct type strings a Cache will
// hold before evicting the least recently used entry.
const DefaultCacheSize = 4096

// Cache is the "optional cache of resolved column codecs (keyed by type
// text)" described in spec §5: shared across a single codec instance,
// internally synchronized, lookup misses incur a single parser invocation.
type Cache struct {
	nodes *lru.Cache[string, *Node]
}

// NewCache builds a Cache with room for size distinct type strings.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, _ := lru.New[string, *Node](size)
	return &Cache{nodes: c}
}

// Resolve returns the parsed AST for text, parsing and caching on a miss.
// golang-lru's Cache is already internally mutex-protected, matching the
// spec's "protected by a lock" requirement without a bespoke lock here.
func (c *Cache) Resolve(text string) (*Node, error) {
	if node, ok := c.nodes.Get(text); ok {
		return node, nil
	}
	node, err := Parse(text)
	if err != nil {
		return nil, err
	}
	c.nodes.Add(text, node)
	return node, nil
}
