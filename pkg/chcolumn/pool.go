package chcolumn

import "github.com/clickhouse-native-go/chcodec/internal/bufpool"

// Shared pools for callers that build Flattened offsets, Dictionary indices
// or raw byte buffers themselves. chcodec's decoders do not draw from
// them: they construct their own per-type pools with bufpool.NewSlicePool
// (String, FixedString and the fixed-width types) and allocate Array
// offsets and LowCardinality indices with make.
var (
	BytePool    = bufpool.NewSlicePool[byte](64 * 1024)
	OffsetPool  = bufpool.NewSlicePool[uint64](8 * 1024)
	IndexPool   = bufpool.NewSlicePool[uint32](8 * 1024)
)
