// Package chblock assembles and disassembles one block of columnar data
// (spec §4.5): the self-describing header (table name, block info,
// column/row counts) plus one column payload per declared column, each
// dispatched through chcodec by its wire type text.
//
// The read path follows a two-phase scan-then-parse shape grounded on the
// teacher's internal/memorystore/checkpoint.go streaming read loop: a
// cheap, allocation-free pass confirms the whole block has arrived before
// the allocating pass commits to building typed columns, so a short socket
// read never loses already-buffered bytes.
package chblock

import "github.com/clickhouse-native-go/chcodec/pkg/chcolumn"

// BlockInfo carries the two known block_info fields. bucket_num defaults
// to -1 per spec §4.2.
type BlockInfo struct {
	IsOverflow bool
	BucketNum  int32
}

// DefaultBlockInfo returns the documented zero value: not an overflow
// block, bucket_num -1.
func DefaultBlockInfo() BlockInfo {
	return BlockInfo{BucketNum: -1}
}

// ColumnData is one decoded (or to-be-encoded) column: its wire name, its
// wire type text, and the typed storage produced by chcodec.
type ColumnData struct {
	Name     string
	TypeText string
	Value    chcolumn.Column
}

// Block is one complete unit of wire transfer (spec §4.2).
type Block struct {
	TableName string
	Info      BlockInfo
	Columns   []ColumnData
}

// RowCount reports the row count implied by the first column, or 0 for an
// empty (terminator) block.
func (b *Block) RowCount() int {
	if len(b.Columns) == 0 {
		return 0
	}
	return b.Columns[0].Value.Count()
}

// Release returns every column's pooled backing storage. Safe to call more
// than once and safe to call on a partially populated block.
func (b *Block) Release() {
	for _, c := range b.Columns {
		if c.Value != nil {
			c.Value.Release()
		}
	}
}
