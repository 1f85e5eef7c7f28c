package chblock

import (
	"github.com/clickhouse-native-go/chcodec/pkg/chbin"
	"github.com/clickhouse-native-go/chcodec/pkg/cherr"
)

type blockHeader struct {
	TableName   string
	Info        BlockInfo
	ColumnCount int
	RowCount    int
}

// readBlockHeader reads table_name, block_info, column_count and row_count
// (spec §4.5 steps 1-3) using the non-failing Try* family throughout, so a
// short read surfaces as NeedMoreData with r's position left exactly where
// the caller's Mark was taken.
func readBlockHeader(r *chbin.Reader) (blockHeader, error) {
	var h blockHeader
	h.Info = DefaultBlockInfo()

	tableName, ok := r.TryReadString()
	if !ok {
		return h, cherr.New(cherr.NeedMoreData, "table_name")
	}
	h.TableName = tableName

	for {
		fieldID, ok := r.TryReadVarint()
		if !ok {
			return h, cherr.New(cherr.NeedMoreData, "block_info field id")
		}
		if fieldID == 0 {
			break
		}
		switch fieldID {
		case 1:
			v, ok := r.TryReadU8()
			if !ok {
				return h, cherr.New(cherr.NeedMoreData, "block_info is_overflow")
			}
			h.Info.IsOverflow = v != 0
		case 2:
			v, ok := r.TryReadI32()
			if !ok {
				return h, cherr.New(cherr.NeedMoreData, "block_info bucket_num")
			}
			h.Info.BucketNum = v
		default:
			return h, cherr.New(cherr.MalformedType, "unknown block_info field id %d", fieldID)
		}
	}

	columnCount, ok := r.TryReadVarint()
	if !ok {
		return h, cherr.New(cherr.NeedMoreData, "column_count")
	}
	rowCount, ok := r.TryReadVarint()
	if !ok {
		return h, cherr.New(cherr.NeedMoreData, "row_count")
	}
	h.ColumnCount = int(columnCount)
	h.RowCount = int(rowCount)
	return h, nil
}

// writeBlockInfo always emits both known fields, matching the read loop's
// expectation of an explicit field tag for each value rather than omitting
// defaults.
func writeBlockInfo(w *chbin.Writer, info BlockInfo) {
	w.WriteVarint(1)
	if info.IsOverflow {
		w.WriteU8(1)
	} else {
		w.WriteU8(0)
	}
	w.WriteVarint(2)
	w.WriteI32(info.BucketNum)
	w.WriteVarint(0)
}
