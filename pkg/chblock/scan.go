package chblock

import (
	"github.com/clickhouse-native-go/chcodec/pkg/chbin"
	"github.com/clickhouse-native-go/chcodec/pkg/cherr"
)

// scan walks one block using C8 skippers, allocating nothing beyond the
// table/column name and type-text strings the wire format itself requires.
// It returns nil only when r holds the complete block; any short read
// surfaces as NeedMoreData.
func (a *Assembler) scan(r *chbin.Reader) error {
	h, err := readBlockHeader(r)
	if err != nil {
		return err
	}

	for i := 0; i < h.ColumnCount; i++ {
		if _, ok := r.TryReadString(); !ok {
			return cherr.New(cherr.NeedMoreData, "column %d name", i)
		}
		typeText, ok := r.TryReadString()
		if !ok {
			return cherr.New(cherr.NeedMoreData, "column %d type_text", i)
		}
		if a.cfg.ProtocolRevision >= RevisionWithCustomSerialization {
			hasCustom, ok := r.TryReadU8()
			if !ok {
				return cherr.New(cherr.NeedMoreData, "column %d has_custom", i)
			}
			if hasCustom != 0 {
				if _, ok := r.TryReadU8(); !ok {
					return cherr.New(cherr.NeedMoreData, "column %d custom_kind", i)
				}
			}
		}

		node, err := a.codec.ResolveType(typeText)
		if err != nil {
			return err
		}
		ok, err := a.codec.SkipColumn(node, r, h.RowCount)
		if err != nil {
			return err
		}
		if !ok {
			return cherr.New(cherr.NeedMoreData, "column %d payload", i)
		}
	}
	return nil
}
