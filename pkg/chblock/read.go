package chblock

import (
	"github.com/clickhouse-native-go/chcodec/pkg/chbin"
	"github.com/clickhouse-native-go/chcodec/pkg/cherr"
)

// ReadBlock attempts to decode one complete block from r. If r does not
// yet hold the whole block, it returns a NeedMoreData error and leaves r
// exactly where it was so the caller can feed more bytes and retry; no
// other error leaves partial state behind (scan never commits), except
// that a Truncated/Checksum failure from the allocating pass itself, or a
// disagreement between the bytes scan and parse consumed (reported as
// Bug), poisons the assembler for every call afterward.
func (a *Assembler) ReadBlock(r *chbin.Reader) (*Block, error) {
	if err := a.checkNotPoisoned(); err != nil {
		return nil, err
	}

	mark := r.Mark()
	if err := a.scan(r); err != nil {
		r.Reset(mark)
		a.maybePoison(err)
		return nil, err
	}
	scanConsumed := r.Position() - mark
	r.Reset(mark)

	block, err := a.parse(r)
	if err != nil {
		a.maybePoison(err)
		return nil, err
	}
	if parseConsumed := r.Position() - mark; parseConsumed != scanConsumed {
		a.poisoned.Store(true)
		block.Release()
		return nil, cherr.New(cherr.Bug, "scan pass consumed %d bytes but parse consumed %d", scanConsumed, parseConsumed)
	}
	return block, nil
}

func (a *Assembler) parse(r *chbin.Reader) (*Block, error) {
	h, err := readBlockHeader(r)
	if err != nil {
		return nil, err
	}

	block := &Block{TableName: h.TableName, Info: h.Info, Columns: make([]ColumnData, 0, h.ColumnCount)}
	for i := 0; i < h.ColumnCount; i++ {
		name, ok := r.TryReadString()
		if !ok {
			block.Release()
			return nil, cherr.New(cherr.Truncated, "column %d name: scan pass already confirmed enough bytes", i)
		}
		typeText, ok := r.TryReadString()
		if !ok {
			block.Release()
			return nil, cherr.New(cherr.Truncated, "column %d type_text", i)
		}
		if a.cfg.ProtocolRevision >= RevisionWithCustomSerialization {
			hasCustom, ok := r.TryReadU8()
			if !ok {
				block.Release()
				return nil, cherr.New(cherr.Truncated, "column %d has_custom", i)
			}
			if hasCustom != 0 {
				if _, ok := r.TryReadU8(); !ok {
					block.Release()
					return nil, cherr.New(cherr.Truncated, "column %d custom_kind", i)
				}
			}
		}

		node, err := a.codec.ResolveType(typeText)
		if err != nil {
			block.Release()
			return nil, err
		}
		col, err := a.codec.DecodeColumn(node, r, h.RowCount)
		if err != nil {
			block.Release()
			return nil, withColumn(err, name)
		}
		block.Columns = append(block.Columns, ColumnData{Name: name, TypeText: typeText, Value: col})
	}
	return block, nil
}

// withColumn annotates err with the column name if it carries a *cherr.Error,
// otherwise returns err unchanged.
func withColumn(err error, name string) error {
	if ce, ok := err.(*cherr.Error); ok {
		return ce.WithColumn(name)
	}
	return err
}
