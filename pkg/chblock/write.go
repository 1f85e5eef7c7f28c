package chblock

import "github.com/clickhouse-native-go/chcodec/pkg/chbin"

// WriteBlock mirrors ReadBlock's layout exactly: table_name, block info
// (both known fields, always emitted), column_count, row_count, then each
// column's name, type_text, custom-serialization byte (always 0, this
// layer never produces a non-default kind), and payload.
func (a *Assembler) WriteBlock(w *chbin.Writer, block *Block) error {
	if err := a.checkNotPoisoned(); err != nil {
		return err
	}

	w.WriteString(block.TableName)
	writeBlockInfo(w, block.Info)
	w.WriteVarint(uint64(len(block.Columns)))
	w.WriteVarint(uint64(block.RowCount()))

	for _, c := range block.Columns {
		w.WriteString(c.Name)
		w.WriteString(c.TypeText)
		if a.cfg.ProtocolRevision >= RevisionWithCustomSerialization {
			w.WriteU8(0)
		}
		node, err := a.codec.ResolveType(c.TypeText)
		if err != nil {
			a.maybePoison(err)
			return withColumn(err, c.Name)
		}
		if err := a.codec.EncodeColumn(node, w, c.Value); err != nil {
			a.maybePoison(err)
			return withColumn(err, c.Name)
		}
	}
	return nil
}
