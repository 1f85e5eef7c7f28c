package chblock

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clickhouse-native-go/chcodec/pkg/chbin"
	"github.com/clickhouse-native-go/chcodec/pkg/chcodec"
	"github.com/clickhouse-native-go/chcodec/pkg/chcolumn"
	"github.com/clickhouse-native-go/chcodec/pkg/cherr"
)

func sampleBlock(codec *chcodec.Codec) *Block {
	idCol := chcolumn.NewOwned(chcolumn.KindUint8, []uint8{1, 2, 3})
	nameCol := chcolumn.NewOwned(chcolumn.KindString, []string{"a", "bb", "ccc"})

	return &Block{
		TableName: "",
		Info:      DefaultBlockInfo(),
		Columns: []ColumnData{
			{Name: "id", TypeText: "UInt8", Value: idCol},
			{Name: "name", TypeText: "String", Value: nameCol},
		},
	}
}

func TestWriteThenReadBlockRoundTrip(t *testing.T) {
	codec := chcodec.New(chcodec.DefaultConfig())
	asm := New(codec, DefaultConfig())

	block := sampleBlock(codec)
	w := chbin.NewWriter(128)
	require.NoError(t, asm.WriteBlock(w, block))

	readAsm := New(codec, DefaultConfig())
	r := chbin.NewReader(w.Bytes())
	got, err := readAsm.ReadBlock(r)
	require.NoError(t, err)
	require.Equal(t, 0, r.Remaining())

	require.Equal(t, "", got.TableName)
	require.False(t, got.Info.IsOverflow)
	require.Equal(t, int32(-1), got.Info.BucketNum)
	require.Equal(t, 3, got.RowCount())
	require.Len(t, got.Columns, 2)
	require.Equal(t, "id", got.Columns[0].Name)
	require.Equal(t, "UInt8", got.Columns[0].TypeText)

	ids := got.Columns[0].Value.(*chcolumn.Pooled[uint8])
	require.Equal(t, []uint8{1, 2, 3}, ids.Values())
	names := got.Columns[1].Value.(*chcolumn.Pooled[string])
	require.Equal(t, []string{"a", "bb", "ccc"}, names.Values())
}

func TestReadBlockNeedsMoreDataThenSucceedsOnRetry(t *testing.T) {
	codec := chcodec.New(chcodec.DefaultConfig())
	asm := New(codec, DefaultConfig())

	block := sampleBlock(codec)
	w := chbin.NewWriter(128)
	require.NoError(t, asm.WriteBlock(w, block))
	full := w.Bytes()

	r := chbin.NewReader(full[:len(full)-2])
	_, err := asm.ReadBlock(r)
	require.Error(t, err)
	require.Equal(t, cherr.NeedMoreData, cherr.KindOf(err))
	require.Equal(t, 0, r.Position())
	require.False(t, asm.Poisoned())

	r.Feed(full[len(full)-2:])
	got, err := asm.ReadBlock(r)
	require.NoError(t, err)
	require.Equal(t, 3, got.RowCount())
}

func TestReadBlockRejectsUnknownBlockInfoField(t *testing.T) {
	codec := chcodec.New(chcodec.DefaultConfig())
	asm := New(codec, DefaultConfig())

	w := chbin.NewWriter(32)
	w.WriteString("")
	w.WriteVarint(7) // unknown field id
	w.WriteVarint(0)
	w.WriteVarint(0)

	r := chbin.NewReader(w.Bytes())
	_, err := asm.ReadBlock(r)
	require.Error(t, err)
	require.Equal(t, cherr.MalformedType, cherr.KindOf(err))
	require.False(t, asm.Poisoned())
}

func TestWriteRejectsWhenPoisoned(t *testing.T) {
	codec := chcodec.New(chcodec.DefaultConfig())
	asm := New(codec, DefaultConfig())
	asm.poisoned.Store(true)

	err := asm.WriteBlock(chbin.NewWriter(8), &Block{})
	require.Error(t, err)
	require.Equal(t, cherr.Poisoned, cherr.KindOf(err))
}

func TestEmptyTerminatorBlockRoundTrips(t *testing.T) {
	codec := chcodec.New(chcodec.DefaultConfig())
	asm := New(codec, DefaultConfig())

	block := &Block{Info: DefaultBlockInfo()}
	w := chbin.NewWriter(16)
	require.NoError(t, asm.WriteBlock(w, block))

	r := chbin.NewReader(w.Bytes())
	got, err := asm.ReadBlock(r)
	require.NoError(t, err)
	require.Equal(t, 0, got.RowCount())
	require.Empty(t, got.Columns)
}
