package chinsert

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clickhouse-native-go/chcodec/pkg/chbin"
	"github.com/clickhouse-native-go/chcodec/pkg/chblock"
	"github.com/clickhouse-native-go/chcodec/pkg/chcodec"
)

type recordingSink struct {
	payloads [][]byte
}

func (s *recordingSink) Send(payload []byte) error {
	cp := append([]byte(nil), payload...)
	s.payloads = append(s.payloads, cp)
	return nil
}

// decodedRowCount parses just enough of a captured payload (as a full
// block, reusing chblock/chcodec) to report how many rows it carries.
func decodedRowCount(t *testing.T, payload []byte) int {
	t.Helper()
	codec := chcodec.New(chcodec.DefaultConfig())
	asm := chblock.New(codec, chblock.DefaultConfig())
	r := chbin.NewReader(payload)
	block, err := asm.ReadBlock(r)
	require.NoError(t, err)
	require.Equal(t, 0, r.Remaining())
	return block.RowCount()
}

type metricRow struct {
	ID    uint64
	Name  string
	Value float64
}

func metricSchema() []SchemaColumn {
	return []SchemaColumn{
		{Name: "ID", TypeText: "UInt64"},
		{Name: "Name", TypeText: "String"},
		{Name: "Value", TypeText: "Float64"},
	}
}

func TestPipelineFlushesOnBatchBoundary(t *testing.T) {
	sink := &recordingSink{}
	cfg := DefaultConfig()
	cfg.BatchSize = 10000
	p, err := New(sink, reflect.TypeOf(metricRow{}), metricSchema(), cfg)
	require.NoError(t, err)

	total := 25001
	for i := 0; i < total; i++ {
		require.NoError(t, p.Add(metricRow{ID: uint64(i), Name: "x", Value: 1.5}))
	}
	require.NoError(t, p.Complete())

	require.Len(t, sink.payloads, 4) // 3 data blocks + 1 terminator
	require.Equal(t, 10000, decodedRowCount(t, sink.payloads[0]))
	require.Equal(t, 10000, decodedRowCount(t, sink.payloads[1]))
	require.Equal(t, 5001, decodedRowCount(t, sink.payloads[2]))
	require.Equal(t, 0, decodedRowCount(t, sink.payloads[3]))
	require.Equal(t, 3, p.FlushCount())
}

func TestPipelineRejectsAddAfterComplete(t *testing.T) {
	sink := &recordingSink{}
	p, err := New(sink, reflect.TypeOf(metricRow{}), metricSchema(), DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, p.Add(metricRow{ID: 1, Name: "a", Value: 1}))
	require.NoError(t, p.Complete())

	err = p.Add(metricRow{ID: 2, Name: "b", Value: 2})
	require.Error(t, err)
}

type nullableRow struct {
	ID   uint32
	Note *string
}

func TestPipelineNullableColumnAlwaysEmitsMask(t *testing.T) {
	sink := &recordingSink{}
	schema := []SchemaColumn{
		{Name: "ID", TypeText: "UInt32"},
		{Name: "Note", TypeText: "Nullable(String)"},
	}
	cfg := DefaultConfig()
	cfg.BatchSize = 10
	p, err := New(sink, reflect.TypeOf(nullableRow{}), schema, cfg)
	require.NoError(t, err)

	note := "hi"
	require.NoError(t, p.Add(nullableRow{ID: 1, Note: &note}))
	require.NoError(t, p.Add(nullableRow{ID: 2, Note: nil}))
	require.NoError(t, p.Complete())

	codec := chcodec.New(chcodec.DefaultConfig())
	asm := chblock.New(codec, chblock.DefaultConfig())
	r := chbin.NewReader(sink.payloads[0])
	block, err := asm.ReadBlock(r)
	require.NoError(t, err)
	require.Equal(t, 2, block.RowCount())
}

func TestDisposeBestEffortCompletes(t *testing.T) {
	sink := &recordingSink{}
	p, err := New(sink, reflect.TypeOf(metricRow{}), metricSchema(), DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, p.Add(metricRow{ID: 1, Name: "a", Value: 1}))

	p.Dispose()
	require.Len(t, sink.payloads, 2)
}

func TestBuildExtractorsRejectsUnboundSchemaColumn(t *testing.T) {
	schema := []SchemaColumn{{Name: "Missing", TypeText: "UInt8"}}
	_, err := buildExtractors(reflect.TypeOf(metricRow{}), schema)
	require.Error(t, err)
}
