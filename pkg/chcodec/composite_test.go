package chcodec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clickhouse-native-go/chcodec/pkg/chbin"
	"github.com/clickhouse-native-go/chcodec/pkg/cherr"
	"github.com/clickhouse-native-go/chcodec/pkg/chtype"
)

func parseType(t *testing.T, text string) *chtype.Node {
	t.Helper()
	node, err := chtype.Parse(text)
	require.NoError(t, err)
	return node
}

func TestArrayStringRoundTrip(t *testing.T) {
	codec := New(DefaultConfig())
	node := parseType(t, "Array(String)")

	w := chbin.NewWriter(64)
	w.WriteU64(2) // row 0: 2 elements, cumulative offset 2
	w.WriteU64(3) // row 1: 1 element, cumulative offset 3
	w.WriteString("a")
	w.WriteString("bb")
	w.WriteString("ccc")

	r := chbin.NewReader(w.Bytes())
	col, err := codec.DecodeColumn(node, r, 2)
	require.NoError(t, err)
	require.Equal(t, 0, r.Remaining())

	ac, ok := col.(*ArrayColumn)
	require.True(t, ok)
	require.Equal(t, 2, ac.Count())

	elements, err := valuesOf[string](ac.Elements(), "String")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "bb", "ccc"}, elements)

	start, end := ac.Span(0)
	require.Equal(t, []string{"a", "bb"}, elements[start:end])
	start, end = ac.Span(1)
	require.Equal(t, []string{"ccc"}, elements[start:end])

	out := chbin.NewWriter(64)
	require.NoError(t, codec.EncodeColumn(node, out, ac))
	require.Equal(t, w.Bytes(), out.Bytes())
}

func TestArrayEmptyRows(t *testing.T) {
	codec := New(DefaultConfig())
	node := parseType(t, "Array(UInt8)")

	w := chbin.NewWriter(16)
	w.WriteU64(0)
	w.WriteU64(0)

	r := chbin.NewReader(w.Bytes())
	col, err := codec.DecodeColumn(node, r, 2)
	require.NoError(t, err)

	ac := col.(*ArrayColumn)
	require.Equal(t, 0, ac.Elements().Count())
	start, end := ac.Span(0)
	require.Equal(t, start, end)
}

// TestArrayOffsetsAreMonotonicNonDecreasing exercises property 3: cumulative
// offsets never decrease row over row, including across an empty row
// sandwiched between non-empty ones.
func TestArrayOffsetsAreMonotonicNonDecreasing(t *testing.T) {
	codec := New(DefaultConfig())
	node := parseType(t, "Array(UInt8)")

	w := chbin.NewWriter(32)
	w.WriteU64(2) // row 0: 2 elements -> offset 2
	w.WriteU64(2) // row 1: empty -> offset unchanged
	w.WriteU64(5) // row 2: 3 elements -> offset 5
	w.WriteU8(1)
	w.WriteU8(2)
	w.WriteU8(3)
	w.WriteU8(4)
	w.WriteU8(5)

	r := chbin.NewReader(w.Bytes())
	col, err := codec.DecodeColumn(node, r, 3)
	require.NoError(t, err)
	require.Equal(t, 0, r.Remaining())

	ac := col.(*ArrayColumn)
	offsets := ac.Offsets()
	for i := 1; i < len(offsets); i++ {
		require.GreaterOrEqualf(t, offsets[i], offsets[i-1], "offset at row %d must not decrease", i)
	}

	start, end := ac.Span(1)
	require.Equal(t, start, end, "empty row must have a zero-length span")
}

func TestNullableRoundTrip(t *testing.T) {
	codec := New(DefaultConfig())
	node := parseType(t, "Nullable(Int32)")

	w := chbin.NewWriter(32)
	w.WriteU8(0)
	w.WriteU8(1)
	w.WriteU8(0)
	w.WriteI32(10)
	w.WriteI32(0) // null slot still carries a value on the wire
	w.WriteI32(30)

	r := chbin.NewReader(w.Bytes())
	col, err := codec.DecodeColumn(node, r, 3)
	require.NoError(t, err)
	require.Equal(t, 0, r.Remaining())

	nc := col.(*NullableColumn)
	require.False(t, nc.IsNull(0))
	require.True(t, nc.IsNull(1))
	require.False(t, nc.IsNull(2))

	inner, err := valuesOf[int32](nc.Inner(), "Int32")
	require.NoError(t, err)
	require.Equal(t, []int32{10, 0, 30}, inner)

	out := chbin.NewWriter(32)
	require.NoError(t, codec.EncodeColumn(node, out, nc))
	require.Equal(t, w.Bytes(), out.Bytes())
}

func TestSkipNullableAdvancesWithoutDecoding(t *testing.T) {
	codec := New(DefaultConfig())
	node := parseType(t, "Nullable(UInt64)")

	w := chbin.NewWriter(32)
	w.WriteU8(1)
	w.WriteU8(0)
	w.WriteU64(0)
	w.WriteU64(99)

	r := chbin.NewReader(w.Bytes())
	ok, err := codec.SkipColumn(node, r, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, r.Remaining())
}

func TestTupleColumnarLayout(t *testing.T) {
	codec := New(DefaultConfig())
	node := parseType(t, "Tuple(UInt8, String)")

	w := chbin.NewWriter(32)
	w.WriteU8(1)
	w.WriteU8(2)
	w.WriteString("x")
	w.WriteString("yy")

	r := chbin.NewReader(w.Bytes())
	col, err := codec.DecodeColumn(node, r, 2)
	require.NoError(t, err)
	require.Equal(t, 0, r.Remaining())

	tc := col.(*TupleColumn)
	require.Equal(t, 2, tc.NumFields())

	ints, err := valuesOf[uint8](tc.Field(0), "UInt8")
	require.NoError(t, err)
	require.Equal(t, []uint8{1, 2}, ints)

	strs, err := valuesOf[string](tc.Field(1), "String")
	require.NoError(t, err)
	require.Equal(t, []string{"x", "yy"}, strs)

	out := chbin.NewWriter(32)
	require.NoError(t, codec.EncodeColumn(node, out, tc))
	require.Equal(t, w.Bytes(), out.Bytes())
}

func TestMapKeysValuesFlattened(t *testing.T) {
	codec := New(DefaultConfig())
	node := parseType(t, "Map(String, Int32)")

	w := chbin.NewWriter(64)
	w.WriteU64(1) // row 0 has 1 entry
	w.WriteU64(3) // row 1 has 2 more entries
	w.WriteString("a")
	w.WriteString("b")
	w.WriteString("c")
	w.WriteI32(1)
	w.WriteI32(2)
	w.WriteI32(3)

	r := chbin.NewReader(w.Bytes())
	col, err := codec.DecodeColumn(node, r, 2)
	require.NoError(t, err)
	require.Equal(t, 0, r.Remaining())

	mc := col.(*MapColumn)
	keys, err := valuesOf[string](mc.Keys(), "String")
	require.NoError(t, err)
	values, err := valuesOf[int32](mc.MapValues(), "Int32")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, keys)
	require.Equal(t, []int32{1, 2, 3}, values)

	start, end := mc.Span(1)
	require.Equal(t, []string{"b", "c"}, keys[start:end])
}

func TestLowCardinalityStringRoundTrip(t *testing.T) {
	codec := New(DefaultConfig())
	node := parseType(t, "LowCardinality(String)")

	w := chbin.NewWriter(64)
	w.WriteU64(0)                                  // version
	w.WriteU64(0 | lowCardinalityHasAdditionalKeys) // u8 index width, with additional-keys bit
	w.WriteU64(2)                                   // dictionary size
	w.WriteString("red")
	w.WriteString("blue")
	w.WriteU64(4) // index count
	w.WriteU8(0)
	w.WriteU8(1)
	w.WriteU8(1)
	w.WriteU8(0)

	r := chbin.NewReader(w.Bytes())
	col, err := codec.DecodeColumn(node, r, 4)
	require.NoError(t, err)
	require.Equal(t, 0, r.Remaining())

	lc := col.(*LowCardinalityColumn)
	dict, err := valuesOf[string](lc.Dictionary(), "String")
	require.NoError(t, err)
	require.Equal(t, []string{"red", "blue"}, dict)
	require.Equal(t, []uint64{0, 1, 1, 0}, lc.Indices())

	out := chbin.NewWriter(64)
	require.NoError(t, codec.EncodeColumn(node, out, lc))

	rOut := chbin.NewReader(out.Bytes())
	col2, err := codec.DecodeColumn(node, rOut, 4)
	require.NoError(t, err)
	lc2 := col2.(*LowCardinalityColumn)
	dict2, err := valuesOf[string](lc2.Dictionary(), "String")
	require.NoError(t, err)
	require.Equal(t, dict, dict2)
	require.Equal(t, lc.Indices(), lc2.Indices())
}

// TestLowCardinalityNullableIndexZeroIsNull exercises
// LowCardinality(Nullable(T)): the dictionary is decoded as plain T (the
// Nullable wrapper is unwrapped), and the column records that index 0 is
// the null sentinel per spec §4.3's baseline wire convention.
func TestLowCardinalityNullableIndexZeroIsNull(t *testing.T) {
	codec := New(DefaultConfig())
	node := parseType(t, "LowCardinality(Nullable(String))")

	w := chbin.NewWriter(64)
	w.WriteU64(0)                                  // version
	w.WriteU64(0 | lowCardinalityHasAdditionalKeys) // u8 index width
	w.WriteU64(2)                                   // dictionary size (slot 0 = null sentinel)
	w.WriteString("")
	w.WriteString("red")
	w.WriteU64(3) // index count
	w.WriteU8(0)  // null
	w.WriteU8(1)  // "red"
	w.WriteU8(0)  // null

	r := chbin.NewReader(w.Bytes())
	col, err := codec.DecodeColumn(node, r, 3)
	require.NoError(t, err)
	require.Equal(t, 0, r.Remaining())

	lc := col.(*LowCardinalityColumn)
	require.True(t, lc.Nullable())
	require.True(t, lc.IsNull(0))
	require.False(t, lc.IsNull(1))
	require.True(t, lc.IsNull(2))

	dict, err := valuesOf[string](lc.Dictionary(), "String")
	require.NoError(t, err)
	require.Equal(t, []string{"", "red"}, dict)
}

func TestSkipJSONRejectsUnsupportedVersion(t *testing.T) {
	codec := New(DefaultConfig())
	node := parseType(t, "JSON")

	w := chbin.NewWriter(16)
	w.WriteVarint(3) // unsupported version
	w.WriteString("{}")

	r := chbin.NewReader(w.Bytes())
	ok, err := codec.SkipColumn(node, r, 1)
	require.False(t, ok)
	require.Error(t, err)
	require.Equal(t, cherr.UnsupportedJSONFormat, cherr.KindOf(err))
}

func TestSkipArrayMatchesDecodeBoundary(t *testing.T) {
	codec := New(DefaultConfig())
	node := parseType(t, "Array(String)")

	w := chbin.NewWriter(64)
	w.WriteU64(1)
	w.WriteU64(3)
	w.WriteString("a")
	w.WriteString("bb")
	w.WriteString("ccc")
	w.WriteRaw([]byte{0xAA}) // trailing byte belonging to the next column

	r := chbin.NewReader(w.Bytes())
	ok, err := codec.SkipColumn(node, r, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, r.Remaining())
}

func TestNestedAsTupleOfArrays(t *testing.T) {
	codec := New(DefaultConfig())
	node := parseType(t, "Nested(id UInt32, name String)")

	w := chbin.NewWriter(64)
	// Array(UInt32) offsets then flat elements.
	w.WriteU64(1)
	w.WriteU64(2)
	w.WriteU32(1)
	w.WriteU32(2)
	// Array(String) offsets then flat elements.
	w.WriteU64(1)
	w.WriteU64(2)
	w.WriteString("x")
	w.WriteString("y")

	r := chbin.NewReader(w.Bytes())
	col, err := codec.DecodeColumn(node, r, 2)
	require.NoError(t, err)
	require.Equal(t, 0, r.Remaining())

	tc := col.(*TupleColumn)
	idArr := tc.Field(0).(*ArrayColumn)
	nameArr := tc.Field(1).(*ArrayColumn)
	ids, err := valuesOf[uint32](idArr.Elements(), "UInt32")
	require.NoError(t, err)
	names, err := valuesOf[string](nameArr.Elements(), "String")
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2}, ids)
	require.Equal(t, []string{"x", "y"}, names)
}
