package chcodec

import (
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/clickhouse-native-go/chcodec/pkg/chbin"
	"github.com/clickhouse-native-go/chcodec/pkg/chcolumn"
)

// TestUUIDWireTransposition pins the exact byte transposition a canonical
// UUID takes on the wire: the two 8-byte halves are each reversed, and the
// halves stay in their canonical order.
func TestUUIDWireTransposition(t *testing.T) {
	codec := New(DefaultConfig())
	node := parseType(t, "UUID")

	id := uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff")
	wantWire := []byte{0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11, 0x00, 0xFF, 0xEE, 0xDD, 0xCC, 0xBB, 0xAA, 0x99, 0x88}

	w := chbin.NewWriter(16)
	col := chcolumn.NewOwned(chcolumn.KindUUID, []uuid.UUID{id})
	require.NoError(t, codec.EncodeColumn(node, w, col))
	require.Equal(t, wantWire, w.Bytes())

	r := chbin.NewReader(wantWire)
	decoded, err := codec.DecodeColumn(node, r, 1)
	require.NoError(t, err)
	require.Equal(t, 0, r.Remaining())

	values, err := valuesOf[uuid.UUID](decoded, "UUID")
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{id}, values)
}

// TestDecimalEncodesAsScaledInt64 pins Decimal(18,4) of 1234.5678 to its
// documented on-wire form: unscaled mantissa 12345678 as a little-endian
// i64.
func TestDecimalEncodesAsScaledInt64(t *testing.T) {
	codec := New(DefaultConfig())
	node := parseType(t, "Decimal(18,4)")

	d := Decimal{Unscaled: big.NewInt(12345678), Scale: 4}
	require.Equal(t, "1234.5678", d.String())

	w := chbin.NewWriter(8)
	col := chcolumn.NewOwned(chcolumn.KindDecimal, []Decimal{d})
	require.NoError(t, codec.EncodeColumn(node, w, col))
	require.Equal(t, []byte{0x4E, 0x61, 0xBC, 0x00, 0x00, 0x00, 0x00, 0x00}, w.Bytes())

	r := chbin.NewReader(w.Bytes())
	decoded, err := codec.DecodeColumn(node, r, 1)
	require.NoError(t, err)
	require.Equal(t, 0, r.Remaining())

	values, err := valuesOf[Decimal](decoded, "Decimal")
	require.NoError(t, err)
	require.Len(t, values, 1)
	require.Equal(t, "1234.5678", values[0].String())
}

// TestFixedWidthScalarRoundTrip exercises property 1 (round-trip scalars)
// across the fixed-width integer and float family: decode(encode(v)) == v
// for representative values including zero and the type's extremes.
func TestFixedWidthScalarRoundTrip(t *testing.T) {
	codec := New(DefaultConfig())

	t.Run("Int32", func(t *testing.T) {
		node := parseType(t, "Int32")
		w := chbin.NewWriter(16)
		w.WriteI32(-2147483648)
		w.WriteI32(0)
		w.WriteI32(2147483647)

		r := chbin.NewReader(w.Bytes())
		col, err := codec.DecodeColumn(node, r, 3)
		require.NoError(t, err)
		values, err := valuesOf[int32](col, "Int32")
		require.NoError(t, err)
		require.Equal(t, []int32{-2147483648, 0, 2147483647}, values)

		out := chbin.NewWriter(16)
		require.NoError(t, codec.EncodeColumn(node, out, col))
		require.Equal(t, w.Bytes(), out.Bytes())
	})

	t.Run("Float64", func(t *testing.T) {
		node := parseType(t, "Float64")
		w := chbin.NewWriter(24)
		w.WriteF64(0)
		w.WriteF64(-1.5)
		w.WriteF64(3.14159265)

		r := chbin.NewReader(w.Bytes())
		col, err := codec.DecodeColumn(node, r, 3)
		require.NoError(t, err)
		values, err := valuesOf[float64](col, "Float64")
		require.NoError(t, err)
		require.Equal(t, []float64{0, -1.5, 3.14159265}, values)

		out := chbin.NewWriter(24)
		require.NoError(t, codec.EncodeColumn(node, out, col))
		require.Equal(t, w.Bytes(), out.Bytes())
	})
}

// TestDecimalRescalesOnScaleMismatch exercises the banker's-rounding
// downscale path: a stored scale of 5 encoded against a column type of
// scale 4 must round half-to-even at the dropped digit.
func TestDecimalRescalesOnScaleMismatch(t *testing.T) {
	codec := New(DefaultConfig())
	node := parseType(t, "Decimal(18,4)")

	// 1234.56785 at scale 5 rounds to 1234.5678 at scale 4 (half-to-even,
	// dropped digit 5 with an even preceding digit 8).
	d := Decimal{Unscaled: big.NewInt(123456785), Scale: 5}

	w := chbin.NewWriter(8)
	col := chcolumn.NewOwned(chcolumn.KindDecimal, []Decimal{d})
	require.NoError(t, codec.EncodeColumn(node, w, col))

	r := chbin.NewReader(w.Bytes())
	decoded, err := codec.DecodeColumn(node, r, 1)
	require.NoError(t, err)
	values, err := valuesOf[Decimal](decoded, "Decimal")
	require.NoError(t, err)
	require.Equal(t, "1234.5678", values[0].String())
}
