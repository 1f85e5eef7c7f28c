package chcodec

import (
	"encoding/binary"
	"math"
	"math/big"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/clickhouse-native-go/chcodec/internal/bufpool"
	"github.com/clickhouse-native-go/chcodec/internal/chlog"
	"github.com/clickhouse-native-go/chcodec/pkg/chbin"
	"github.com/clickhouse-native-go/chcodec/pkg/chcolumn"
	"github.com/clickhouse-native-go/chcodec/pkg/cherr"
	"github.com/clickhouse-native-go/chcodec/pkg/chtype"
	"github.com/google/uuid"
)

// --- fixed-width integers and floats: row_count x width contiguous LE
// bytes, bulk-copied via TryGetContiguous per spec §4.3. ---

func decodeFixed[T any](width int, kind chcolumn.ElementKind, pool *bufpool.SlicePool[T], convert func([]byte) T) decodeFunc {
	return func(_ *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (chcolumn.Column, error) {
		n := rowCount * width
		raw, ok := r.TryGetContiguous(n)
		if !ok {
			return nil, cherr.New(cherr.Truncated, "%s: need %d bytes for %d rows, have %d", node.BaseName, n, rowCount, r.Remaining())
		}
		values := pool.Get(rowCount)
		for i := 0; i < rowCount; i++ {
			values = append(values, convert(raw[i*width:(i+1)*width]))
		}
		return chcolumn.NewPooled(kind, pool, values), nil
	}
}

func encodeFixed[T any](typeName string, write func(w *chbin.Writer, v T)) encodeFunc {
	return func(_ *Codec, _ *chtype.Node, w *chbin.Writer, col chcolumn.Column) error {
		values, err := valuesOf[T](col, typeName)
		if err != nil {
			return err
		}
		for _, v := range values {
			write(w, v)
		}
		return nil
	}
}

var (
	int8Pool    = bufpool.NewSlicePool[int8](4096)
	uint8Pool   = bufpool.NewSlicePool[uint8](4096)
	int16Pool   = bufpool.NewSlicePool[int16](4096)
	uint16Pool  = bufpool.NewSlicePool[uint16](4096)
	int32Pool   = bufpool.NewSlicePool[int32](4096)
	uint32Pool  = bufpool.NewSlicePool[uint32](4096)
	int64Pool   = bufpool.NewSlicePool[int64](4096)
	uint64Pool  = bufpool.NewSlicePool[uint64](4096)
	float32Pool = bufpool.NewSlicePool[float32](4096)
	float64Pool = bufpool.NewSlicePool[float64](4096)
	boolPool    = bufpool.NewSlicePool[bool](4096)
	timePool    = bufpool.NewSlicePool[time.Time](4096)
	uuidPool    = bufpool.NewSlicePool[uuid.UUID](4096)
	ipPool      = bufpool.NewSlicePool[net.IP](4096)
	decimalPool = bufpool.NewSlicePool[Decimal](4096)
)

func init() {
	registerScalar("Int8", 1,
		decodeFixed(1, chcolumn.KindInt8, int8Pool, func(b []byte) int8 { return int8(b[0]) }),
		encodeFixed[int8]("Int8", func(w *chbin.Writer, v int8) { w.WriteI8(v) }))
	registerScalar("UInt8", 1,
		decodeFixed(1, chcolumn.KindUint8, uint8Pool, func(b []byte) uint8 { return b[0] }),
		encodeFixed[uint8]("UInt8", func(w *chbin.Writer, v uint8) { w.WriteU8(v) }))

	registerScalar("Int16", 2,
		decodeFixed(2, chcolumn.KindInt16, int16Pool, func(b []byte) int16 { return int16(binary.LittleEndian.Uint16(b)) }),
		encodeFixed[int16]("Int16", func(w *chbin.Writer, v int16) { w.WriteI16(v) }))
	registerScalar("UInt16", 2,
		decodeFixed(2, chcolumn.KindUint16, uint16Pool, func(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }),
		encodeFixed[uint16]("UInt16", func(w *chbin.Writer, v uint16) { w.WriteU16(v) }))

	registerScalar("Int32", 4,
		decodeFixed(4, chcolumn.KindInt32, int32Pool, func(b []byte) int32 { return int32(binary.LittleEndian.Uint32(b)) }),
		encodeFixed[int32]("Int32", func(w *chbin.Writer, v int32) { w.WriteI32(v) }))
	registerScalar("UInt32", 4,
		decodeFixed(4, chcolumn.KindUint32, uint32Pool, func(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }),
		encodeFixed[uint32]("UInt32", func(w *chbin.Writer, v uint32) { w.WriteU32(v) }))

	registerScalar("Int64", 8,
		decodeFixed(8, chcolumn.KindInt64, int64Pool, func(b []byte) int64 { return int64(binary.LittleEndian.Uint64(b)) }),
		encodeFixed[int64]("Int64", func(w *chbin.Writer, v int64) { w.WriteI64(v) }))
	registerScalar("UInt64", 8,
		decodeFixed(8, chcolumn.KindUint64, uint64Pool, func(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }),
		encodeFixed[uint64]("UInt64", func(w *chbin.Writer, v uint64) { w.WriteU64(v) }))

	registerScalar("Float32", 4,
		decodeFixed(4, chcolumn.KindFloat32, float32Pool, func(b []byte) float32 {
			return math.Float32frombits(binary.LittleEndian.Uint32(b))
		}),
		encodeFixed[float32]("Float32", func(w *chbin.Writer, v float32) { w.WriteF32(v) }))
	registerScalar("Float64", 8,
		decodeFixed(8, chcolumn.KindFloat64, float64Pool, func(b []byte) float64 {
			return math.Float64frombits(binary.LittleEndian.Uint64(b))
		}),
		encodeFixed[float64]("Float64", func(w *chbin.Writer, v float64) { w.WriteF64(v) }))

	registerScalar("Bool", 1,
		decodeFixed(1, chcolumn.KindBool, boolPool, func(b []byte) bool { return b[0] != 0 }),
		encodeFixed[bool]("Bool", func(w *chbin.Writer, v bool) {
			if v {
				w.WriteU8(1)
			} else {
				w.WriteU8(0)
			}
		}))

	registerScalar("Date", 2,
		decodeFixed(2, chcolumn.KindTime, timePool, func(b []byte) time.Time {
			days := binary.LittleEndian.Uint16(b)
			return epochUTC.AddDate(0, 0, int(days))
		}),
		encodeFixed[time.Time]("Date", func(w *chbin.Writer, v time.Time) {
			days := int64(v.UTC().Sub(epochUTC).Hours() / 24)
			w.WriteU16(uint16(days))
		}))
	registerScalar("Date32", 4,
		decodeFixed(4, chcolumn.KindTime, timePool, func(b []byte) time.Time {
			days := int32(binary.LittleEndian.Uint32(b))
			return epochUTC.AddDate(0, 0, int(days))
		}),
		encodeFixed[time.Time]("Date32", func(w *chbin.Writer, v time.Time) {
			days := int64(v.UTC().Sub(epochUTC).Hours() / 24)
			w.WriteI32(int32(days))
		}))
	registerScalar("DateTime", 4,
		decodeFixed(4, chcolumn.KindTime, timePool, func(b []byte) time.Time {
			secs := binary.LittleEndian.Uint32(b)
			return time.Unix(int64(secs), 0).UTC()
		}),
		encodeFixed[time.Time]("DateTime", func(w *chbin.Writer, v time.Time) { w.WriteU32(uint32(v.UTC().Unix())) }))

	register("DateTime64", decodeDateTime64, encodeDateTime64, skipWidth(8))

	register("UUID", decodeUUID, encodeUUID, skipWidth(16))
	register("IPv4", decodeIPv4, encodeIPv4, skipWidth(4))
	register("IPv6", decodeIPv6, encodeIPv6, skipWidth(16))

	registerScalar("Enum8", 1,
		decodeFixed(1, chcolumn.KindInt8, int8Pool, func(b []byte) int8 { return int8(b[0]) }),
		encodeFixed[int8]("Enum8", func(w *chbin.Writer, v int8) { w.WriteI8(v) }))
	registerScalar("Enum16", 2,
		decodeFixed(2, chcolumn.KindInt16, int16Pool, func(b []byte) int16 { return int16(binary.LittleEndian.Uint16(b)) }),
		encodeFixed[int16]("Enum16", func(w *chbin.Writer, v int16) { w.WriteI16(v) }))

	register("Decimal", decodeDecimal, encodeDecimal, skipDecimal)
	register("Decimal32", decodeDecimal, encodeDecimal, skipDecimal)
	register("Decimal64", decodeDecimal, encodeDecimal, skipDecimal)
	register("Decimal128", decodeDecimal, encodeDecimal, skipDecimal)
	register("Decimal256", decodeDecimal, encodeDecimal, skipDecimal)
}

var epochUTC = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

func skipWidth(width int) skipFunc {
	return func(_ *Codec, _ *chtype.Node, r *chbin.Reader, rowCount int) (bool, error) {
		_, ok := r.TryGetContiguous(rowCount * width)
		return ok, nil
	}
}

// --- DateTime64(p[,tz]) ---

func decodeDateTime64(_ *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (chcolumn.Column, error) {
	precision, loc, err := dateTime64Params(node)
	if err != nil {
		return nil, err
	}
	n := rowCount * 8
	raw, ok := r.TryGetContiguous(n)
	if !ok {
		return nil, cherr.New(cherr.Truncated, "DateTime64: need %d bytes for %d rows, have %d", n, rowCount, r.Remaining())
	}
	scale := pow10Int64(precision)
	values := timePool.Get(rowCount)
	for i := 0; i < rowCount; i++ {
		raw64 := int64(binary.LittleEndian.Uint64(raw[i*8 : i*8+8]))
		whole := raw64 / scale
		frac := raw64 % scale
		var nanos int64
		if precision <= 9 {
			nanos = frac * pow10Int64(9-precision)
		} else {
			nanos = frac / pow10Int64(precision-9)
		}
		values = append(values, time.Unix(whole, nanos).In(loc))
	}
	return chcolumn.NewPooled(chcolumn.KindTime, timePool, values), nil
}

func encodeDateTime64(_ *Codec, node *chtype.Node, w *chbin.Writer, col chcolumn.Column) error {
	precision, _, err := dateTime64Params(node)
	if err != nil {
		return err
	}
	values, err := valuesOf[time.Time](col, "DateTime64")
	if err != nil {
		return err
	}
	scale := pow10Int64(precision)
	for _, v := range values {
		u := v.UTC()
		var fracNanos int64
		if precision <= 9 {
			fracNanos = int64(u.Nanosecond()) / pow10Int64(9-precision)
		} else {
			fracNanos = int64(u.Nanosecond()) * pow10Int64(precision-9)
		}
		raw64 := u.Unix()*scale + fracNanos
		w.WriteI64(raw64)
	}
	return nil
}

func dateTime64Params(node *chtype.Node) (precision int, loc *time.Location, err error) {
	if len(node.Parameters) == 0 {
		return 0, nil, typeMismatch(node, "DateTime64 requires a precision parameter")
	}
	precision, convErr := strconv.Atoi(node.Parameters[0])
	if convErr != nil {
		return 0, nil, typeMismatch(node, "invalid precision %q", node.Parameters[0])
	}
	loc = time.UTC
	if len(node.Parameters) >= 2 {
		tzName := strings.Trim(node.Parameters[1], "'")
		if l, lerr := time.LoadLocation(tzName); lerr == nil {
			loc = l
		} else {
			chlog.Warnf("chcodec: unknown DateTime64 timezone %q, decoding as UTC", tzName)
		}
	}
	return precision, loc, nil
}

func pow10Int64(n int) int64 {
	v := int64(1)
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

// --- UUID: sixteen wire bytes, two 8-byte halves each reversed in place,
// halves kept in their canonical order (scenario S1's byte layout). ---

func decodeUUID(_ *Codec, _ *chtype.Node, r *chbin.Reader, rowCount int) (chcolumn.Column, error) {
	n := rowCount * 16
	raw, ok := r.TryGetContiguous(n)
	if !ok {
		return nil, cherr.New(cherr.Truncated, "UUID: need %d bytes for %d rows, have %d", n, rowCount, r.Remaining())
	}
	values := uuidPool.Get(rowCount)
	for i := 0; i < rowCount; i++ {
		values = append(values, uuidFromWire(raw[i*16:i*16+16]))
	}
	return chcolumn.NewPooled(chcolumn.KindUUID, uuidPool, values), nil
}

func encodeUUID(_ *Codec, _ *chtype.Node, w *chbin.Writer, col chcolumn.Column) error {
	values, err := valuesOf[uuid.UUID](col, "UUID")
	if err != nil {
		return err
	}
	for _, v := range values {
		w.WriteRaw(uuidToWire(v))
	}
	return nil
}

// uuidFromWire undoes the wire transposition: wire = reverse(bytes[0:8])
// || reverse(bytes[8:16]).
func uuidFromWire(wire []byte) uuid.UUID {
	var out uuid.UUID
	for i := 0; i < 8; i++ {
		out[i] = wire[7-i]
		out[8+i] = wire[15-i]
	}
	return out
}

func uuidToWire(id uuid.UUID) []byte {
	out := make([]byte, 16)
	for i := 0; i < 8; i++ {
		out[7-i] = id[i]
		out[15-i] = id[8+i]
	}
	return out
}

// --- IPv4: four wire bytes, little-endian (reversed vs. network order). ---

func decodeIPv4(_ *Codec, _ *chtype.Node, r *chbin.Reader, rowCount int) (chcolumn.Column, error) {
	n := rowCount * 4
	raw, ok := r.TryGetContiguous(n)
	if !ok {
		return nil, cherr.New(cherr.Truncated, "IPv4: need %d bytes for %d rows, have %d", n, rowCount, r.Remaining())
	}
	values := ipPool.Get(rowCount)
	for i := 0; i < rowCount; i++ {
		b := raw[i*4 : i*4+4]
		values = append(values, net.IPv4(b[3], b[2], b[1], b[0]))
	}
	return chcolumn.NewPooled(chcolumn.KindBytes, ipPool, values), nil
}

func encodeIPv4(_ *Codec, _ *chtype.Node, w *chbin.Writer, col chcolumn.Column) error {
	values, err := valuesOf[net.IP](col, "IPv4")
	if err != nil {
		return err
	}
	for _, v := range values {
		v4 := v.To4()
		w.WriteRaw([]byte{v4[3], v4[2], v4[1], v4[0]})
	}
	return nil
}

// --- IPv6: sixteen wire bytes in network order (no transposition). ---

func decodeIPv6(_ *Codec, _ *chtype.Node, r *chbin.Reader, rowCount int) (chcolumn.Column, error) {
	n := rowCount * 16
	raw, ok := r.TryGetContiguous(n)
	if !ok {
		return nil, cherr.New(cherr.Truncated, "IPv6: need %d bytes for %d rows, have %d", n, rowCount, r.Remaining())
	}
	values := ipPool.Get(rowCount)
	for i := 0; i < rowCount; i++ {
		b := make([]byte, 16)
		copy(b, raw[i*16:i*16+16])
		values = append(values, net.IP(b))
	}
	return chcolumn.NewPooled(chcolumn.KindBytes, ipPool, values), nil
}

func encodeIPv6(_ *Codec, _ *chtype.Node, w *chbin.Writer, col chcolumn.Column) error {
	values, err := valuesOf[net.IP](col, "IPv6")
	if err != nil {
		return err
	}
	for _, v := range values {
		w.WriteRaw(v.To16())
	}
	return nil
}

// --- Decimal / Decimal32 / Decimal64 / Decimal128 / Decimal256 ---

// Decimal is the decoded representation of any Decimal(P,S) value: the
// full-precision unscaled mantissa plus its scale, per spec §4.3 ("a
// dedicated arbitrary-precision decimal type preserves full mantissa for
// P>28").
type Decimal struct {
	Unscaled *big.Int
	Scale    int
}

// Float64 converts to a float64, accepting the precision loss that implies.
func (d Decimal) Float64() float64 {
	f := new(big.Float).SetInt(d.Unscaled)
	scale := new(big.Float).SetInt(pow10Big(d.Scale))
	f.Quo(f, scale)
	v, _ := f.Float64()
	return v
}

func (d Decimal) String() string {
	s := d.Unscaled.String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for len(s) <= d.Scale {
		s = "0" + s
	}
	if d.Scale > 0 {
		s = s[:len(s)-d.Scale] + "." + s[len(s)-d.Scale:]
	}
	if neg {
		s = "-" + s
	}
	return s
}

func pow10Big(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func decimalShape(node *chtype.Node) (width int, scale int, err error) {
	switch node.BaseName {
	case "Decimal":
		if len(node.Parameters) != 2 {
			return 0, 0, typeMismatch(node, "Decimal requires (precision, scale)")
		}
		precision, perr := strconv.Atoi(node.Parameters[0])
		if perr != nil {
			return 0, 0, typeMismatch(node, "invalid precision %q", node.Parameters[0])
		}
		s, serr := strconv.Atoi(node.Parameters[1])
		if serr != nil {
			return 0, 0, typeMismatch(node, "invalid scale %q", node.Parameters[1])
		}
		switch {
		case precision <= 9:
			width = 4
		case precision <= 18:
			width = 8
		case precision <= 38:
			width = 16
		case precision <= 76:
			width = 32
		default:
			return 0, 0, typeMismatch(node, "precision %d exceeds Decimal256 range", precision)
		}
		return width, s, nil
	case "Decimal32":
		width = 4
	case "Decimal64":
		width = 8
	case "Decimal128":
		width = 16
	case "Decimal256":
		width = 32
	default:
		return 0, 0, typeMismatch(node, "not a Decimal type")
	}
	if len(node.Parameters) != 1 {
		return 0, 0, typeMismatch(node, "%s requires a scale parameter", node.BaseName)
	}
	s, serr := strconv.Atoi(node.Parameters[0])
	if serr != nil {
		return 0, 0, typeMismatch(node, "invalid scale %q", node.Parameters[0])
	}
	return width, s, nil
}

func decodeDecimal(_ *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (chcolumn.Column, error) {
	width, scale, err := decimalShape(node)
	if err != nil {
		return nil, err
	}
	n := rowCount * width
	raw, ok := r.TryGetContiguous(n)
	if !ok {
		return nil, cherr.New(cherr.Truncated, "%s: need %d bytes for %d rows, have %d", node.BaseName, n, rowCount, r.Remaining())
	}
	values := decimalPool.Get(rowCount)
	for i := 0; i < rowCount; i++ {
		chunk := raw[i*width : i*width+width]
		values = append(values, Decimal{Unscaled: leToSignedBig(chunk), Scale: scale})
	}
	return chcolumn.NewPooled(chcolumn.KindDecimal, decimalPool, values), nil
}

func encodeDecimal(_ *Codec, node *chtype.Node, w *chbin.Writer, col chcolumn.Column) error {
	width, scale, err := decimalShape(node)
	if err != nil {
		return err
	}
	values, err := valuesOf[Decimal](col, node.BaseName)
	if err != nil {
		return err
	}
	for _, d := range values {
		unscaled := d.Unscaled
		if d.Scale != scale {
			unscaled = rescale(d.Unscaled, d.Scale, scale)
		}
		bits := width * 8
		if !chbin.FitsSignedBits(unscaled, bits) {
			return cherr.New(cherr.DecimalOverflow, "%s: value %s does not fit in %d-bit storage", node.BaseName, unscaled.String(), bits)
		}
		switch width {
		case 4:
			w.WriteI32(int32(unscaled.Int64()))
		case 8:
			w.WriteI64(unscaled.Int64())
		case 16:
			w.WriteI128(unscaled)
		case 32:
			w.WriteI256(unscaled)
		}
	}
	return nil
}

// rescale converts an unscaled mantissa from fromScale to toScale, using
// banker's rounding on downscale per spec §4.3.
func rescale(unscaled *big.Int, fromScale, toScale int) *big.Int {
	if toScale >= fromScale {
		return new(big.Int).Mul(unscaled, pow10Big(toScale-fromScale))
	}
	divisor := pow10Big(fromScale - toScale)
	return roundHalfToEven(unscaled, divisor)
}

func roundHalfToEven(numerator, divisor *big.Int) *big.Int {
	quo, rem := new(big.Int).QuoRem(numerator, divisor, new(big.Int))
	twiceRem := new(big.Int).Mul(rem, big.NewInt(2))
	twiceRem.Abs(twiceRem)
	cmp := twiceRem.Cmp(divisor)
	if cmp < 0 {
		return quo
	}
	if cmp > 0 {
		return bumpAwayFromZero(quo, numerator.Sign())
	}
	// Exactly half: round to even.
	if quo.Bit(0) == 0 {
		return quo
	}
	return bumpAwayFromZero(quo, numerator.Sign())
}

func bumpAwayFromZero(v *big.Int, sign int) *big.Int {
	if sign < 0 {
		return new(big.Int).Sub(v, big.NewInt(1))
	}
	return new(big.Int).Add(v, big.NewInt(1))
}

// leToSignedBig interprets b as a little-endian two's-complement integer.
func leToSignedBig(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i, v := range b {
		be[len(b)-1-i] = v
	}
	u := new(big.Int).SetBytes(be)
	bits := len(b) * 8
	signBit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	if u.Cmp(signBit) >= 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(bits))
		u.Sub(u, mod)
	}
	return u
}

func skipDecimal(_ *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (bool, error) {
	width, _, err := decimalShape(node)
	if err != nil {
		return false, err
	}
	_, ok := r.TryGetContiguous(rowCount * width)
	return ok, nil
}
