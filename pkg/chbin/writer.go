package chbin

import (
	"encoding/binary"
	"math"
	"math/big"
)

// Writer is a growable little-endian byte sink. Callers guarantee capacity
// is never a concern: the underlying slice grows as needed via append.
type Writer struct {
	buf []byte
}

// NewWriter creates a Writer with the given starting capacity hint.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// Bytes returns the accumulated buffer, borrowed.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Reset empties the buffer without releasing its backing array.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

func (w *Writer) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

func (w *Writer) WriteU8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) WriteI8(v int8) { w.WriteU8(uint8(v)) }

func (w *Writer) WriteU16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }

func (w *Writer) WriteU32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

func (w *Writer) WriteU64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) WriteI64(v int64) { w.WriteU64(uint64(v)) }

// WriteF32 writes v as IEEE-754 little-endian.
func (w *Writer) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }

// WriteF64 writes v as IEEE-754 little-endian.
func (w *Writer) WriteF64(v float64) { w.WriteU64(math.Float64bits(v)) }

// writeFixedLE appends v's magnitude as exactly size little-endian bytes,
// two's-complement if signed is true. It does not check that v fits: out of
// range, the high-order bytes are dropped and the result is not meaningful,
// so callers must range-check before calling (decimal overflow etc. are
// checked by their own callers, which return DecimalOverflow).
func writeFixedLE(dst []byte, v *big.Int, size int, signed bool) []byte {
	var mag *big.Int
	negative := signed && v.Sign() < 0
	if negative {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(size*8))
		mag = new(big.Int).Add(mod, v)
	} else {
		mag = new(big.Int).Set(v)
	}
	be := mag.Bytes()
	out := make([]byte, size)
	// be is big-endian, right-aligned; copy then reverse into LE.
	for i := 0; i < len(be) && i < size; i++ {
		out[i] = be[len(be)-1-i]
	}
	return append(dst, out...)
}

// WriteU128 writes v as 16 little-endian bytes (unsigned magnitude).
func (w *Writer) WriteU128(v *big.Int) { w.buf = writeFixedLE(w.buf, v, 16, false) }

// WriteI128 writes v as 16 little-endian bytes, two's-complement.
func (w *Writer) WriteI128(v *big.Int) { w.buf = writeFixedLE(w.buf, v, 16, true) }

// WriteU256 writes v as 32 little-endian bytes (unsigned magnitude).
func (w *Writer) WriteU256(v *big.Int) { w.buf = writeFixedLE(w.buf, v, 32, false) }

// WriteI256 writes v as 32 little-endian bytes, two's-complement.
func (w *Writer) WriteI256(v *big.Int) { w.buf = writeFixedLE(w.buf, v, 32, true) }

// WriteVarint appends the base-128 LE varint encoding of v.
func (w *Writer) WriteVarint(v uint64) {
	w.buf = AppendVarint(w.buf, v)
}

// WriteString appends a varint length prefix followed by s's UTF-8 bytes.
func (w *Writer) WriteString(s string) {
	w.WriteVarint(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteRaw appends b verbatim with no length prefix.
func (w *Writer) WriteRaw(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteDecimalAsInt128 writes an already-scaled decimal mantissa as a signed
// 128-bit little-endian two's-complement integer. It does not scale by
// 10^scale and does not range-check; callers pass the unscaled integer and
// pre-check fit with FitsSignedBits.
func (w *Writer) WriteDecimalAsInt128(unscaled *big.Int) {
	w.WriteI128(unscaled)
}

// WriteDecimalAsInt256 is the 256-bit counterpart of WriteDecimalAsInt128.
func (w *Writer) WriteDecimalAsInt256(unscaled *big.Int) {
	w.WriteI256(unscaled)
}

// FitsSignedBits reports whether v fits in a two's-complement integer of
// the given bit width.
func FitsSignedBits(v *big.Int, bits int) bool {
	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	neg := new(big.Int).Neg(limit)
	return v.Cmp(neg) >= 0 && v.Cmp(limit) < 0
}
