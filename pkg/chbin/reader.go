package chbin

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"github.com/clickhouse-native-go/chcodec/pkg/cherr"
)

// Reader is a borrowed, transient cursor over a contiguous byte buffer. It
// never owns the bytes it reads; the caller decides when to grow, feed, or
// discard the underlying slice. A Reader is not safe for concurrent use.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps data for reading. data is borrowed, not copied.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

// Feed appends more bytes to the buffer, used by streaming callers that
// received a NeedMoreData result and have new bytes to offer.
func (r *Reader) Feed(data []byte) {
	r.buf = append(r.buf, data...)
}

// Position returns the current read offset.
func (r *Reader) Position() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Mark returns a checkpoint that Reset can later rewind to. Used by the
// block assembler's scan-then-parse retry loop: a NeedMoreData scan must
// not lose previously buffered bytes, so it rewinds to the mark and waits.
func (r *Reader) Mark() int { return r.pos }

// Reset rewinds the read position to a previously obtained Mark.
func (r *Reader) Reset(mark int) { r.pos = mark }

// Compact drops already-consumed bytes from the front of the buffer. Safe
// to call between blocks; never call mid-decode.
func (r *Reader) Compact() {
	if r.pos == 0 {
		return
	}
	n := copy(r.buf, r.buf[r.pos:])
	r.buf = r.buf[:n]
	r.pos = 0
}

// Bytes returns the unread suffix of the buffer, borrowed.
func (r *Reader) Bytes() []byte { return r.buf[r.pos:] }

func (r *Reader) truncated(format string, args ...interface{}) error {
	return &cherr.Error{Kind: cherr.Truncated, Offset: r.pos, Message: fmt.Sprintf(format, args...)}
}

// --- try_* family: never fail, report ok=false on underrun without
// advancing the position, so the caller can retry once more bytes arrive. ---

func (r *Reader) TryReadByte() (byte, bool) {
	if r.pos >= len(r.buf) {
		return 0, false
	}
	b := r.buf[r.pos]
	r.pos++
	return b, true
}

func (r *Reader) tryFixed(n int) ([]byte, bool) {
	if r.Remaining() < n {
		return nil, false
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, true
}

func (r *Reader) TryReadU8() (uint8, bool) {
	b, ok := r.tryFixed(1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

func (r *Reader) TryReadI8() (int8, bool) {
	v, ok := r.TryReadU8()
	return int8(v), ok
}

func (r *Reader) TryReadU16() (uint16, bool) {
	b, ok := r.tryFixed(2)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b), true
}

func (r *Reader) TryReadI16() (int16, bool) {
	v, ok := r.TryReadU16()
	return int16(v), ok
}

func (r *Reader) TryReadU32() (uint32, bool) {
	b, ok := r.tryFixed(4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b), true
}

func (r *Reader) TryReadI32() (int32, bool) {
	v, ok := r.TryReadU32()
	return int32(v), ok
}

func (r *Reader) TryReadU64() (uint64, bool) {
	b, ok := r.tryFixed(8)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b), true
}

func (r *Reader) TryReadI64() (int64, bool) {
	v, ok := r.TryReadU64()
	return int64(v), ok
}

// TryReadU128 reads 16 little-endian bytes into a big.Int (always
// non-negative).
func (r *Reader) TryReadU128() (*big.Int, bool) {
	return r.tryReadUintN(16)
}

func (r *Reader) TryReadI128() (*big.Int, bool) {
	return r.tryReadIntN(16)
}

// TryReadU256 reads 32 little-endian bytes into a big.Int.
func (r *Reader) TryReadU256() (*big.Int, bool) {
	return r.tryReadUintN(32)
}

func (r *Reader) TryReadI256() (*big.Int, bool) {
	return r.tryReadIntN(32)
}

func (r *Reader) tryReadUintN(n int) (*big.Int, bool) {
	b, ok := r.tryFixed(n)
	if !ok {
		return nil, false
	}
	return leBytesToUint(b), true
}

func (r *Reader) tryReadIntN(n int) (*big.Int, bool) {
	b, ok := r.tryFixed(n)
	if !ok {
		return nil, false
	}
	return leBytesToInt(b), true
}

func (r *Reader) TryReadF32() (float32, bool) {
	v, ok := r.TryReadU32()
	if !ok {
		return 0, false
	}
	return math.Float32frombits(v), true
}

func (r *Reader) TryReadF64() (float64, bool) {
	v, ok := r.TryReadU64()
	if !ok {
		return 0, false
	}
	return math.Float64frombits(v), true
}

// TryReadVarint reads a base-128 LE varint without failing hard. ok is false
// if the buffer ends before a terminating byte (MSB clear) is seen; in that
// case the position is left unchanged so a later retry re-scans cleanly.
func (r *Reader) TryReadVarint() (uint64, bool) {
	start := r.pos
	var v uint64
	var shift uint
	for i := 0; i < maxVarintBytes; i++ {
		b, ok := r.TryReadByte()
		if !ok {
			r.pos = start
			return 0, false
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, true
		}
		shift += 7
	}
	r.pos = start
	return 0, false
}

// TryReadString reads a varint length prefix followed by that many UTF-8
// bytes. Position is left unchanged on any underrun.
func (r *Reader) TryReadString() (string, bool) {
	start := r.pos
	n, ok := r.TryReadVarint()
	if !ok {
		return "", false
	}
	b, ok := r.tryFixed(int(n))
	if !ok {
		r.pos = start
		return "", false
	}
	return string(b), true
}

// TryGetContiguous returns a borrowed slice of exactly n unread bytes
// without copying, letting array decoders memcpy whole columns at once.
func (r *Reader) TryGetContiguous(n int) ([]byte, bool) {
	return r.tryFixed(n)
}

// --- strict family: fail hard (Truncated) on underrun. ---

func (r *Reader) ReadU8() (uint8, error) {
	v, ok := r.TryReadU8()
	if !ok {
		return 0, r.truncated("need 1 byte, have %d", r.Remaining())
	}
	return v, nil
}

func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

func (r *Reader) ReadU16() (uint16, error) {
	v, ok := r.TryReadU16()
	if !ok {
		return 0, r.truncated("need 2 bytes, have %d", r.Remaining())
	}
	return v, nil
}

func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *Reader) ReadU32() (uint32, error) {
	v, ok := r.TryReadU32()
	if !ok {
		return 0, r.truncated("need 4 bytes, have %d", r.Remaining())
	}
	return v, nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadU64() (uint64, error) {
	v, ok := r.TryReadU64()
	if !ok {
		return 0, r.truncated("need 8 bytes, have %d", r.Remaining())
	}
	return v, nil
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

func (r *Reader) ReadU128() (*big.Int, error) {
	v, ok := r.TryReadU128()
	if !ok {
		return nil, r.truncated("need 16 bytes, have %d", r.Remaining())
	}
	return v, nil
}

func (r *Reader) ReadI128() (*big.Int, error) {
	v, ok := r.TryReadI128()
	if !ok {
		return nil, r.truncated("need 16 bytes, have %d", r.Remaining())
	}
	return v, nil
}

func (r *Reader) ReadU256() (*big.Int, error) {
	v, ok := r.TryReadU256()
	if !ok {
		return nil, r.truncated("need 32 bytes, have %d", r.Remaining())
	}
	return v, nil
}

func (r *Reader) ReadI256() (*big.Int, error) {
	v, ok := r.TryReadI256()
	if !ok {
		return nil, r.truncated("need 32 bytes, have %d", r.Remaining())
	}
	return v, nil
}

func (r *Reader) ReadF32() (float32, error) {
	v, ok := r.TryReadF32()
	if !ok {
		return 0, r.truncated("need 4 bytes, have %d", r.Remaining())
	}
	return v, nil
}

func (r *Reader) ReadF64() (float64, error) {
	v, ok := r.TryReadF64()
	if !ok {
		return 0, r.truncated("need 8 bytes, have %d", r.Remaining())
	}
	return v, nil
}

func (r *Reader) ReadVarint() (uint64, error) {
	v, ok := r.TryReadVarint()
	if !ok {
		return 0, r.truncated("incomplete varint")
	}
	return v, nil
}

func (r *Reader) ReadString() (string, error) {
	v, ok := r.TryReadString()
	if !ok {
		return "", r.truncated("incomplete length-prefixed string")
	}
	return v, nil
}

func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, ok := r.tryFixed(n)
	if !ok {
		return nil, r.truncated("need %d bytes, have %d", n, r.Remaining())
	}
	return b, nil
}

// leBytesToUint interprets b (little-endian) as an unsigned magnitude.
func leBytesToUint(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i, v := range b {
		be[len(b)-1-i] = v
	}
	return new(big.Int).SetBytes(be)
}

// leBytesToInt interprets b (little-endian) as two's-complement signed.
func leBytesToInt(b []byte) *big.Int {
	u := leBytesToUint(b)
	bits := len(b) * 8
	signBit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	if u.Cmp(signBit) >= 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(bits))
		u.Sub(u, mod)
	}
	return u
}
