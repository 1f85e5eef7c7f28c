// Package chframe implements the compressed frame wrapper around one
// logical block (spec §4.4): a 128-bit content hash, a one-byte algorithm
// tag, and the declared frame/uncompressed sizes, in front of the
// compressed payload.
//
// Framing here mirrors the teacher's two-phase "peek a fixed header, then
// confirm the body is fully buffered before committing" read shape from
// internal/memorystore/checkpoint.go's streaming decode loop, generalized
// from a file-backed reader to chbin.Reader's borrowed-buffer/Mark-Reset
// discipline so a short read never loses already-buffered bytes.
package chframe

import (
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"

	"github.com/clickhouse-native-go/chcodec/internal/bufpool"
	"github.com/clickhouse-native-go/chcodec/internal/cityhash"
	"github.com/clickhouse-native-go/chcodec/pkg/chbin"
	"github.com/clickhouse-native-go/chcodec/pkg/cherr"
)

// Algorithm identifies a frame's compressor by its one-byte wire tag.
type Algorithm byte

const (
	// AlgoLZ4 is the wire tag for the fast-path compressor slot. No LZ4
	// binding exists anywhere in the example corpus (see DESIGN.md); this
	// tag is served by klauspost/compress/s2, a real, already-present
	// dependency, rather than true LZ4 framing.
	AlgoLZ4 Algorithm = 0x82
	// AlgoZstd is the wire tag for the Zstd compressor.
	AlgoZstd Algorithm = 0x90
)

func (a Algorithm) String() string {
	switch a {
	case AlgoLZ4:
		return "LZ4"
	case AlgoZstd:
		return "Zstd"
	default:
		return "Unknown"
	}
}

const (
	hashSize       = 16
	headerTailSize = 9 // algo(1) + frame_size(4) + uncompressed_size(4)
	headerSize     = hashSize + headerTailSize
	minFrameSize   = headerTailSize
)

var outPool = bufpool.NewBytePool(64 * 1024)

type compressor interface {
	compress(dst, src []byte) []byte
	decompress(dst, src []byte) ([]byte, error)
}

type s2Compressor struct{}

func (s2Compressor) compress(dst, src []byte) []byte { return s2.EncodeBetter(dst, src) }
func (s2Compressor) decompress(dst, src []byte) ([]byte, error) {
	return s2.Decode(dst, src)
}

type zstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstdCompressor() *zstdCompressor {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		panic(err) // construction with nil io.Writer never fails in practice
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
	return &zstdCompressor{enc: enc, dec: dec}
}

func (c *zstdCompressor) compress(dst, src []byte) []byte {
	return c.enc.EncodeAll(src, dst)
}

func (c *zstdCompressor) decompress(dst, src []byte) ([]byte, error) {
	return c.dec.DecodeAll(src, dst)
}

var compressors = map[Algorithm]compressor{
	AlgoLZ4:  s2Compressor{},
	AlgoZstd: newZstdCompressor(),
}

// Encode compresses payload under algo and returns a complete frame: the
// 128-bit content hash followed by the header and compressed body. The
// returned slice is rented from outPool; callers release it with
// ReleaseFrame once it has been drained into the sink.
func Encode(algo Algorithm, payload []byte) ([]byte, error) {
	c, ok := compressors[algo]
	if !ok {
		return nil, cherr.New(cherr.UnsupportedAlgorithm, "unknown compression algorithm %#x", byte(algo))
	}
	bodyCap := len(payload) + len(payload)/2 + 64
	body := c.compress(outPool.Get(bodyCap), payload)

	frameSize := headerTailSize + len(body)
	out := outPool.Get(hashSize + frameSize)
	out = out[:hashSize] // placeholder for the hash, filled in below
	out = append(out, byte(algo))
	out = appendU32LE(out, uint32(frameSize))
	out = appendU32LE(out, uint32(len(payload)))
	out = append(out, body...)

	sum := cityhash.Sum128Bytes(out[hashSize:])
	copy(out[0:hashSize], sum[:])
	return out, nil
}

// ReleaseFrame returns a frame buffer obtained from Encode to its pool.
func ReleaseFrame(frame []byte) { outPool.Put(frame) }

// TryDecode attempts to decode one frame from r. On success it returns the
// decompressed payload and advances r past the frame. If r does not yet
// hold a complete frame, it returns a NeedMoreData error and leaves r's
// position unchanged so the caller can retry once more bytes arrive.
// Checksum and UnsupportedAlgorithm/CorruptFrame failures poison the
// stream (spec §7): the caller must not retry past those.
func TryDecode(r *chbin.Reader) ([]byte, error) {
	mark := r.Mark()
	header, ok := r.TryGetContiguous(headerSize)
	if !ok {
		r.Reset(mark)
		return nil, cherr.New(cherr.NeedMoreData, "frame header needs %d bytes, have %d", headerSize, r.Remaining())
	}

	algo := Algorithm(header[hashSize])
	frameSizeField := readU32LE(header[hashSize+1 : hashSize+5])
	uncompressedSize := readU32LE(header[hashSize+5 : hashSize+9])

	if frameSizeField < minFrameSize {
		r.Reset(mark)
		return nil, cherr.New(cherr.CorruptFrame, "frame_size field %d is smaller than the %d-byte header tail", frameSizeField, minFrameSize)
	}

	bodyLen := int(frameSizeField) - headerTailSize
	body, ok := r.TryGetContiguous(bodyLen)
	if !ok {
		haveBody := r.Remaining()
		r.Reset(mark)
		return nil, cherr.New(cherr.NeedMoreData, "frame body needs %d bytes, have %d", bodyLen, haveBody)
	}

	// The hash covers the full frame_size field worth of bytes: the 9-byte
	// tail and the compressed body (spec §4.4 step 4), not just the tail —
	// otherwise a flipped bit in body would never be caught.
	hashed := outPool.Get(headerTailSize + len(body))
	hashed = append(hashed, header[hashSize:]...)
	hashed = append(hashed, body...)
	gotSum := cityhash.Sum128Bytes(hashed)
	outPool.Put(hashed)
	if !hashEqual(gotSum, header[0:hashSize]) {
		return nil, cherr.New(cherr.Checksum, "frame checksum mismatch")
	}

	c, ok := compressors[algo]
	if !ok {
		return nil, cherr.New(cherr.UnsupportedAlgorithm, "unknown compression algorithm %#x", byte(algo))
	}

	payload, err := c.decompress(make([]byte, 0, uncompressedSize), body)
	if err != nil {
		return nil, cherr.Wrap(cherr.CorruptFrame, err, "decompression failed")
	}
	if uint32(len(payload)) != uncompressedSize {
		return nil, cherr.New(cherr.CorruptFrame, "decompressed to %d bytes, header declared %d", len(payload), uncompressedSize)
	}
	return payload, nil
}

func hashEqual(sum [16]byte, want []byte) bool {
	for i := range sum {
		if sum[i] != want[i] {
			return false
		}
	}
	return true
}

func appendU32LE(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func readU32LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
