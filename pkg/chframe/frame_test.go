package chframe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clickhouse-native-go/chcodec/pkg/chbin"
	"github.com/clickhouse-native-go/chcodec/pkg/cherr"
)

func TestEncodeDecodeRoundTripS2(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog, repeated: the quick brown fox jumps over the lazy dog")

	frame, err := Encode(AlgoLZ4, payload)
	require.NoError(t, err)
	defer ReleaseFrame(frame)

	r := chbin.NewReader(frame)
	got, err := TryDecode(r)
	require.NoError(t, err)
	require.Equal(t, payload, got)
	require.Equal(t, 0, r.Remaining())
}

func TestEncodeDecodeRoundTripZstd(t *testing.T) {
	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i * 7)
	}

	frame, err := Encode(AlgoZstd, payload)
	require.NoError(t, err)
	defer ReleaseFrame(frame)

	r := chbin.NewReader(frame)
	got, err := TryDecode(r)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestTryDecodeNeedsMoreDataOnShortHeader(t *testing.T) {
	r := chbin.NewReader([]byte{1, 2, 3})
	_, err := TryDecode(r)
	require.Error(t, err)
	require.Equal(t, cherr.NeedMoreData, cherr.KindOf(err))
	require.Equal(t, 0, r.Position())
}

func TestTryDecodeNeedsMoreDataOnShortBody(t *testing.T) {
	payload := []byte("hello, frame")
	frame, err := Encode(AlgoLZ4, payload)
	require.NoError(t, err)
	defer ReleaseFrame(frame)

	r := chbin.NewReader(frame[:len(frame)-1])
	_, err = TryDecode(r)
	require.Error(t, err)
	require.Equal(t, cherr.NeedMoreData, cherr.KindOf(err))
	require.Equal(t, 0, r.Position())
}

func TestTryDecodeDetectsChecksumMismatch(t *testing.T) {
	payload := []byte("checksum me")
	frame, err := Encode(AlgoLZ4, payload)
	require.NoError(t, err)
	defer ReleaseFrame(frame)

	corrupted := append([]byte(nil), frame...)
	corrupted[0] ^= 0xFF

	r := chbin.NewReader(corrupted)
	_, err = TryDecode(r)
	require.Error(t, err)
	require.Equal(t, cherr.Checksum, cherr.KindOf(err))
}

func TestTryDecodeDetectsChecksumMismatchInBody(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog, repeated: the quick brown fox jumps over the lazy dog")
	frame, err := Encode(AlgoLZ4, payload)
	require.NoError(t, err)
	defer ReleaseFrame(frame)
	require.Greater(t, len(frame), headerSize, "body must be non-empty for this test to mean anything")

	corrupted := append([]byte(nil), frame...)
	corrupted[headerSize] ^= 0xFF // first byte of the compressed body

	r := chbin.NewReader(corrupted)
	_, err = TryDecode(r)
	require.Error(t, err)
	require.Equal(t, cherr.Checksum, cherr.KindOf(err))
}

func TestTryDecodeChecksumPrecedesAlgorithmLookup(t *testing.T) {
	payload := []byte("unsupported")
	frame, err := Encode(AlgoLZ4, payload)
	require.NoError(t, err)
	defer ReleaseFrame(frame)

	corrupted := append([]byte(nil), frame...)
	corrupted[16] = 0x01 // not a known algorithm tag; the checksum is left as is

	r := chbin.NewReader(corrupted)
	_, err = TryDecode(r)
	require.Error(t, err)
	// The tag byte is part of the hashed region, so mutating it without
	// recomputing the hash surfaces as Checksum before the algorithm is
	// ever looked up — exercise that ordering explicitly.
	require.Equal(t, cherr.Checksum, cherr.KindOf(err))
}

func TestEncodeRejectsUnknownAlgorithm(t *testing.T) {
	_, err := Encode(Algorithm(0xFF), []byte("x"))
	require.Error(t, err)
	require.Equal(t, cherr.UnsupportedAlgorithm, cherr.KindOf(err))
}
