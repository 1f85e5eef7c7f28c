package chcodec

import (
	"strconv"
	"strings"

	"github.com/clickhouse-native-go/chcodec/internal/bufpool"
	"github.com/clickhouse-native-go/chcodec/internal/intern"
	"github.com/clickhouse-native-go/chcodec/pkg/chbin"
	"github.com/clickhouse-native-go/chcodec/pkg/chcolumn"
	"github.com/clickhouse-native-go/chcodec/pkg/cherr"
	"github.com/clickhouse-native-go/chcodec/pkg/chtype"
)

var stringPool = bufpool.NewSlicePool[string](4096)

func init() {
	register("String", decodeString, encodeString, skipString)
	register("FixedString", decodeFixedString, encodeFixedString, skipFixedString)
	register("JSON", decodeJSON, encodeJSON, skipJSON)
}

// decodeString reads row_count varint-length-prefixed UTF-8 strings (spec
// §4.3). Columns with >= intern.MinRows rows have repeated values
// deduplicated through a per-decode intern.Table when c.cfg.InternStrings
// is set, matching the "thread-static intern dictionary, cleared at
// column-decode entry" design note adapted to a per-call table (the
// internal/intern package doc explains the substitution).
func decodeString(c *Codec, _ *chtype.Node, r *chbin.Reader, rowCount int) (chcolumn.Column, error) {
	values := stringPool.Get(rowCount)
	var table *intern.Table
	if c.cfg.InternStrings && intern.ShouldIntern(rowCount) {
		table = intern.New()
	}
	for i := 0; i < rowCount; i++ {
		s, ok := r.TryReadString()
		if !ok {
			return nil, cherr.New(cherr.Truncated, "String: row %d/%d truncated, %d bytes remain", i, rowCount, r.Remaining())
		}
		if table != nil {
			s = table.Intern(s)
		}
		values = append(values, s)
	}
	return chcolumn.NewPooled(chcolumn.KindString, stringPool, values), nil
}

func encodeString(_ *Codec, _ *chtype.Node, w *chbin.Writer, col chcolumn.Column) error {
	values, err := valuesOf[string](col, "String")
	if err != nil {
		return err
	}
	for _, s := range values {
		w.WriteString(s)
	}
	return nil
}

func skipString(_ *Codec, _ *chtype.Node, r *chbin.Reader, rowCount int) (bool, error) {
	for i := 0; i < rowCount; i++ {
		n, ok := r.TryReadVarint()
		if !ok {
			return false, nil
		}
		if _, ok := r.TryGetContiguous(int(n)); !ok {
			return false, nil
		}
	}
	return true, nil
}

// decodeFixedString reads row_count fixed N-byte slots. Trailing NUL bytes
// are trimmed when surfaced as a Go string (spec §4.3: "trailing NUL-
// trimmed when converting to text").
func decodeFixedString(_ *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (chcolumn.Column, error) {
	width, err := fixedStringWidth(node)
	if err != nil {
		return nil, err
	}
	n := rowCount * width
	raw, ok := r.TryGetContiguous(n)
	if !ok {
		return nil, cherr.New(cherr.Truncated, "FixedString(%d): need %d bytes for %d rows, have %d", width, n, rowCount, r.Remaining())
	}
	values := stringPool.Get(rowCount)
	for i := 0; i < rowCount; i++ {
		chunk := raw[i*width : i*width+width]
		values = append(values, strings.TrimRight(string(chunk), "\x00"))
	}
	return chcolumn.NewPooled(chcolumn.KindString, stringPool, values), nil
}

func encodeFixedString(_ *Codec, node *chtype.Node, w *chbin.Writer, col chcolumn.Column) error {
	width, err := fixedStringWidth(node)
	if err != nil {
		return err
	}
	values, err := valuesOf[string](col, "FixedString")
	if err != nil {
		return err
	}
	for _, s := range values {
		if len(s) > width {
			return cherr.New(cherr.MalformedType, "FixedString(%d): value %q exceeds width", width, s)
		}
		padded := make([]byte, width)
		copy(padded, s)
		w.WriteRaw(padded)
	}
	return nil
}

func skipFixedString(_ *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (bool, error) {
	width, err := fixedStringWidth(node)
	if err != nil {
		return false, err
	}
	_, ok := r.TryGetContiguous(rowCount * width)
	return ok, nil
}

func fixedStringWidth(node *chtype.Node) (int, error) {
	if len(node.Parameters) != 1 {
		return 0, typeMismatch(node, "FixedString requires exactly one length parameter")
	}
	n, err := strconv.Atoi(node.Parameters[0])
	if err != nil || n <= 0 {
		return 0, typeMismatch(node, "invalid FixedString length %q", node.Parameters[0])
	}
	return n, nil
}

// --- JSON: varint version, then (version 1 only) row_count length-
// prefixed UTF-8 JSON strings. Versions 0 and 3 are rejected per spec
// §4.3; the writer always emits version 1. ---

const jsonSupportedVersion = 1

func decodeJSON(_ *Codec, _ *chtype.Node, r *chbin.Reader, rowCount int) (chcolumn.Column, error) {
	version, ok := r.TryReadVarint()
	if !ok {
		return nil, cherr.New(cherr.Truncated, "JSON: missing version varint")
	}
	if version != jsonSupportedVersion {
		return nil, cherr.New(cherr.UnsupportedJSONFormat, "JSON version %d is not supported (only version 1)", version)
	}
	values := stringPool.Get(rowCount)
	for i := 0; i < rowCount; i++ {
		s, ok := r.TryReadString()
		if !ok {
			return nil, cherr.New(cherr.Truncated, "JSON: row %d/%d truncated", i, rowCount)
		}
		values = append(values, s)
	}
	return chcolumn.NewPooled(chcolumn.KindString, stringPool, values), nil
}

func encodeJSON(_ *Codec, _ *chtype.Node, w *chbin.Writer, col chcolumn.Column) error {
	values, err := valuesOf[string](col, "JSON")
	if err != nil {
		return err
	}
	w.WriteVarint(jsonSupportedVersion)
	for _, s := range values {
		w.WriteString(s)
	}
	return nil
}

func skipJSON(_ *Codec, _ *chtype.Node, r *chbin.Reader, rowCount int) (bool, error) {
	version, ok := r.TryReadVarint()
	if !ok {
		return false, nil
	}
	if version != jsonSupportedVersion {
		// An unsupported version is a hard failure, not a short read: no
		// amount of additional buffered data changes the outcome, so this
		// must not be folded into the "need more data, retry" path (spec §7).
		return false, cherr.New(cherr.UnsupportedJSONFormat, "JSON version %d is not supported (only version 1)", version)
	}
	return skipString(nil, nil, r, rowCount)
}
