// Package chcodec implements the per-type column codecs (spec §4.3) and
// their allocation-free skip-pass mirrors (spec §4.8), dispatched by the
// type grammar AST chtype parses. Each codec decodes a column's on-wire
// payload into a pkg/chcolumn typed column and encodes the reverse.
//
// The dispatch-by-parsed-AST shape is grounded on the teacher's
// internal/avro/avroStruct.go, which resolves a similarly nested schema
// description into per-field encode/decode behavior before touching bytes.
package chcodec

import (
	"fmt"

	"github.com/clickhouse-native-go/chcodec/internal/chlog"
	"github.com/clickhouse-native-go/chcodec/pkg/chbin"
	"github.com/clickhouse-native-go/chcodec/pkg/chcolumn"
	"github.com/clickhouse-native-go/chcodec/pkg/cherr"
	"github.com/clickhouse-native-go/chcodec/pkg/chtype"
)

// StringMaterialization selects how String columns are decoded.
type StringMaterialization int

const (
	// StringEager decodes every value into a Go string immediately.
	StringEager StringMaterialization = iota
	// StringLazy names an offset-into-backing-buffer representation. No
	// such representation is implemented: String columns decode exactly as
	// with StringEager when it is selected.
	StringLazy
)

// Config holds the field-level knobs this layer honors. It is constructed
// by field initialization and never reads environment variables or files
// (spec §6).
type Config struct {
	// StringMaterialization is checked by Validate but not consulted by the
	// String decoder, which always decodes eagerly.
	StringMaterialization StringMaterialization
	// InternStrings enables the bounded FIFO intern table for String
	// columns large enough to benefit (spec §4.3).
	InternStrings bool
}

// DefaultConfig returns the documented defaults: eager string
// materialization, interning enabled.
func DefaultConfig() Config {
	return Config{StringMaterialization: StringEager, InternStrings: true}
}

// Validate checks field-level invariants. There is no schema document at
// this layer (per spec §6), so this only guards the enum field.
func (c Config) Validate() error {
	if c.StringMaterialization != StringEager && c.StringMaterialization != StringLazy {
		return cherr.New(cherr.Bug, "invalid StringMaterialization %d", c.StringMaterialization)
	}
	return nil
}

// Codec dispatches decode/encode/skip calls by type AST. A Codec is not
// safe for concurrent use (spec §5: single logical connection per
// instance), even though its chtype.Cache is internally synchronized.
type Codec struct {
	cfg   Config
	types *chtype.Cache
}

// New builds a Codec with the given config and a private resolved-type
// cache sized to chtype.DefaultCacheSize.
func New(cfg Config) *Codec {
	return &Codec{cfg: cfg, types: chtype.NewCache(chtype.DefaultCacheSize)}
}

// ResolveType parses (or cache-hits) a column's wire type text into its AST.
func (c *Codec) ResolveType(typeText string) (*chtype.Node, error) {
	return c.types.Resolve(typeText)
}

// DecodeColumn decodes rowCount values of the type described by node from r.
func (c *Codec) DecodeColumn(node *chtype.Node, r *chbin.Reader, rowCount int) (chcolumn.Column, error) {
	dec, ok := decoders[node.BaseName]
	if !ok {
		return nil, cherr.New(cherr.UnsupportedType, "no decoder registered for type %q", node.BaseName)
	}
	col, err := dec(c, node, r, rowCount)
	if err != nil {
		return nil, err
	}
	return col, nil
}

// EncodeColumn writes col's values as the on-wire payload for node's type.
func (c *Codec) EncodeColumn(node *chtype.Node, w *chbin.Writer, col chcolumn.Column) error {
	enc, ok := encoders[node.BaseName]
	if !ok {
		return cherr.New(cherr.UnsupportedType, "no encoder registered for type %q", node.BaseName)
	}
	return enc(c, node, w, col)
}

// SkipColumn advances r past rowCount values of node's type without
// allocating. It reports ok=false (leaving r's position unchanged from the
// caller's perspective via Reader's own Mark/Reset discipline) if the
// buffer does not yet hold the full column; that is the only recoverable
// outcome (spec §7). A non-nil error is a hard, non-retryable failure — an
// unsupported variant of the type that no amount of additional buffered
// data will fix (e.g. an unsupported JSON wire version) — and must be
// surfaced as-is rather than folded into "need more data".
func (c *Codec) SkipColumn(node *chtype.Node, r *chbin.Reader, rowCount int) (ok bool, err error) {
	skip, known := skippers[node.BaseName]
	if !known {
		chlog.Warnf("chcodec: no skipper registered for type %q, scan pass cannot verify this column", node.BaseName)
		return false, cherr.New(cherr.UnsupportedType, "no skipper registered for type %q", node.BaseName)
	}
	return skip(c, node, r, rowCount)
}

type decodeFunc func(c *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (chcolumn.Column, error)
type encodeFunc func(c *Codec, node *chtype.Node, w *chbin.Writer, col chcolumn.Column) error
type skipFunc func(c *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (bool, error)

var (
	decoders = map[string]decodeFunc{}
	encoders = map[string]encodeFunc{}
	skippers = map[string]skipFunc{}
)

func registerScalar(name string, width int, dec decodeFunc, enc encodeFunc) {
	decoders[name] = dec
	encoders[name] = enc
	skippers[name] = func(_ *Codec, _ *chtype.Node, r *chbin.Reader, rowCount int) (bool, error) {
		_, ok := r.TryGetContiguous(rowCount * width)
		return ok, nil
	}
}

func register(name string, dec decodeFunc, enc encodeFunc, skip skipFunc) {
	decoders[name] = dec
	encoders[name] = enc
	skippers[name] = skip
}

// valuesAccessor is satisfied by both chcolumn.Owned[T] and
// chcolumn.Pooled[T] (both already expose Values() []T), letting encoders
// accept whichever variant a caller produced without a third interface.
type valuesAccessor[T any] interface {
	Values() []T
}

func valuesOf[T any](col chcolumn.Column, typeName string) ([]T, error) {
	va, ok := col.(valuesAccessor[T])
	if !ok {
		return nil, cherr.New(cherr.Bug, "column for %s does not expose Values()", typeName)
	}
	return va.Values(), nil
}

func typeMismatch(node *chtype.Node, format string, args ...interface{}) error {
	return cherr.New(cherr.MalformedType, "%s: %s", node.String(), fmt.Sprintf(format, args...))
}
