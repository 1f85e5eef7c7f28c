// Package chcolumn implements the typed column store described in spec
// §3 "Typed column" and §4.6: pooled, disposable, strongly-typed column
// handles with owned, pool-rented, flattened-array, and dictionary-encoded
// variants, all exposing a uniform count/kind/release surface.
//
// The pooling discipline is grounded directly on the teacher's
// internal/memorystore/buffer.go: a sync.Pool-backed, capacity-bounded
// buffer struct with explicit release-to-pool on close, generalized here
// from a single schema.Float element type to a generic pooled column over
// any wire primitive (internal/bufpool.SlicePool), plus the flattened and
// dictionary-encoded specializations variable-width columns need.
package chcolumn

// ElementKind identifies the Go type backing a column's elements, used for
// introspection (spec's "element_type_tag") without reflection on the
// per-row hot path.
type ElementKind int

const (
	KindUint8 ElementKind = iota
	KindInt8
	KindUint16
	KindInt16
	KindUint32
	KindInt32
	KindUint64
	KindInt64
	KindFloat32
	KindFloat64
	KindBool
	KindString
	KindBytes
	KindUUID
	KindBig
	KindTime
	KindDecimal
	// KindComposite marks a column whose rows are not a single scalar Go
	// type (Tuple, Map, Nested) — there is no one ElementKind to report.
	KindComposite
)

func (k ElementKind) String() string {
	switch k {
	case KindUint8:
		return "UInt8"
	case KindInt8:
		return "Int8"
	case KindUint16:
		return "UInt16"
	case KindInt16:
		return "Int16"
	case KindUint32:
		return "UInt32"
	case KindInt32:
		return "Int32"
	case KindUint64:
		return "UInt64"
	case KindInt64:
		return "Int64"
	case KindFloat32:
		return "Float32"
	case KindFloat64:
		return "Float64"
	case KindBool:
		return "Bool"
	case KindString:
		return "String"
	case KindBytes:
		return "Bytes"
	case KindUUID:
		return "UUID"
	case KindBig:
		return "Big"
	case KindTime:
		return "Time"
	case KindDecimal:
		return "Decimal"
	case KindComposite:
		return "Composite"
	default:
		return "Unknown"
	}
}

// Column is the non-generic handle every column variant satisfies. Callers
// that already know the static element type downcast to the concrete
// Owned[T]/Pooled[T]/Flattened[T]/Dictionary[T] for typed Get/Values access;
// Column itself only carries what a block assembler needs without knowing
// the element type (count, kind, and release).
type Column interface {
	// Count returns the number of logical rows the column holds.
	Count() int
	// ElementKind identifies the backing element type.
	ElementKind() ElementKind
	// Release returns any pooled backing storage. A second call is a
	// documented no-op, never a double-free or panic (spec §4.6).
	Release()
}
