// Package cherr defines the closed set of error kinds the codec can surface
// and a typed error that carries one of them plus positional context.
package cherr

import "fmt"

// Kind is one of the stable error kinds from the wire-protocol spec. Callers
// branch on Kind, never on error text.
type Kind int

const (
	// NeedMoreData means the buffer ended at a clean boundary; the caller
	// should retain what it has buffered and retry once more bytes arrive.
	NeedMoreData Kind = iota
	// Truncated means the buffer ended inside a structure after a commit
	// point; the stream must be treated as poisoned.
	Truncated
	Checksum
	UnsupportedAlgorithm
	// CorruptFrame means a compressed frame decompressed to a different
	// length than its header declared.
	CorruptFrame
	MalformedType
	UnsupportedType
	DecimalOverflow
	UnsupportedJSONFormat
	SchemaMismatch
	PoolExhausted
	AlreadyCompleted
	NotInitialized
	// Bug marks an invariant violation that should never occur in correct
	// callers; it is distinct from all the recoverable/reportable kinds.
	Bug
	// Poisoned is returned by any operation invoked after the codec
	// instance observed a Truncated or Checksum error.
	Poisoned
)

func (k Kind) String() string {
	switch k {
	case NeedMoreData:
		return "NeedMoreData"
	case Truncated:
		return "Truncated"
	case Checksum:
		return "Checksum"
	case UnsupportedAlgorithm:
		return "UnsupportedAlgorithm"
	case CorruptFrame:
		return "CorruptFrame"
	case MalformedType:
		return "MalformedType"
	case UnsupportedType:
		return "UnsupportedType"
	case DecimalOverflow:
		return "DecimalOverflow"
	case UnsupportedJSONFormat:
		return "UnsupportedJsonFormat"
	case SchemaMismatch:
		return "SchemaMismatch"
	case PoolExhausted:
		return "PoolExhausted"
	case AlreadyCompleted:
		return "AlreadyCompleted"
	case NotInitialized:
		return "NotInitialized"
	case Bug:
		return "Bug"
	case Poisoned:
		return "Poisoned"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by every chcodec operation that
// can fail. It is always inspectable via As/Is against Kind through the
// KindOf helper below.
type Error struct {
	Kind    Kind
	Column  string // optional: column name the error occurred in
	Offset  int    // optional: byte offset within the current buffer
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Column != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: column %q at offset %d: %s: %v", e.Kind, e.Column, e.Offset, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s: column %q at offset %d: %s", e.Kind, e.Column, e.Offset, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a bare error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithColumn returns a copy of e annotated with the column name, useful when
// a lower-level decoder error is re-surfaced by the block assembler.
func (e *Error) WithColumn(name string) *Error {
	cp := *e
	cp.Column = name
	return &cp
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, returning
// Bug for any other error so callers always have something to switch on.
func KindOf(err error) Kind {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind
	}
	return Bug
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// IsRecoverable reports whether err is NeedMoreData, the only kind the block
// assembler's scan pass treats as recoverable.
func IsRecoverable(err error) bool {
	return KindOf(err) == NeedMoreData
}
