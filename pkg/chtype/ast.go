// Package chtype parses ClickHouse type-grammar strings
// (Nullable(Array(LowCardinality(String))), Decimal(18,4), Tuple(id UInt64,
// name String), Enum8('a'=1,...)) into a structured AST that the column
// codec registry dispatches on.
package chtype

// tupleLikeBases accept named or positional child types, one per field.
var tupleLikeBases = map[string]bool{
	"Tuple":  true,
	"Nested": true,
}

// literalParamBases take opaque literal parameters (ints, quoted strings,
// enum definitions) rather than nested type arguments.
var literalParamBases = map[string]bool{
	"Decimal":     true,
	"Decimal32":   true,
	"Decimal64":   true,
	"Decimal128":  true,
	"Decimal256":  true,
	"FixedString": true,
	"DateTime":    true,
	"DateTime64":  true,
	"Enum8":       true,
	"Enum16":      true,
}

// singleArgBases must have exactly one type argument and no parameters.
var singleArgBases = map[string]bool{
	"Nullable":      true,
	"Array":         true,
	"LowCardinality": true,
}

// Node is one node of the parsed type AST. See spec §3 "Type AST" for the
// field invariants this package enforces while parsing.
type Node struct {
	BaseName      string
	TypeArguments []*Node
	Parameters    []string
	FieldNames    []string
	OriginalText  string
}

// IsNullable reports whether n is Nullable(...).
func (n *Node) IsNullable() bool { return n.BaseName == "Nullable" }

// Inner returns the single wrapped type for Nullable/Array/LowCardinality
// nodes, or nil if n does not have exactly one type argument.
func (n *Node) Inner() *Node {
	if len(n.TypeArguments) != 1 {
		return nil
	}
	return n.TypeArguments[0]
}

// String returns OriginalText when it is set (Parse sets it on the root
// node only); otherwise it returns just BaseName, without arguments.
func (n *Node) String() string {
	if n.OriginalText != "" {
		return n.OriginalText
	}
	return n.BaseName
}
