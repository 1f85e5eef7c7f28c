package chtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimple(t *testing.T) {
	n, err := Parse("UInt64")
	require.NoError(t, err)
	assert.Equal(t, "UInt64", n.BaseName)
	assert.Empty(t, n.TypeArguments)
	assert.Empty(t, n.Parameters)
}

func TestParseNestedGeneric(t *testing.T) {
	n, err := Parse("Nullable(Array(LowCardinality(String)))")
	require.NoError(t, err)
	assert.Equal(t, "Nullable", n.BaseName)
	require.Len(t, n.TypeArguments, 1)
	arr := n.TypeArguments[0]
	assert.Equal(t, "Array", arr.BaseName)
	require.Len(t, arr.TypeArguments, 1)
	lc := arr.TypeArguments[0]
	assert.Equal(t, "LowCardinality", lc.BaseName)
	require.Len(t, lc.TypeArguments, 1)
	assert.Equal(t, "String", lc.TypeArguments[0].BaseName)
}

func TestParseDecimal(t *testing.T) {
	n, err := Parse("Decimal(18,4)")
	require.NoError(t, err)
	assert.Equal(t, "Decimal", n.BaseName)
	assert.Equal(t, []string{"18", "4"}, n.Parameters)
}

func TestParseFixedString(t *testing.T) {
	n, err := Parse("FixedString(16)")
	require.NoError(t, err)
	assert.Equal(t, []string{"16"}, n.Parameters)
}

func TestParseNamedTuple(t *testing.T) {
	n, err := Parse("Tuple(id UInt64, name String)")
	require.NoError(t, err)
	assert.Equal(t, "Tuple", n.BaseName)
	require.Len(t, n.TypeArguments, 2)
	require.Len(t, n.FieldNames, 2)
	assert.Equal(t, []string{"id", "name"}, n.FieldNames)
	assert.Equal(t, "UInt64", n.TypeArguments[0].BaseName)
	assert.Equal(t, "String", n.TypeArguments[1].BaseName)
}

func TestParseUnnamedTuple(t *testing.T) {
	n, err := Parse("Tuple(UInt64, String)")
	require.NoError(t, err)
	assert.Empty(t, n.FieldNames)
	require.Len(t, n.TypeArguments, 2)
}

func TestParseNested(t *testing.T) {
	n, err := Parse("Nested(a UInt8, b String)")
	require.NoError(t, err)
	assert.Equal(t, "Nested", n.BaseName)
	assert.Equal(t, []string{"a", "b"}, n.FieldNames)
}

func TestParseMap(t *testing.T) {
	n, err := Parse("Map(String, UInt64)")
	require.NoError(t, err)
	require.Len(t, n.TypeArguments, 2)
	assert.Equal(t, "String", n.TypeArguments[0].BaseName)
	assert.Equal(t, "UInt64", n.TypeArguments[1].BaseName)
}

func TestParseEnum(t *testing.T) {
	n, err := Parse("Enum8('a' = 1, 'b' = 2)")
	require.NoError(t, err)
	assert.Equal(t, []string{"'a' = 1", "'b' = 2"}, n.Parameters)
}

func TestParseDateTime64WithTimezone(t *testing.T) {
	n, err := Parse("DateTime64(3, 'UTC')")
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "'UTC'"}, n.Parameters)
}

func TestParseMalformed(t *testing.T) {
	cases := []string{
		"Array(String",
		"Nullable()",
		"Decimal(abc)",
		"Tuple()",
		"",
	}
	for _, c := range cases {
		_, err := Parse(c)
		assert.Errorf(t, err, "expected error parsing %q", c)
	}
}

func TestCacheResolve(t *testing.T) {
	c := NewCache(8)
	n1, err := c.Resolve("Array(String)")
	require.NoError(t, err)
	n2, err := c.Resolve("Array(String)")
	require.NoError(t, err)
	assert.Same(t, n1, n2, "cache hit must return the same parsed node")
}
