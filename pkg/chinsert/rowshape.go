// Package chinsert implements the bulk insert pipeline (spec §4.7): given a
// caller's row type and the server's schema reply, it compiles one
// extractor per column via reflection and writes data-block messages
// straight from buffered rows to the wire, without materializing a
// pkg/chcolumn column in between.
//
// This is the Go-native reading of the source's "reflection-based row
// mapping" design note (spec §9): Go has its own runtime reflection, so the
// closed `(reflect.Kind, clickhouse base type)` dispatch table plays the
// role the design note assigns to a generated-code macro in languages
// without it.
package chinsert

import (
	"reflect"

	"github.com/clickhouse-native-go/chcodec/pkg/cherr"
)

// rowField is one exported struct field resolved to a schema column name.
type rowField struct {
	index int
	field reflect.StructField
}

// RowShape maps schema column names onto a row struct's fields. A field is
// addressed by its Go name by default; a `ch:"column_name"` tag renames it,
// and `ch:"-"` excludes it from extraction entirely.
type RowShape struct {
	rowType reflect.Type
	byName  map[string]rowField
}

// NewRowShape inspects rowType (dereferencing one pointer level) and
// indexes its exported fields by schema column name.
func NewRowShape(rowType reflect.Type) (*RowShape, error) {
	if rowType.Kind() == reflect.Pointer {
		rowType = rowType.Elem()
	}
	if rowType.Kind() != reflect.Struct {
		return nil, cherr.New(cherr.Bug, "bulk insert row type %s is not a struct", rowType)
	}

	shape := &RowShape{rowType: rowType, byName: make(map[string]rowField)}
	for i := 0; i < rowType.NumField(); i++ {
		f := rowType.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("ch"); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		shape.byName[name] = rowField{index: i, field: f}
	}
	return shape, nil
}

func (s *RowShape) field(columnName string) (rowField, bool) {
	rf, ok := s.byName[columnName]
	return rf, ok
}
