package chinsert

import (
	"reflect"

	"github.com/clickhouse-native-go/chcodec/pkg/chbin"
	"github.com/clickhouse-native-go/chcodec/pkg/cherr"
	"github.com/clickhouse-native-go/chcodec/pkg/chtype"
)

// Extractor writes one schema column's on-wire payload for rowCount
// buffered rows, reading each row's bound field directly via reflection.
// It is the typed write path spec §4.7 contrasts with a generic boxing
// fallback; building one fails with UnsupportedType when no specialized
// writer exists for the (Go field kind, ClickHouse base type) pair.
type Extractor func(w *chbin.Writer, rows []reflect.Value, rowCount int) error

// buildExtractors compiles one Extractor per schema column against shape.
func buildExtractors(rowType reflect.Type, schema []SchemaColumn) ([]Extractor, error) {
	shape, err := NewRowShape(rowType)
	if err != nil {
		return nil, err
	}

	extractors := make([]Extractor, len(schema))
	for i, col := range schema {
		rf, ok := shape.field(col.Name)
		if !ok {
			return nil, cherr.New(cherr.SchemaMismatch, "row type %s has no field bound to schema column %q", rowType, col.Name)
		}
		node, err := chtype.Parse(col.TypeText)
		if err != nil {
			return nil, err
		}
		nullable := node.IsNullable()
		base := node.BaseName
		if nullable {
			base = node.Inner().BaseName
		}
		ext, err := buildExtractor(rf, nullable, base)
		if err != nil {
			return nil, cherr.Wrap(cherr.KindOf(err), err, "column %q (%s)", col.Name, col.TypeText)
		}
		extractors[i] = ext
	}
	return extractors, nil
}

func buildExtractor(rf rowField, nullable bool, baseType string) (Extractor, error) {
	ft := rf.field.Type
	isPointer := ft.Kind() == reflect.Pointer
	elemType := ft
	if isPointer {
		elemType = ft.Elem()
	}

	write, err := scalarWriter(baseType, elemType.Kind())
	if err != nil {
		return nil, err
	}
	fieldIndex := rf.index

	if nullable {
		return func(w *chbin.Writer, rows []reflect.Value, rowCount int) error {
			for i := 0; i < rowCount; i++ {
				fv := rows[i].Field(fieldIndex)
				if isPointer && fv.IsNil() {
					w.WriteU8(1)
				} else {
					w.WriteU8(0)
				}
			}
			for i := 0; i < rowCount; i++ {
				fv := rows[i].Field(fieldIndex)
				if isPointer {
					if fv.IsNil() {
						write(w, reflect.Zero(elemType))
						continue
					}
					fv = fv.Elem()
				}
				write(w, fv)
			}
			return nil
		}, nil
	}

	return func(w *chbin.Writer, rows []reflect.Value, rowCount int) error {
		for i := 0; i < rowCount; i++ {
			fv := rows[i].Field(fieldIndex)
			if isPointer {
				if fv.IsNil() {
					return cherr.New(cherr.SchemaMismatch, "row %d: field %s is nil but schema column is not Nullable", i, rf.field.Name)
				}
				fv = fv.Elem()
			}
			write(w, fv)
		}
		return nil
	}, nil
}

// scalarWriter resolves the specialized per-value writer for one
// (ClickHouse base type, Go field kind) pair, the same closed set of
// scalar types the core column codec's fixed-width family covers.
func scalarWriter(baseType string, goKind reflect.Kind) (func(w *chbin.Writer, v reflect.Value), error) {
	switch baseType {
	case "UInt8":
		return requireUintKind(goKind, func(w *chbin.Writer, v reflect.Value) { w.WriteU8(uint8(v.Uint())) })
	case "UInt16":
		return requireUintKind(goKind, func(w *chbin.Writer, v reflect.Value) { w.WriteU16(uint16(v.Uint())) })
	case "UInt32":
		return requireUintKind(goKind, func(w *chbin.Writer, v reflect.Value) { w.WriteU32(uint32(v.Uint())) })
	case "UInt64":
		return requireUintKind(goKind, func(w *chbin.Writer, v reflect.Value) { w.WriteU64(v.Uint()) })
	case "Int8":
		return requireIntKind(goKind, func(w *chbin.Writer, v reflect.Value) { w.WriteI8(int8(v.Int())) })
	case "Int16":
		return requireIntKind(goKind, func(w *chbin.Writer, v reflect.Value) { w.WriteI16(int16(v.Int())) })
	case "Int32":
		return requireIntKind(goKind, func(w *chbin.Writer, v reflect.Value) { w.WriteI32(int32(v.Int())) })
	case "Int64":
		return requireIntKind(goKind, func(w *chbin.Writer, v reflect.Value) { w.WriteI64(v.Int()) })
	case "Float32":
		return requireFloatKind(goKind, func(w *chbin.Writer, v reflect.Value) { w.WriteF32(float32(v.Float())) })
	case "Float64":
		return requireFloatKind(goKind, func(w *chbin.Writer, v reflect.Value) { w.WriteF64(v.Float()) })
	case "String":
		if goKind != reflect.String {
			return nil, cherr.New(cherr.UnsupportedType, "String column requires a string field, got %s", goKind)
		}
		return func(w *chbin.Writer, v reflect.Value) { w.WriteString(v.String()) }, nil
	default:
		return nil, cherr.New(cherr.UnsupportedType, "no bulk-insert extractor for ClickHouse type %q; caller must fall back to generic extraction", baseType)
	}
}

func requireUintKind(goKind reflect.Kind, fn func(*chbin.Writer, reflect.Value)) (func(*chbin.Writer, reflect.Value), error) {
	switch goKind {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fn, nil
	}
	return nil, cherr.New(cherr.UnsupportedType, "expected an unsigned integer field, got %s", goKind)
}

func requireIntKind(goKind reflect.Kind, fn func(*chbin.Writer, reflect.Value)) (func(*chbin.Writer, reflect.Value), error) {
	switch goKind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fn, nil
	}
	return nil, cherr.New(cherr.UnsupportedType, "expected a signed integer field, got %s", goKind)
}

func requireFloatKind(goKind reflect.Kind, fn func(*chbin.Writer, reflect.Value)) (func(*chbin.Writer, reflect.Value), error) {
	switch goKind {
	case reflect.Float32, reflect.Float64:
		return fn, nil
	}
	return nil, cherr.New(cherr.UnsupportedType, "expected a floating-point field, got %s", goKind)
}
