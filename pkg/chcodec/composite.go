package chcodec

import (
	"github.com/clickhouse-native-go/chcodec/pkg/chbin"
	"github.com/clickhouse-native-go/chcodec/pkg/chcolumn"
	"github.com/clickhouse-native-go/chcodec/pkg/cherr"
	"github.com/clickhouse-native-go/chcodec/pkg/chtype"
)

func init() {
	register("Nullable", decodeNullable, encodeNullable, skipNullable)
	register("Array", decodeArray, encodeArray, skipArray)
	register("Map", decodeMap, encodeMap, skipMap)
	register("Tuple", decodeTuple, encodeTuple, skipTuple)
	register("Nested", decodeNested, encodeNested, skipNested)
	register("LowCardinality", decodeLowCardinality, encodeLowCardinality, skipLowCardinality)
}

// --- Nullable(T): row_count null-flag bytes, then the full inner column
// (null slots still carry inner-type bytes on the wire, spec §4.3). ---

// NullableColumn wraps an inner column with a parallel null mask. Nullable
// is a decoration over whichever shape the inner type produces rather than
// one of the four storage shapes spec §4.6 names for a column in its own
// right, but it satisfies the same uniform Column surface.
type NullableColumn struct {
	mask     []bool
	inner    chcolumn.Column
	released bool
}

func (c *NullableColumn) Count() int                        { return len(c.mask) }
func (c *NullableColumn) ElementKind() chcolumn.ElementKind { return c.inner.ElementKind() }
func (c *NullableColumn) IsNull(i int) bool                 { return c.mask[i] }
func (c *NullableColumn) Inner() chcolumn.Column            { return c.inner }

func (c *NullableColumn) Release() {
	if c.released {
		return
	}
	c.released = true
	c.inner.Release()
}

func decodeNullable(c *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (chcolumn.Column, error) {
	inner := node.Inner()
	if inner == nil {
		return nil, typeMismatch(node, "Nullable requires exactly one type argument")
	}
	mask := make([]bool, rowCount)
	for i := 0; i < rowCount; i++ {
		b, ok := r.TryReadU8()
		if !ok {
			return nil, cherr.New(cherr.Truncated, "Nullable: null mask truncated at row %d/%d", i, rowCount)
		}
		mask[i] = b != 0
	}
	innerCol, err := c.DecodeColumn(inner, r, rowCount)
	if err != nil {
		return nil, err
	}
	return &NullableColumn{mask: mask, inner: innerCol}, nil
}

func encodeNullable(c *Codec, node *chtype.Node, w *chbin.Writer, col chcolumn.Column) error {
	inner := node.Inner()
	if inner == nil {
		return typeMismatch(node, "Nullable requires exactly one type argument")
	}
	nc, ok := col.(*NullableColumn)
	if !ok {
		return cherr.New(cherr.Bug, "Nullable encode: column is not *NullableColumn")
	}
	for _, isNull := range nc.mask {
		if isNull {
			w.WriteU8(1)
		} else {
			w.WriteU8(0)
		}
	}
	return c.EncodeColumn(inner, w, nc.inner)
}

func skipNullable(c *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (bool, error) {
	inner := node.Inner()
	if inner == nil {
		return false, nil
	}
	if _, ok := r.TryGetContiguous(rowCount); !ok {
		return false, nil
	}
	return c.SkipColumn(inner, r, rowCount)
}

// --- Array(T): row_count cumulative u64 offsets, then a flat inner-type
// column of size offsets[row_count-1] (spec §4.3, scenario S3). ---

// ArrayColumn holds the flattened elements column plus the per-row
// cumulative offsets. Row i's span is Elements()'s rows
// [Offsets()[i-1]:Offsets()[i]) (offsets[-1]=0), matching spec §4.6's
// flattened-array shape. Elements() is whatever concrete chcolumn.Column
// the inner type's decoder produced: the element type is only known at
// decode time from the parsed AST, so this wrapper type-erases it rather
// than instantiating chcolumn.Flattened[T] for a compile-time-unknown T —
// a caller that knows T statically (e.g. a generated bulk-insert
// extractor) can downcast Elements() itself.
type ArrayColumn struct {
	elements chcolumn.Column
	offsets  []uint64
	released bool
}

func (c *ArrayColumn) Count() int                        { return len(c.offsets) }
func (c *ArrayColumn) ElementKind() chcolumn.ElementKind { return c.elements.ElementKind() }
func (c *ArrayColumn) Elements() chcolumn.Column         { return c.elements }
func (c *ArrayColumn) Offsets() []uint64                 { return c.offsets }

// Span returns the [start,end) element-row range for row i.
func (c *ArrayColumn) Span(i int) (start, end uint64) {
	if i > 0 {
		start = c.offsets[i-1]
	}
	end = c.offsets[i]
	return start, end
}

func (c *ArrayColumn) Release() {
	if c.released {
		return
	}
	c.released = true
	c.elements.Release()
}

func decodeArray(c *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (chcolumn.Column, error) {
	inner := node.Inner()
	if inner == nil {
		return nil, typeMismatch(node, "Array requires exactly one type argument")
	}
	offsets, err := readOffsets(r, rowCount)
	if err != nil {
		return nil, err
	}
	total := 0
	if rowCount > 0 {
		total = int(offsets[rowCount-1])
	}
	elements, err := c.DecodeColumn(inner, r, total)
	if err != nil {
		return nil, err
	}
	return &ArrayColumn{elements: elements, offsets: offsets}, nil
}

func encodeArray(c *Codec, node *chtype.Node, w *chbin.Writer, col chcolumn.Column) error {
	inner := node.Inner()
	if inner == nil {
		return typeMismatch(node, "Array requires exactly one type argument")
	}
	ac, ok := col.(*ArrayColumn)
	if !ok {
		return cherr.New(cherr.Bug, "Array encode: column is not *ArrayColumn")
	}
	writeOffsets(w, ac.offsets)
	return c.EncodeColumn(inner, w, ac.elements)
}

func skipArray(c *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (bool, error) {
	inner := node.Inner()
	if inner == nil {
		return false, nil
	}
	var last uint64
	for i := 0; i < rowCount; i++ {
		v, ok := r.TryReadU64()
		if !ok {
			return false, nil
		}
		last = v
	}
	if rowCount == 0 {
		return true, nil
	}
	return c.SkipColumn(inner, r, int(last))
}

func readOffsets(r *chbin.Reader, rowCount int) ([]uint64, error) {
	offsets := make([]uint64, rowCount)
	for i := 0; i < rowCount; i++ {
		v, ok := r.TryReadU64()
		if !ok {
			return nil, cherr.New(cherr.Truncated, "offsets: truncated at row %d/%d", i, rowCount)
		}
		offsets[i] = v
	}
	return offsets, nil
}

func writeOffsets(w *chbin.Writer, offsets []uint64) {
	for _, o := range offsets {
		w.WriteU64(o)
	}
}

// --- Map(K,V): Array(Tuple(K,V)) semantics; the wire shape keeps keys and
// values as two separate flat columns of the same total length. ---

type MapColumn struct {
	keys     chcolumn.Column
	values   chcolumn.Column
	offsets  []uint64
	released bool
}

func (c *MapColumn) Count() int                        { return len(c.offsets) }
func (c *MapColumn) ElementKind() chcolumn.ElementKind { return chcolumn.KindComposite }
func (c *MapColumn) Keys() chcolumn.Column             { return c.keys }
func (c *MapColumn) MapValues() chcolumn.Column        { return c.values }
func (c *MapColumn) Offsets() []uint64                 { return c.offsets }

func (c *MapColumn) Span(i int) (start, end uint64) {
	if i > 0 {
		start = c.offsets[i-1]
	}
	end = c.offsets[i]
	return start, end
}

func (c *MapColumn) Release() {
	if c.released {
		return
	}
	c.released = true
	c.keys.Release()
	c.values.Release()
}

func decodeMap(c *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (chcolumn.Column, error) {
	if len(node.TypeArguments) != 2 {
		return nil, typeMismatch(node, "Map requires exactly 2 type arguments")
	}
	keyType, valType := node.TypeArguments[0], node.TypeArguments[1]
	offsets, err := readOffsets(r, rowCount)
	if err != nil {
		return nil, err
	}
	total := 0
	if rowCount > 0 {
		total = int(offsets[rowCount-1])
	}
	keys, err := c.DecodeColumn(keyType, r, total)
	if err != nil {
		return nil, err
	}
	values, err := c.DecodeColumn(valType, r, total)
	if err != nil {
		keys.Release()
		return nil, err
	}
	return &MapColumn{keys: keys, values: values, offsets: offsets}, nil
}

func encodeMap(c *Codec, node *chtype.Node, w *chbin.Writer, col chcolumn.Column) error {
	if len(node.TypeArguments) != 2 {
		return typeMismatch(node, "Map requires exactly 2 type arguments")
	}
	mc, ok := col.(*MapColumn)
	if !ok {
		return cherr.New(cherr.Bug, "Map encode: column is not *MapColumn")
	}
	writeOffsets(w, mc.offsets)
	if err := c.EncodeColumn(node.TypeArguments[0], w, mc.keys); err != nil {
		return err
	}
	return c.EncodeColumn(node.TypeArguments[1], w, mc.values)
}

func skipMap(c *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (bool, error) {
	if len(node.TypeArguments) != 2 {
		return false, nil
	}
	var last uint64
	for i := 0; i < rowCount; i++ {
		v, ok := r.TryReadU64()
		if !ok {
			return false, nil
		}
		last = v
	}
	total := 0
	if rowCount > 0 {
		total = int(last)
	}
	ok, err := c.SkipColumn(node.TypeArguments[0], r, total)
	if err != nil || !ok {
		return ok, err
	}
	return c.SkipColumn(node.TypeArguments[1], r, total)
}

// --- Tuple(T1,...,Tn): columnar layout — all of T1's values, then all of
// T2's, etc. Named tuples are identical on the wire. ---

type TupleColumn struct {
	fieldNames []string
	fields     []chcolumn.Column
	rowCount   int
	released   bool
}

func (c *TupleColumn) Count() int                        { return c.rowCount }
func (c *TupleColumn) ElementKind() chcolumn.ElementKind { return chcolumn.KindComposite }
func (c *TupleColumn) Field(i int) chcolumn.Column       { return c.fields[i] }
func (c *TupleColumn) FieldNames() []string              { return c.fieldNames }
func (c *TupleColumn) NumFields() int                    { return len(c.fields) }

func (c *TupleColumn) Release() {
	if c.released {
		return
	}
	c.released = true
	for _, f := range c.fields {
		f.Release()
	}
}

func decodeTuple(c *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (chcolumn.Column, error) {
	if len(node.TypeArguments) == 0 {
		return nil, typeMismatch(node, "Tuple requires at least one field")
	}
	fields := make([]chcolumn.Column, 0, len(node.TypeArguments))
	for i, fieldType := range node.TypeArguments {
		col, err := c.DecodeColumn(fieldType, r, rowCount)
		if err != nil {
			for _, f := range fields {
				f.Release()
			}
			return nil, cherr.Wrap(cherr.KindOf(err), err, "Tuple field %d", i)
		}
		fields = append(fields, col)
	}
	return &TupleColumn{fieldNames: node.FieldNames, fields: fields, rowCount: rowCount}, nil
}

func encodeTuple(c *Codec, node *chtype.Node, w *chbin.Writer, col chcolumn.Column) error {
	tc, ok := col.(*TupleColumn)
	if !ok {
		return cherr.New(cherr.Bug, "Tuple encode: column is not *TupleColumn")
	}
	for i, fieldType := range node.TypeArguments {
		if err := c.EncodeColumn(fieldType, w, tc.fields[i]); err != nil {
			return err
		}
	}
	return nil
}

func skipTuple(c *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (bool, error) {
	for _, fieldType := range node.TypeArguments {
		ok, err := c.SkipColumn(fieldType, r, rowCount)
		if err != nil || !ok {
			return ok, err
		}
	}
	return true, nil
}

// --- Nested(f1 T1,...,fn Tn): serialized as Tuple(Array(T1),...,Array(Tn)). ---

func nestedAsTuple(node *chtype.Node) *chtype.Node {
	args := make([]*chtype.Node, len(node.TypeArguments))
	for i, field := range node.TypeArguments {
		args[i] = &chtype.Node{BaseName: "Array", TypeArguments: []*chtype.Node{field}}
	}
	return &chtype.Node{BaseName: "Tuple", TypeArguments: args, FieldNames: node.FieldNames}
}

func decodeNested(c *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (chcolumn.Column, error) {
	return decodeTuple(c, nestedAsTuple(node), r, rowCount)
}

func encodeNested(c *Codec, node *chtype.Node, w *chbin.Writer, col chcolumn.Column) error {
	return encodeTuple(c, nestedAsTuple(node), w, col)
}

func skipNested(c *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (bool, error) {
	return skipTuple(c, nestedAsTuple(node), r, rowCount)
}

// --- LowCardinality(T): version u64, flags u64 (low byte = index width),
// dictionary size u64, dictionary payload, index count u64, indices. ---

const (
	lowCardinalityIndexWidthMask    = 0xFF
	lowCardinalityHasAdditionalKeys = 1 << 9
)

// indexByteWidth maps the wire's 2-bit index-width code to a byte count.
func indexByteWidth(code uint64) int {
	switch code {
	case 0:
		return 1
	case 1:
		return 2
	case 2:
		return 4
	default:
		return 8
	}
}

type LowCardinalityColumn struct {
	dictionary chcolumn.Column
	indices    []uint64
	// nullable records whether the declared type was
	// LowCardinality(Nullable(T)); when true, dictionary entry 0 is the
	// server's null sentinel (spec §4.3) and IsNull reports against it.
	nullable bool
	released bool
}

func (c *LowCardinalityColumn) Count() int                        { return len(c.indices) }
func (c *LowCardinalityColumn) ElementKind() chcolumn.ElementKind { return c.dictionary.ElementKind() }
func (c *LowCardinalityColumn) Dictionary() chcolumn.Column       { return c.dictionary }
func (c *LowCardinalityColumn) Indices() []uint64                 { return c.indices }

// Nullable reports whether the declared type was
// LowCardinality(Nullable(T)), i.e. whether IsNull is meaningful.
func (c *LowCardinalityColumn) Nullable() bool { return c.nullable }

// IsNull reports whether row i is null, per the index-0 sentinel convention
// spec §4.3 documents for LowCardinality(Nullable(T)). It always returns
// false when the declared type was not Nullable.
func (c *LowCardinalityColumn) IsNull(i int) bool {
	return c.nullable && c.indices[i] == 0
}

func (c *LowCardinalityColumn) Release() {
	if c.released {
		return
	}
	c.released = true
	c.dictionary.Release()
}

// lowCardinalityBaseType returns T's AST node, unwrapping one level of
// Nullable, plus whether that unwrap happened. The Open Question of whether
// the dictionary's first slot must be reserved for the null representation
// (as opposed to merely being non-empty) is resolved by tracking that the
// type was Nullable on the resulting column (LowCardinalityColumn.Nullable)
// so a caller can apply the §4.3 index-0-is-null convention itself, rather
// than this layer silently enforcing or coercing a particular dictionary
// layout (see DESIGN.md).
func lowCardinalityBaseType(node *chtype.Node) (*chtype.Node, bool, error) {
	inner := node.Inner()
	if inner == nil {
		return nil, false, typeMismatch(node, "LowCardinality requires exactly one type argument")
	}
	if inner.IsNullable() {
		base := inner.Inner()
		if base == nil {
			return nil, false, typeMismatch(node, "LowCardinality(Nullable(...)) missing base type")
		}
		return base, true, nil
	}
	return inner, false, nil
}

func decodeLowCardinality(c *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (chcolumn.Column, error) {
	baseType, nullable, err := lowCardinalityBaseType(node)
	if err != nil {
		return nil, err
	}
	if _, ok := r.TryReadU64(); !ok { // version
		return nil, cherr.New(cherr.Truncated, "LowCardinality: missing version")
	}
	flags, ok := r.TryReadU64()
	if !ok {
		return nil, cherr.New(cherr.Truncated, "LowCardinality: missing flags")
	}
	indexWidth := flags & lowCardinalityIndexWidthMask
	dictSize, ok := r.TryReadU64()
	if !ok {
		return nil, cherr.New(cherr.Truncated, "LowCardinality: missing dictionary size")
	}
	dictionary, err := c.DecodeColumn(baseType, r, int(dictSize))
	if err != nil {
		return nil, err
	}
	indexCount, ok := r.TryReadU64()
	if !ok {
		dictionary.Release()
		return nil, cherr.New(cherr.Truncated, "LowCardinality: missing index count")
	}
	if int(indexCount) != rowCount {
		dictionary.Release()
		return nil, cherr.New(cherr.SchemaMismatch, "LowCardinality: index count %d does not match row count %d", indexCount, rowCount)
	}
	indices := make([]uint64, rowCount)
	for i := 0; i < rowCount; i++ {
		v, ok := readIndexWidth(r, indexWidth)
		if !ok {
			dictionary.Release()
			return nil, cherr.New(cherr.Truncated, "LowCardinality: index truncated at row %d/%d", i, rowCount)
		}
		indices[i] = v
	}
	return &LowCardinalityColumn{dictionary: dictionary, indices: indices, nullable: nullable}, nil
}

func readIndexWidth(r *chbin.Reader, code uint64) (uint64, bool) {
	switch code {
	case 0:
		v, ok := r.TryReadU8()
		return uint64(v), ok
	case 1:
		v, ok := r.TryReadU16()
		return uint64(v), ok
	case 2:
		v, ok := r.TryReadU32()
		return uint64(v), ok
	default:
		return r.TryReadU64()
	}
}

func writeIndexWidth(w *chbin.Writer, code uint64, v uint64) {
	switch code {
	case 0:
		w.WriteU8(uint8(v))
	case 1:
		w.WriteU16(uint16(v))
	case 2:
		w.WriteU32(uint32(v))
	default:
		w.WriteU64(v)
	}
}

// indexWidthCodeFor returns the narrowest index-width code (0=u8, 1=u16,
// 2=u32, 3=u64) that can represent dictSize distinct entries.
func indexWidthCodeFor(dictSize int) uint64 {
	switch {
	case dictSize <= 1<<8:
		return 0
	case dictSize <= 1<<16:
		return 1
	case int64(dictSize) <= 1<<32:
		return 2
	default:
		return 3
	}
}

func encodeLowCardinality(c *Codec, node *chtype.Node, w *chbin.Writer, col chcolumn.Column) error {
	baseType, _, err := lowCardinalityBaseType(node)
	if err != nil {
		return err
	}
	lc, ok := col.(*LowCardinalityColumn)
	if !ok {
		return cherr.New(cherr.Bug, "LowCardinality encode: column is not *LowCardinalityColumn")
	}
	dictSize := lc.dictionary.Count()
	indexWidth := indexWidthCodeFor(dictSize)

	w.WriteU64(0) // version
	w.WriteU64(indexWidth | lowCardinalityHasAdditionalKeys)
	w.WriteU64(uint64(dictSize))
	if err := c.EncodeColumn(baseType, w, lc.dictionary); err != nil {
		return err
	}
	w.WriteU64(uint64(len(lc.indices)))
	for _, idx := range lc.indices {
		writeIndexWidth(w, indexWidth, idx)
	}
	return nil
}

func skipLowCardinality(c *Codec, node *chtype.Node, r *chbin.Reader, rowCount int) (bool, error) {
	baseType, _, err := lowCardinalityBaseType(node)
	if err != nil {
		return false, nil
	}
	if _, ok := r.TryReadU64(); !ok {
		return false, nil
	}
	flags, ok := r.TryReadU64()
	if !ok {
		return false, nil
	}
	indexWidth := flags & lowCardinalityIndexWidthMask
	dictSize, ok := r.TryReadU64()
	if !ok {
		return false, nil
	}
	skipOk, err := c.SkipColumn(baseType, r, int(dictSize))
	if err != nil || !skipOk {
		return skipOk, err
	}
	indexCount, ok := r.TryReadU64()
	if !ok {
		return false, nil
	}
	_, ok = r.TryGetContiguous(int(indexCount) * indexByteWidth(indexWidth))
	return ok, nil
}
