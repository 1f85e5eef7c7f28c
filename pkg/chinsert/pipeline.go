package chinsert

import (
	"reflect"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/clickhouse-native-go/chcodec/pkg/chbin"
	"github.com/clickhouse-native-go/chcodec/pkg/chblock"
	"github.com/clickhouse-native-go/chcodec/pkg/cherr"
)

// extractorCacheSize bounds the process-wide cache of compiled extractor
// sets (spec §5 "optional cache", generalized here to the per-(row
// type, schema) extractor compilation this layer owns).
const extractorCacheSize = 128

var extractorCache, _ = lru.New[string, []Extractor](extractorCacheSize)

func cacheKey(rowType reflect.Type, schema []SchemaColumn) string {
	var b strings.Builder
	b.WriteString(rowType.PkgPath())
	b.WriteByte('.')
	b.WriteString(rowType.Name())
	for _, c := range schema {
		b.WriteByte('|')
		b.WriteString(c.Name)
		b.WriteByte(':')
		b.WriteString(c.TypeText)
	}
	return b.String()
}

// SchemaColumn is one column from the server's reply to the INSERT
// schema negotiation: its name and its wire type text, in declared order.
type SchemaColumn struct {
	Name     string
	TypeText string
}

// Sink is the external collaborator a Pipeline flushes serialized
// data-block messages to (spec §1: byte-sink is an external collaborator,
// out of scope for this layer to implement).
type Sink interface {
	Send(payload []byte) error
}

// Config holds the bulk insert pipeline's field-level knobs (spec §6).
type Config struct {
	// BatchSize triggers a flush once the row buffer reaches this size.
	BatchSize int
	// IncludeNullColumns is carried for API completeness; this
	// implementation always emits every schema column per flush (spec's
	// distilled text does not describe a column-sparse block format).
	IncludeNullColumns bool
	// ProtocolRevision gates the custom-serialization byte, mirroring
	// chblock.Config.
	ProtocolRevision int
}

// DefaultConfig returns batch_size=10000, include_null_columns=true.
func DefaultConfig() Config {
	return Config{
		BatchSize:          10000,
		IncludeNullColumns: true,
		ProtocolRevision:   chblock.RevisionWithCustomSerialization,
	}
}

// Pipeline buffers rows of one caller-supplied type and flushes them as
// data-block messages once the buffer reaches Config.BatchSize (spec
// §4.7). A Pipeline is not safe for concurrent use.
type Pipeline struct {
	sink       Sink
	schema     []SchemaColumn
	extractors []Extractor
	cfg        Config

	rows        []reflect.Value
	completed   bool
	flushCount  int
	lastFlushed int
}

// New compiles (or cache-hits) the extractor set binding rowType's fields
// to schema, and returns a Pipeline ready to accept rows.
func New(sink Sink, rowType reflect.Type, schema []SchemaColumn, cfg Config) (*Pipeline, error) {
	if cfg.BatchSize <= 0 {
		return nil, cherr.New(cherr.Bug, "bulk_insert.batch_size must be positive, got %d", cfg.BatchSize)
	}
	if rowType.Kind() == reflect.Pointer {
		rowType = rowType.Elem()
	}

	key := cacheKey(rowType, schema)
	extractors, ok := extractorCache.Get(key)
	if !ok {
		built, err := buildExtractors(rowType, schema)
		if err != nil {
			return nil, err
		}
		extractorCache.Add(key, built)
		extractors = built
	}

	return &Pipeline{
		sink:       sink,
		schema:     schema,
		extractors: extractors,
		cfg:        cfg,
		rows:       make([]reflect.Value, 0, cfg.BatchSize),
	}, nil
}

// Add appends row to the buffer, dereferencing one pointer level, and
// triggers a flush once the buffer reaches Config.BatchSize.
func (p *Pipeline) Add(row any) error {
	if p.completed {
		return cherr.New(cherr.AlreadyCompleted, "bulk insert pipeline already completed")
	}
	rv := reflect.ValueOf(row)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	p.rows = append(p.rows, rv)
	if len(p.rows) >= p.cfg.BatchSize {
		return p.flush()
	}
	return nil
}

// flush serializes the buffered rows as one data-block message and sends
// it, then empties the buffer without reallocating its backing array.
func (p *Pipeline) flush() error {
	if len(p.rows) == 0 {
		return nil
	}
	w := chbin.NewWriter(64 + 32*len(p.rows))
	writeHeader(w, len(p.extractors), len(p.rows))

	for i, col := range p.schema {
		w.WriteString(col.Name)
		w.WriteString(col.TypeText)
		if p.cfg.ProtocolRevision >= chblock.RevisionWithCustomSerialization {
			w.WriteU8(0)
		}
		if err := p.extractors[i](w, p.rows, len(p.rows)); err != nil {
			return cherr.Wrap(cherr.KindOf(err), err, "flushing column %q", col.Name)
		}
	}

	if err := p.sink.Send(w.Bytes()); err != nil {
		return err
	}
	p.flushCount++
	p.lastFlushed = len(p.rows)
	p.rows = p.rows[:0]
	return nil
}

// Complete flushes any remaining buffered rows, then sends the empty
// terminator block (column_count=0, row_count=0) spec §4.7 requires.
func (p *Pipeline) Complete() error {
	if p.completed {
		return cherr.New(cherr.AlreadyCompleted, "bulk insert pipeline already completed")
	}
	if err := p.flush(); err != nil {
		return err
	}
	w := chbin.NewWriter(16)
	writeHeader(w, 0, 0)
	if err := p.sink.Send(w.Bytes()); err != nil {
		return err
	}
	p.completed = true
	return nil
}

// Dispose best-effort calls Complete if it has not already run, swallowing
// any error since the caller is already tearing the pipeline down.
func (p *Pipeline) Dispose() {
	if p.completed {
		return
	}
	_ = p.Complete()
}

// FlushCount reports how many non-terminator data-block messages have been
// sent so far, for callers (and tests) verifying the batch-boundary
// property (spec §8 property 8).
func (p *Pipeline) FlushCount() int { return p.flushCount }

// writeHeader emits the shared table_name/block_info/column_count/row_count
// prologue both flush and Complete use; the terminator block (spec §4.7
// "sends an empty block") is just this header with columnCount=rowCount=0.
func writeHeader(w *chbin.Writer, columnCount, rowCount int) {
	w.WriteString("")
	w.WriteVarint(1)
	w.WriteU8(0)
	w.WriteVarint(2)
	w.WriteI32(-1)
	w.WriteVarint(0)
	w.WriteVarint(uint64(columnCount))
	w.WriteVarint(uint64(rowCount))
}
