package chblock

import (
	"sync/atomic"

	"github.com/clickhouse-native-go/chcodec/pkg/chcodec"
	"github.com/clickhouse-native-go/chcodec/pkg/cherr"
)

// RevisionWithCustomSerialization is the negotiated protocol revision at
// or above which a column descriptor carries a custom-serialization byte
// (spec §4.5 step 4). Below it, the field is absent on the wire entirely.
const RevisionWithCustomSerialization = 54454

// Config holds the block assembler's field-level knobs.
type Config struct {
	// ProtocolRevision gates the custom-serialization byte per column.
	ProtocolRevision int
}

// DefaultConfig assumes a protocol revision that already carries
// custom serialization, the common case for a freshly negotiated session.
func DefaultConfig() Config {
	return Config{ProtocolRevision: RevisionWithCustomSerialization}
}

// Assembler reads and writes blocks against one codec instance. It is not
// safe for concurrent use (spec §5: single logical connection per
// instance) and, once poisoned by a Truncated or Checksum error, fails
// every subsequent call fast (spec §7).
type Assembler struct {
	codec    *chcodec.Codec
	cfg      Config
	poisoned atomic.Bool
}

// New builds an Assembler over codec with cfg.
func New(codec *chcodec.Codec, cfg Config) *Assembler {
	return &Assembler{codec: codec, cfg: cfg}
}

// Poisoned reports whether a prior Truncated or Checksum error, or a
// scan/parse byte-count disagreement in ReadBlock, has permanently
// disabled this assembler.
func (a *Assembler) Poisoned() bool { return a.poisoned.Load() }

func (a *Assembler) checkNotPoisoned() error {
	if a.poisoned.Load() {
		return cherr.New(cherr.Poisoned, "block assembler poisoned by a prior Truncated or Checksum error")
	}
	return nil
}

// maybePoison flips the poison flag only for the two error kinds spec §7
// names as poisoning; MalformedType, SchemaMismatch, and the like are
// reportable without condemning the rest of the connection.
func (a *Assembler) maybePoison(err error) {
	switch cherr.KindOf(err) {
	case cherr.Truncated, cherr.Checksum:
		a.poisoned.Store(true)
	}
}
