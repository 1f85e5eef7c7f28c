package chtype

import (
	"fmt"

	"github.com/clickhouse-native-go/chcodec/pkg/cherr"
)

// GrammarError reports a structured parse failure: the byte offset into
// Input where parsing broke down, plus a human-readable reason. Parse wraps
// it in a cherr.Error of kind MalformedType (see AsMalformedType), with the
// GrammarError kept as the Cause.
type GrammarError struct {
	Offset int
	Input  string
	msg    string
}

func (e *GrammarError) Error() string {
	return fmt.Sprintf("malformed type %q at offset %d: %s", e.Input, e.Offset, e.msg)
}

// AsMalformedType converts a GrammarError (or any error) into a
// *cherr.Error of kind MalformedType.
func AsMalformedType(err error) *cherr.Error {
	if err == nil {
		return nil
	}
	return cherr.Wrap(cherr.MalformedType, err, "type grammar error")
}
