// Package chlog provides simple leveled logging for the codec internals.
//
// Time/date are left to the caller's log aggregator; this only prefixes
// severity the way systemd understands it (see sd-daemon(3)).
package chlog

import (
	"fmt"
	"io"
	"log"
	"os"
)

var (
	DebugWriter io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
)

var (
	DebugPrefix string = "<7>[chcodec][DEBUG] "
	WarnPrefix  string = "<4>[chcodec][WARN]  "
	ErrPrefix   string = "<3>[chcodec][ERROR] "
)

var (
	debugLog *log.Logger = log.New(DebugWriter, DebugPrefix, 0)
	warnLog  *log.Logger = log.New(WarnWriter, WarnPrefix, log.Lshortfile)
	errLog   *log.Logger = log.New(ErrWriter, ErrPrefix, log.Lshortfile)
)

// SetLevel controls which levels reach their writer. Valid values are
// "debug", "warn" and "err" (anything else disables only nothing).
func SetLevel(level string) {
	switch level {
	case "err":
		WarnWriter = io.Discard
		warnLog.SetOutput(WarnWriter)
		fallthrough
	case "warn":
		DebugWriter = io.Discard
		debugLog.SetOutput(DebugWriter)
	case "debug":
		// nothing discarded
	}
}

func Debugf(format string, v ...interface{}) {
	if DebugWriter != io.Discard {
		debugLog.Output(2, fmt.Sprintf(format, v...))
	}
}

func Warnf(format string, v ...interface{}) {
	if WarnWriter != io.Discard {
		warnLog.Output(2, fmt.Sprintf(format, v...))
	}
}

func Errorf(format string, v ...interface{}) {
	if ErrWriter != io.Discard {
		errLog.Output(2, fmt.Sprintf(format, v...))
	}
}
