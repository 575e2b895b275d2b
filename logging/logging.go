// Package logging builds the structured loggers used across stonkboard.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// New creates a logger writing to w. Format "json" emits one JSON object per
// line; anything else uses the human readable console writer.
func New(level, format string, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	if level == "" {
		level = "info"
	}

	var writer log.Writer
	switch strings.ToLower(format) {
	case "json":
		writer = &log.IOWriter{Writer: w}
	default:
		writer = &log.ConsoleWriter{
			Writer:         w,
			ColorOutput:    w == os.Stderr || w == os.Stdout,
			QuoteString:    true,
			EndWithMessage: true,
		}
	}

	return &log.Logger{
		Level:      log.ParseLevel(level),
		TimeFormat: "2006-01-02T15:04:05Z07:00",
		Writer:     writer,
	}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	return &log.Logger{
		Level:  log.PanicLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}
}

// ValidLevel reports whether s names a level the logger understands.
func ValidLevel(s string) bool {
	switch strings.ToLower(s) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
		return true
	}
	return false
}
