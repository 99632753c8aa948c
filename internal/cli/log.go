// Package cli implements the graphsync command-line interface.
//
// The CLI loads a configured graph session from a backend store and either
// reports what it found (load) or keeps the session open behind an HTTP API
// that accepts diagram edits (serve). It is built on cobra and logs through
// charmbracelet/log; --verbose switches to debug level.
//
// # Commands
//
//   - load: run the ordered load against the backend and print a summary
//   - serve: load, then accept diagram commands over HTTP
//   - completion: generate shell completion scripts
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs the elapsed time of an operation when it is done.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time, rounded to the millisecond.
// Example output: "Loaded graph g1 (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
