// Package obslog provides the run-level structured logger (§[EXPANSION]
// AMBIENT STACK / Logging): indexed/duplicate/skipped/failed events, the
// final tally, and signal-triggered shutdown, all via rs/zerolog. This is
// deliberately separate from internal/debug's high-volume trace logging —
// obslog is for the handful of events an operator actually wants to see.
package obslog

import (
	"errors"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps a configured zerolog.Logger for the indexer's run-level
// events.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger writing JSON lines to out, or a console-pretty
// rendering when pretty is true. New does not inspect out itself; the
// caller decides whether out is a terminal.
func New(out io.Writer, pretty bool) *Logger {
	if out == nil {
		out = os.Stderr
	}
	if pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	zl := zerolog.New(out).With().Timestamp().Str("component", "indexer").Logger()
	return &Logger{zl: zl}
}

// WithRun returns a copy of l that tags every subsequent line with runID,
// correlating one process's log lines across a single scan run.
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{zl: l.zl.With().Str("run_id", runID).Logger()}
}

// Indexed logs a successful conversion.
func (l *Logger) Indexed(kind, id, file string) {
	l.zl.Info().Str("event", "indexed").Str("kind", kind).Str("id", id).Str("file", file).Send()
}

// Duplicate logs an occurrence merged into an existing record.
func (l *Logger) Duplicate(kind, id, file string) {
	l.zl.Info().Str("event", "duplicate").Str("kind", kind).Str("id", id).Str("file", file).Send()
}

// Skipped logs a file bypassed via the indexed-path cache.
func (l *Logger) Skipped(kind, file string) {
	l.zl.Debug().Str("event", "skipped").Str("kind", kind).Str("file", file).Send()
}

// Failed logs a per-file processing failure.
func (l *Logger) Failed(kind, file string, err error) {
	l.zl.Error().Str("event", "failed").Str("kind", kind).Str("file", file).Err(err).Send()
}

// Shutdown logs a signal-triggered graceful shutdown.
func (l *Logger) Shutdown(signal string) {
	l.zl.Warn().Str("event", "shutdown").Str("signal", signal).Msg("shutting down, flushing cache")
}

// Tally logs the final run summary (§7's "user-visible behavior").
func (l *Logger) Tally(converted, duplicates, skipped, failed int64) {
	l.zl.Info().
		Str("event", "tally").
		Int64("converted", converted).
		Int64("duplicates", duplicates).
		Int64("skipped", skipped).
		Int64("failed", failed).
		Msg("run complete")
}

// EventSink adapts Logger to common.EventSink so it can be wired directly
// into Policy.Events.
type EventSink struct {
	Logger *Logger
}

func (e EventSink) Emit(event string, payload map[string]any) {
	kind, _ := payload["kind"].(string)
	file, _ := payload["file"].(string)
	id, _ := payload["id"].(string)

	switch {
	case hasPrefix(event, "indexed:"):
		e.Logger.Indexed(kindOrSuffix(event, kind), id, file)
	case hasPrefix(event, "duplicate:"):
		e.Logger.Duplicate(kindOrSuffix(event, kind), id, file)
	case hasPrefix(event, "skipped:"):
		e.Logger.Skipped(kindOrSuffix(event, kind), file)
	case hasPrefix(event, "failed:"):
		msg, _ := payload["error"].(string)
		if msg == "" {
			msg = "unknown error"
		}
		e.Logger.Failed(kindOrSuffix(event, kind), file, errors.New(msg))
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func kindOrSuffix(event, kind string) string {
	if kind != "" {
		return kind
	}
	for i := len(event) - 1; i >= 0; i-- {
		if event[i] == ':' {
			return event[i+1:]
		}
	}
	return event
}
