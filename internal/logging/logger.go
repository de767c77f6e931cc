// Package logging holds the structured logger shared by the markup packages.
// Nothing is logged until a binary installs a logger with SetLogger.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gogpu/gg"
)

// nopHandler discards every record. Enabled reports false so callers skip
// formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger installs l for every markup package and for the gg rasterizer.
// Pass nil to go back to silence. Safe for concurrent use.
//
// Levels in use:
//   - [slog.LevelDebug]: interaction state transitions, watcher events
//   - [slog.LevelInfo]: lifecycle (server listening, diagram loaded)
//   - [slog.LevelWarn]: recoverable failures (decode errors, sidecar writes)
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	gg.SetLogger(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// FromEnv installs a debug-level text logger writing to w when the named
// environment variable is set to "1", and reports whether it did.
func FromEnv(name string, w io.Writer) bool {
	if os.Getenv(name) != "1" {
		return false
	}
	SetLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return true
}
