// Package logging builds the CLI's loggers: a human-readable console stream
// plus a JSON run log kept on disk for each migration run.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/alnah/go-kibela2esa/internal/fileutil"
)

// RunIDKey is the attribute every record of a run carries.
const RunIDKey = "run_id"

// Options configures New.
type Options struct {
	// Console receives text records at ConsoleLevel. Nil disables it.
	Console      io.Writer
	ConsoleLevel slog.Level
	// File receives every record at debug level as JSON. Nil disables it.
	File io.Writer
	// RunID is attached to every record when non-empty.
	RunID string
}

// New returns a logger writing to the configured sinks. With no sinks it
// discards everything.
func New(opts Options) *slog.Logger {
	var handlers []slog.Handler
	if opts.Console != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.Console, &slog.HandlerOptions{
			Level: opts.ConsoleLevel,
		}))
	}
	if opts.File != nil {
		handlers = append(handlers, slog.NewJSONHandler(opts.File, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	var logger *slog.Logger
	switch len(handlers) {
	case 0:
		return slog.New(slog.DiscardHandler)
	case 1:
		logger = slog.New(handlers[0])
	default:
		logger = slog.New(fanout(handlers))
	}
	if opts.RunID != "" {
		logger = logger.With(RunIDKey, opts.RunID)
	}
	return logger
}

// NewRunID returns a fresh identifier for one migration run.
func NewRunID() string {
	return uuid.NewString()
}

// RunLogName is the file name of the run log started at t.
func RunLogName(t time.Time) string {
	return "log_" + strconv.FormatInt(t.Unix(), 10) + ".log"
}

// OpenRunLog creates dir if needed and opens a new run log in it.
// The caller closes the file.
func OpenRunLog(dir string, now time.Time) (*os.File, error) {
	if dir == "" {
		dir = "."
	}
	if err := fileutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	path := filepath.Join(dir, RunLogName(now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 -- log dir is user-provided
	if err != nil {
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	return f, nil
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
