package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/viant/vecbench/vecerr"
)

// Logger wraps slog.Logger with benchmark-specific field names.
type Logger struct {
	*slog.Logger
}

// New creates a Logger with the given handler. A nil handler logs text to
// stderr at info level.
func New(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewText creates a Logger writing human-readable text to w.
func NewText(w io.Writer, level slog.Level) *Logger {
	return New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewJSON creates a Logger writing JSON lines to w.
func NewJSON(w io.Writer, level slog.Level) *Logger {
	return New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Noop creates a Logger that discards all output.
func Noop() *Logger {
	return New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(1000)}))
}

// ParseLevel maps debug|info|warn|error to an slog level; unknown values
// fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Configure builds a stderr logger for the given format (text or json) and level.
func Configure(format, level string) *Logger {
	lvl := ParseLevel(level)
	if strings.EqualFold(format, "json") {
		return NewJSON(os.Stderr, lvl)
	}
	return NewText(os.Stderr, lvl)
}

// OrNoop returns l, or a discarding logger when l is nil.
func OrNoop(l *Logger) *Logger {
	if l == nil {
		return Noop()
	}
	return l
}

func (l *Logger) WithDataset(name string) *Logger {
	return &Logger{Logger: l.Logger.With("dataset", name)}
}

func (l *Logger) WithPhase(phase string) *Logger {
	return &Logger{Logger: l.Logger.With("phase", phase)}
}

func (l *Logger) WithWorkers(n int) *Logger {
	return &Logger{Logger: l.Logger.With("workers", n)}
}

// LogUpsert logs a single upsert.
func (l *Logger) LogUpsert(ctx context.Context, pk int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "upsert failed", "pk", pk, "code", string(vecerr.CodeOf(err)), "error", err)
		return
	}
	l.DebugContext(ctx, "upsert completed", "pk", pk)
}

// LogQuery logs a single query and its hit count.
func (l *Logger) LogQuery(ctx context.Context, query, k, hits int, err error) {
	if err != nil {
		l.WarnContext(ctx, "query failed", "query", query, "k", k, "code", string(vecerr.CodeOf(err)), "error", err)
		return
	}
	l.DebugContext(ctx, "query completed", "query", query, "k", k, "hits", hits)
}

// LogProgress logs done/total at info level.
func (l *Logger) LogProgress(ctx context.Context, done, total int) {
	l.InfoContext(ctx, "progress", "done", done, "total", total)
}

// LogPhase logs the end of a benchmark phase.
func (l *Logger) LogPhase(ctx context.Context, phase string, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, phase+" failed", "elapsed", elapsed, "code", string(vecerr.CodeOf(err)), "error", err)
		return
	}
	l.InfoContext(ctx, phase+" completed", "elapsed", elapsed)
}

// LogError logs err with its code and structured fields.
func (l *Logger) LogError(ctx context.Context, msg string, err error) {
	args := []any{"error", err}
	if code := vecerr.CodeOf(err); code != "" {
		args = append(args, "code", string(code))
	}
	for k, v := range vecerr.FieldsOf(err) {
		args = append(args, k, v)
	}
	l.ErrorContext(ctx, msg, args...)
}

// Progress returns a callback that logs every tenth of total, and the final
// record, for the named phase. It is safe for concurrent use.
func (l *Logger) Progress(ctx context.Context, phase string) func(done, total int) {
	var mu sync.Mutex
	last := 0
	return func(done, total int) {
		if total <= 0 {
			return
		}
		decile := done * 10 / total
		mu.Lock()
		if decile <= last {
			mu.Unlock()
			return
		}
		last = decile
		mu.Unlock()
		l.InfoContext(ctx, phase+" progress", "done", done, "total", total, "percent", decile*10)
	}
}
