package loader

import (
	"time"

	"github.com/viant/vecbench/internal/logging"
	"github.com/viant/vecbench/internal/workpool"
)

// Option configures a Loader.
type Option func(*Loader)

// DefaultWorkers returns the pool size used when none is configured.
func DefaultWorkers() int { return workpool.DefaultWorkers() }

// WithWorkers sets the number of concurrent upserts. n <= 0 selects DefaultWorkers.
func WithWorkers(n int) Option {
	return func(l *Loader) { l.pool.Workers = n }
}

// WithCallTimeout bounds every upsert call.
func WithCallTimeout(d time.Duration) Option {
	return func(l *Loader) { l.pool.CallTimeout = d }
}

// WithRateLimit caps upserts per second; zero disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(l *Loader) { l.pool.RateLimit = perSecond }
}

// WithLogger sets the logger used for failures and the phase summary.
func WithLogger(logger *logging.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithProgress registers a callback invoked after every stored record.
func WithProgress(fn func(done, total int)) Option {
	return func(l *Loader) { l.pool.Progress = fn }
}
