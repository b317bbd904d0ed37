package recall

import (
	"time"

	"github.com/viant/vecbench/internal/logging"
)

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithWorkers sets the number of concurrent queries. n <= 0 selects the default pool size.
func WithWorkers(n int) Option {
	return func(e *Evaluator) { e.pool.Workers = n }
}

// WithTopK sets k. k <= 0 derives it from the size of the first ground-truth set.
func WithTopK(k int) Option {
	return func(e *Evaluator) { e.topK = k }
}

// WithRuns repeats the query set n times; values below 1 mean a single run.
func WithRuns(n int) Option {
	return func(e *Evaluator) { e.runs = n }
}

func WithCallTimeout(d time.Duration) Option {
	return func(e *Evaluator) { e.pool.CallTimeout = d }
}

// WithRateLimit caps queries per second; zero disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(e *Evaluator) { e.pool.RateLimit = perSecond }
}

func WithLogger(logger *logging.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProgress registers a callback invoked after every scored query.
func WithProgress(fn func(done, total int)) Option {
	return func(e *Evaluator) { e.pool.Progress = fn }
}
