package loader

import (
	"context"
	"time"

	"github.com/viant/vecbench/internal/logging"
	"github.com/viant/vecbench/internal/workpool"
	"github.com/viant/vecbench/vecerr"
	"github.com/viant/vecbench/vector"
)

// Stats summarizes a completed load.
type Stats struct {
	Records    int
	Elapsed    time.Duration
	Throughput float64 // records per second
}

// Loader writes every base vector into a store exactly once, keyed by its
// position in the input.
type Loader struct {
	store  vector.Store
	pool   workpool.Config
	logger *logging.Logger
}

// New creates a Loader for store.
func New(store vector.Store, opts ...Option) *Loader {
	l := &Loader{store: store, logger: logging.Noop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Workers returns the effective pool size.
func (l *Loader) Workers() int { return l.pool.EffectiveWorkers() }

// Load upserts vectors[i] under primary key i. It returns the first write
// failure, coded vecerr.CodeStoreWriteFailure with the failing pk, after
// the writes already in flight have finished. No record is dispatched once
// a write failed or ctx was cancelled.
func (l *Loader) Load(ctx context.Context, vectors []vector.Vector) (Stats, error) {
	if l.store == nil {
		return Stats{}, vecerr.New(vecerr.CodeLoaderInvalidInput, "loader has no store")
	}
	logger := l.logger.WithPhase("load").WithWorkers(l.Workers())
	started := time.Now()
	err := workpool.Run(ctx, len(vectors), l.pool, func(callCtx context.Context, pk int) error {
		err := l.store.UpsertOne(callCtx, pk, vectors[pk])
		if err != nil {
			err = writeError(err, pk)
			logger.LogUpsert(callCtx, pk, err)
		}
		return err
	})
	elapsed := time.Since(started)
	if err != nil {
		if vecerr.CodeOf(err) == "" && vecerr.IsCanceled(err) {
			err = vecerr.Wrap(err, vecerr.CodeCanceled, "load cancelled")
		}
		logger.LogPhase(ctx, "load", elapsed, err)
		return Stats{Elapsed: elapsed}, err
	}
	stats := Stats{Records: len(vectors), Elapsed: elapsed}
	if secs := elapsed.Seconds(); secs > 0 {
		stats.Throughput = float64(stats.Records) / secs
	}
	logger.LogPhase(ctx, "load", elapsed, nil)
	return stats, nil
}

func writeError(err error, pk int) error {
	if vecerr.CodeOf(err) == "" {
		return vecerr.Wrap(err, vecerr.CodeStoreWriteFailure, "upsert failed", vecerr.FieldPK(pk))
	}
	return vecerr.With(err, vecerr.FieldPK(pk))
}
