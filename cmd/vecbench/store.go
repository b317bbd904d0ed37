package main

import (
	"context"
	"io"

	"github.com/viant/vecbench/config"
	"github.com/viant/vecbench/store/kvstore"
	"github.com/viant/vecbench/store/memstore"
	"github.com/viant/vecbench/store/sqlitestore"
	"github.com/viant/vecbench/store/sqlitevec"
	"github.com/viant/vecbench/vecerr"
	"github.com/viant/vecbench/vector"
)

// reindexer is implemented by stores that build their ANN index on demand.
type reindexer interface {
	Reindex(ctx context.Context) (int, error)
}

type storeRequest struct {
	dataset   string
	dimension int
	recreate  bool
}

func (a *app) openStore(ctx context.Context, req storeRequest) (vector.Store, error) {
	cfg := a.cfg
	metric, err := vector.ParseMetric(cfg.Store.Metric)
	if err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeCLIInputInvalid, "invalid metric")
	}
	dsn := cfg.DSNFor(req.dataset)
	table := cfg.TableFor(req.dataset)
	logger := a.log().With("backend", cfg.Store.Backend, "dsn", dsn)
	logger.DebugContext(ctx, "opening store", "table", table, "dimension", req.dimension, "recreate", req.recreate)

	var (
		s       vector.Store
		openErr error
	)
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		s, openErr = nilOnError(sqlitestore.Open(ctx, sqlitestore.Options{
			DSN:          dsn,
			Table:        table,
			Dimension:    req.dimension,
			Metric:       metric,
			Index:        cfg.Store.Index,
			Compression:  cfg.Store.Compression,
			MaxOpenConns: cfg.Store.MaxOpenConns,
			Recreate:     req.recreate,
		}))
	case config.BackendSQLiteVec:
		s, openErr = nilOnError(sqlitevec.Open(ctx, sqlitevec.Options{
			DSN:       dsn,
			Table:     table,
			Dimension: req.dimension,
			Metric:    metric,
			Recreate:  req.recreate,
		}))
	case config.BackendBadger:
		s, openErr = nilOnError(kvstore.Open(kvstore.Options{
			Dir:       dsn,
			Dimension: req.dimension,
			Metric:    metric,
			Recreate:  req.recreate,
			Logger:    a.log(),
		}))
	case config.BackendMemory:
		s = memstore.New(metric, req.dimension)
	default:
		openErr = vecerr.New(vecerr.CodeCLIInputInvalid, "unsupported backend", vecerr.Field("backend", cfg.Store.Backend))
	}
	if openErr != nil {
		return nil, vecerr.With(openErr, vecerr.FieldDataset(req.dataset))
	}
	return s, nil
}

// nilOnError keeps a failed constructor from yielding a non-nil interface
// holding a nil pointer.
func nilOnError[S vector.Store](s S, err error) (vector.Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

func closeStore(s vector.Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
