package main

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/vecbench/config"
	"github.com/viant/vecbench/dataset"
	"github.com/viant/vecbench/loader"
	"github.com/viant/vecbench/recall"
	"github.com/viant/vecbench/report"
	"github.com/viant/vecbench/vecerr"
	"github.com/viant/vecbench/vector"
)

type phase int

const (
	phaseLoad phase = 1 << iota
	phaseSearch
)

// benchmark runs the selected phases for dataset name. Only the recall
// value is written to stdout.
func (a *app) benchmark(ctx context.Context, name string, phases phase) error {
	cfg := a.cfg
	if phases&phaseLoad == 0 && cfg.Store.Backend == config.BackendMemory {
		return vecerr.New(vecerr.CodeCLIInputInvalid, "the memory backend keeps no data between runs; use the root command",
			vecerr.FieldDataset(name))
	}
	logger := a.log().WithDataset(name)
	files, err := a.resolve(ctx, name)
	if err != nil {
		return err
	}

	started := time.Now()
	var ds *dataset.Dataset
	switch {
	case phases&phaseSearch == 0:
		var base []vector.Vector
		if base, err = dataset.LoadVectors(files); err == nil {
			ds = &dataset.Dataset{Name: name, Base: base}
			if len(base) > 0 {
				ds.Dimension = len(base[0])
			}
		}
	case phases&phaseLoad == 0:
		ds, err = dataset.LoadQueries(files)
	default:
		ds, err = dataset.Load(ctx, files)
	}
	logger.LogPhase(ctx, "decode", time.Since(started), err)
	if err != nil {
		return err
	}

	st, err := a.openStore(ctx, storeRequest{
		dataset:   name,
		dimension: ds.Dimension,
		recreate:  cfg.Store.Recreate && phases&phaseLoad != 0,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(st); cerr != nil {
			logger.WarnContext(ctx, "closing store", "error", cerr)
		}
	}()

	rep := report.New(name, cfg.Store.Backend, indexLabel(cfg))
	if phases&phaseLoad != 0 {
		l := loader.New(st,
			loader.WithWorkers(cfg.Bench.Workers),
			loader.WithCallTimeout(cfg.Bench.CallTimeout),
			loader.WithRateLimit(cfg.Bench.RateLimit),
			loader.WithLogger(logger),
			loader.WithProgress(logger.Progress(ctx, "load")),
		)
		rep.Workers = l.Workers()
		loadStarted := time.Now()
		stats, err := l.Load(ctx, ds.Base)
		if err != nil {
			return vecerr.With(err, vecerr.FieldDataset(name))
		}
		if err := a.buildIndex(ctx, st); err != nil {
			return vecerr.With(err, vecerr.FieldDataset(name))
		}
		stats.Elapsed = time.Since(loadStarted)
		rep.AddLoad(stats, ds.Dimension)
	}

	if phases&phaseSearch != 0 {
		e := recall.New(st,
			recall.WithWorkers(cfg.Bench.Workers),
			recall.WithTopK(cfg.Bench.TopK),
			recall.WithRuns(cfg.Bench.Runs),
			recall.WithCallTimeout(cfg.Bench.CallTimeout),
			recall.WithRateLimit(cfg.Bench.RateLimit),
			recall.WithLogger(logger),
			recall.WithProgress(logger.Progress(ctx, "search")),
		)
		rep.Workers = e.Workers()
		res, err := e.Evaluate(ctx, ds.Queries, ds.GroundTruth)
		if err != nil {
			return vecerr.With(err, vecerr.FieldDataset(name))
		}
		rep.AddRecall(res)
		if res.SyntaxErrors > 0 {
			logger.WarnContext(ctx, "queries rejected as malformed", "count", res.SyntaxErrors)
		}
		fmt.Fprintf(a.stdout, "%.4f\n", res.Recall)
	}

	fmt.Fprintln(a.stderr, report.Summary(rep))
	return a.writeReport(rep)
}

// buildIndex asks stores with an on-demand index to build it now, so the
// build counts as import time instead of first-query latency.
func (a *app) buildIndex(ctx context.Context, st vector.Store) error {
	r, ok := st.(reindexer)
	if !ok || a.cfg.Store.Index == "sql" {
		return nil
	}
	started := time.Now()
	n, err := r.Reindex(ctx)
	a.log().LogPhase(ctx, "index build", time.Since(started), err)
	if err == nil {
		a.log().InfoContext(ctx, "index built", "records", n)
	}
	return err
}

func (a *app) resolve(ctx context.Context, name string) (dataset.Files, error) {
	cfg := a.cfg.Dataset
	files := dataset.Resolve(cfg.Root, name, dataset.Extensions{Vectors: cfg.VectorExt, Neighbors: cfg.NeighborExt})
	if !dataset.IsRemote(cfg.Root) {
		return files, nil
	}
	fetcher, err := dataset.NewS3Fetcher(ctx, cfg.CacheDir, a.log())
	if err != nil {
		return dataset.Files{}, vecerr.With(err, vecerr.FieldDataset(name))
	}
	return fetcher.Fetch(ctx, files)
}

func (a *app) writeReport(rep *report.Report) error {
	path := a.cfg.Report.Path
	if path == "" {
		return nil
	}
	format, err := report.ParseFormat(a.cfg.Report.Format)
	if err != nil {
		return err
	}
	if err := rep.WriteFile(path, format); err != nil {
		return err
	}
	a.log().Info("report written", "file", path, "run_id", rep.RunID)
	return nil
}

func indexLabel(cfg *config.Config) string {
	if cfg.Store.Backend != config.BackendSQLite {
		return ""
	}
	return cfg.Store.Index
}
