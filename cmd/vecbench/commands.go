package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/viant/vecbench/config"
	"github.com/viant/vecbench/vecerr"
)

func newLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load <dataset_name>",
		Short: "Load the base vectors into the store",
		Args:  datasetArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.benchmark(cmd.Context(), args[0], phaseLoad)
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <dataset_name>",
		Short: "Score the query set against an already loaded store",
		Args:  datasetArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.benchmark(cmd.Context(), args[0], phaseSearch)
		},
	}
}

func newReindexCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex <dataset_name>",
		Short: "Rebuild and persist the ANN index of a sqlite table",
		Args:  datasetArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.reindex(cmd.Context(), args[0])
		},
	}
}

func (a *app) reindex(ctx context.Context, name string) error {
	if a.cfg.Store.Backend != config.BackendSQLite {
		return vecerr.New(vecerr.CodeCLIInputInvalid, "reindex needs the sqlite backend",
			vecerr.Field("backend", a.cfg.Store.Backend))
	}
	st, err := a.openStore(ctx, storeRequest{dataset: name})
	if err != nil {
		return err
	}
	defer closeStore(st)
	r, ok := st.(reindexer)
	if !ok {
		return vecerr.New(vecerr.CodeCLIInputInvalid, "store cannot reindex", vecerr.FieldDataset(name))
	}
	started := time.Now()
	n, err := r.Reindex(ctx)
	a.log().LogPhase(ctx, "reindex", time.Since(started), err)
	if err != nil {
		return vecerr.With(err, vecerr.FieldDataset(name))
	}
	a.log().InfoContext(ctx, "index rebuilt", "dataset", name, "records", n)
	return nil
}
