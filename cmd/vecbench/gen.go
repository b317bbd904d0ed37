package main

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/viant/vecbench/dataset"
	"github.com/viant/vecbench/index/bruteforce"
	"github.com/viant/vecbench/vecerr"
	"github.com/viant/vecbench/vecfile"
	"github.com/viant/vecbench/vector"
)

type genOptions struct {
	base    int
	queries int
	dim     int
	k       int
	seed    int64
}

func newGenCmd(a *app) *cobra.Command {
	opts := genOptions{}
	cmd := &cobra.Command{
		Use:   "gen <dir> <dataset_name>",
		Short: "Write a synthetic dataset with exact ground truth",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				return nil
			}
			_ = cmd.Usage()
			return vecerr.New(vecerr.CodeCLIInputInvalid, "expected a directory and a dataset name", vecerr.Field("args", len(args)))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			metric, err := vector.ParseMetric(a.cfg.Store.Metric)
			if err != nil {
				return vecerr.Wrap(err, vecerr.CodeCLIInputInvalid, "invalid metric")
			}
			files, err := generate(cmd.Context(), args[0], args[1], metric, opts)
			if err != nil {
				return err
			}
			a.log().InfoContext(cmd.Context(), "dataset written",
				"dataset", files.Name, "base", files.Base, "records", opts.base, "queries", opts.queries, "dimension", opts.dim)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.base, "count", 1000, "number of base vectors")
	cmd.Flags().IntVar(&opts.queries, "queries", 50, "number of query vectors")
	cmd.Flags().IntVar(&opts.dim, "dim", 16, "vector dimension")
	cmd.Flags().IntVar(&opts.k, "gt-k", 10, "ground-truth neighbors per query")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "random seed")
	return cmd
}

// generate writes uniformly random base and query vectors and the exact
// nearest neighbors of every query under metric.
func generate(ctx context.Context, dir, name string, metric vector.Metric, opts genOptions) (dataset.Files, error) {
	if opts.base <= 0 || opts.queries <= 0 || opts.dim <= 0 || opts.k <= 0 {
		return dataset.Files{}, vecerr.New(vecerr.CodeCLIInputInvalid, "count, queries, dim and gt-k must be positive")
	}
	files := dataset.Resolve(dir, name, dataset.DefaultExtensions)
	if err := os.MkdirAll(filepath.Dir(files.Base), 0o755); err != nil {
		return dataset.Files{}, vecerr.Wrap(err, vecerr.CodeFileWriteFailure, "creating dataset directory", vecerr.FieldFile(files.Base))
	}

	rng := rand.New(rand.NewSource(opts.seed))
	random := func(n int) []vector.Vector {
		out := make([]vector.Vector, n)
		for i := range out {
			v := make(vector.Vector, opts.dim)
			for j := range v {
				v[j] = rng.Float32()
			}
			out[i] = v
		}
		return out
	}
	base, queries := random(opts.base), random(opts.queries)

	ids := make([]int64, len(base))
	raw := make([][]float32, len(base))
	for i, v := range base {
		ids[i] = int64(i)
		raw[i] = v
	}
	exact := bruteforce.New(metric)
	if err := exact.Build(ids, raw); err != nil {
		return dataset.Files{}, vecerr.Wrap(err, vecerr.CodeFileWriteFailure, "building ground truth")
	}
	truth := make([][]int32, len(queries))
	for i, q := range queries {
		if err := ctx.Err(); err != nil {
			return dataset.Files{}, vecerr.Wrap(err, vecerr.CodeCanceled, "generation cancelled")
		}
		nearest, _, err := exact.Query(q, opts.k)
		if err != nil {
			return dataset.Files{}, vecerr.Wrap(err, vecerr.CodeFileWriteFailure, "computing ground truth", vecerr.FieldQuery(i))
		}
		truth[i] = make([]int32, len(nearest))
		for j, id := range nearest {
			truth[i][j] = int32(id)
		}
	}

	if err := vecfile.CreateVectors(files.Base, base); err != nil {
		return dataset.Files{}, err
	}
	if err := vecfile.CreateVectors(files.Query, queries); err != nil {
		return dataset.Files{}, err
	}
	if err := vecfile.CreateNeighborSets(files.GroundTruth, truth); err != nil {
		return dataset.Files{}, err
	}
	return files, nil
}
