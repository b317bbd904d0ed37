package main

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/viant/vecbench/config"
	"github.com/viant/vecbench/internal/logging"
	"github.com/viant/vecbench/vecerr"
)

type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *logging.Logger
	stdout io.Writer
	stderr io.Writer
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{v: viper.New(), stdout: stdout, stderr: stderr}
}

func (a *app) log() *logging.Logger {
	if a.logger == nil {
		a.logger = logging.NewText(a.stderr, logging.ParseLevel("info"))
	}
	return a.logger
}

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"root":          "dataset.root",
	"cache-dir":     "dataset.cache_dir",
	"vector-ext":    "dataset.vector_ext",
	"neighbor-ext":  "dataset.neighbor_ext",
	"backend":       "store.backend",
	"dsn":           "store.dsn",
	"table":         "store.table",
	"metric":        "store.metric",
	"index":         "store.index",
	"compression":   "store.compression",
	"max-conns":     "store.max_open_conns",
	"recreate":      "store.recreate",
	"workers":       "bench.workers",
	"top-k":         "bench.top_k",
	"runs":          "bench.runs",
	"call-timeout":  "bench.call_timeout",
	"rate-limit":    "bench.rate_limit",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"report":        "report.path",
	"report-format": "report.format",
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "vecbench <dataset_name>",
		Short:         "Benchmark ANN recall of a vector store",
		Long:          "vecbench loads <root>/<name>/<name>_base.fvecs into a vector store, queries it with <name>_query.fvecs and scores the answers against <name>_groundtruth.ivecs.",
		Args:          datasetArg,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.benchmark(cmd.Context(), args[0], phaseLoad|phaseSearch)
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "path to config file")
	flags.String("root", ".", "dataset root directory or s3://bucket/prefix")
	flags.String("cache-dir", "", "local cache for remote datasets")
	flags.String("vector-ext", "fvecs", "vector file extension")
	flags.String("neighbor-ext", "ivecs", "ground-truth file extension")
	flags.StringP("backend", "b", config.BackendSQLite, "store backend: sqlite, sqlitevec, badger or memory")
	flags.String("dsn", "", "store location (defaults to <dataset>.db or <dataset>.badger)")
	flags.String("table", "", "table name (defaults to the dataset name)")
	flags.String("metric", "l2", "distance metric: l2 or cosine")
	flags.String("index", "auto", "sqlite index: auto, brute, vptree, cover or sql")
	flags.String("compression", "zstd", "persisted sqlite index compression: zstd, lz4 or none")
	flags.Int("max-conns", 0, "sqlite connection pool size (0 leaves it unbounded)")
	flags.Bool("recreate", true, "drop and recreate the table before loading")
	flags.IntP("workers", "w", 0, "concurrent store calls (0 selects min(32, cpus+4))")
	flags.IntP("top-k", "k", 10, "neighbors requested per query (0 uses the ground-truth size)")
	flags.Int("runs", 1, "repetitions of the query set")
	flags.Duration("call-timeout", 0, "timeout of a single store call")
	flags.Float64("rate-limit", 0, "maximum store calls per second (0 is unlimited)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("report", "", "write a run report to this file")
	flags.String("report-format", "json", "report format: json or yaml")

	root.AddCommand(
		newLoadCmd(a),
		newSearchCmd(a),
		newReindexCmd(a),
		newGenCmd(a),
	)
	return root
}

// init resolves configuration with flag > env > file > default precedence.
func (a *app) init(cmd *cobra.Command) error {
	config.SetDefaults(a.v)
	config.SetupEnv(a.v)
	cfgFile, _ := cmd.Root().PersistentFlags().GetString("config")
	if err := config.ReadFile(a.v, cfgFile); err != nil {
		return err
	}
	var bindErr error
	cmd.Root().PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed || bindErr != nil {
			return
		}
		bindErr = a.v.BindPFlag(key, f)
	})
	if bindErr != nil {
		return vecerr.Wrap(bindErr, vecerr.CodeCLIInputInvalid, "binding flags")
	}
	cfg, err := config.FromViper(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if cfg.Log.Format == "json" {
		a.logger = logging.NewJSON(a.stderr, logging.ParseLevel(cfg.Log.Level))
	} else {
		a.logger = logging.NewText(a.stderr, logging.ParseLevel(cfg.Log.Level))
	}
	return nil
}

// datasetArg requires exactly one dataset name and prints usage otherwise.
func datasetArg(cmd *cobra.Command, args []string) error {
	if len(args) == 1 && args[0] != "" {
		return nil
	}
	_ = cmd.Usage()
	return vecerr.New(vecerr.CodeCLIInputInvalid, "expected exactly one dataset name",
		vecerr.Field("args", len(args)))
}
