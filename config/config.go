package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/viant/vecbench/vecerr"
	"github.com/viant/vecbench/vector"
)

// EnvPrefix prefixes environment overrides, e.g. VECBENCH_STORE_BACKEND.
const EnvPrefix = "VECBENCH"

const (
	BackendSQLite    = "sqlite"
	BackendSQLiteVec = "sqlitevec"
	BackendBadger    = "badger"
	BackendMemory    = "memory"
)

// Backends lists the supported store backends.
var Backends = []string{BackendSQLite, BackendSQLiteVec, BackendBadger, BackendMemory}

var (
	sqliteIndexes      = []string{"auto", "brute", "vptree", "cover", "sql"}
	sqliteCompressions = []string{"zstd", "lz4", "none"}
)

type Config struct {
	Dataset DatasetConfig `mapstructure:"dataset"`
	Store   StoreConfig   `mapstructure:"store"`
	Bench   BenchConfig   `mapstructure:"bench"`
	Log     LogConfig     `mapstructure:"log"`
	Report  ReportConfig  `mapstructure:"report"`
}

type DatasetConfig struct {
	Root        string `mapstructure:"root"`
	CacheDir    string `mapstructure:"cache_dir"`
	VectorExt   string `mapstructure:"vector_ext"`
	NeighborExt string `mapstructure:"neighbor_ext"`
}

type StoreConfig struct {
	Backend      string `mapstructure:"backend"`
	DSN          string `mapstructure:"dsn"`
	Table        string `mapstructure:"table"`
	Metric       string `mapstructure:"metric"`
	Index        string `mapstructure:"index"`
	Compression  string `mapstructure:"compression"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	Recreate     bool   `mapstructure:"recreate"`
}

type BenchConfig struct {
	Workers     int           `mapstructure:"workers"`
	TopK        int           `mapstructure:"top_k"`
	Runs        int           `mapstructure:"runs"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	RateLimit   float64       `mapstructure:"rate_limit"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ReportConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("dataset.root", ".")
	v.SetDefault("dataset.cache_dir", "")
	v.SetDefault("dataset.vector_ext", "fvecs")
	v.SetDefault("dataset.neighbor_ext", "ivecs")

	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.table", "")
	v.SetDefault("store.metric", string(vector.MetricL2))
	v.SetDefault("store.index", "auto")
	v.SetDefault("store.compression", "zstd")
	v.SetDefault("store.max_open_conns", 0)
	v.SetDefault("store.recreate", true)

	v.SetDefault("bench.workers", 0)
	v.SetDefault("bench.top_k", 10)
	v.SetDefault("bench.runs", 1)
	v.SetDefault("bench.call_timeout", 30*time.Second)
	v.SetDefault("bench.rate_limit", 0.0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("report.path", "")
	v.SetDefault("report.format", "json")
}

// SetupEnv maps nested keys to VECBENCH_<SECTION>_<KEY> variables.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// ReadFile reads path, or discovers vecbench.yaml in the working directory
// and $HOME/.config/vecbench when path is empty. A missing discovered file
// is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return vecerr.Wrap(err, vecerr.CodeConfigReadFailure, "reading config file", vecerr.FieldFile(path))
		}
		return nil
	}
	v.SetConfigName("vecbench")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/vecbench")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return vecerr.Wrap(err, vecerr.CodeConfigReadFailure, "reading config")
		}
	}
	return nil
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeConfigInvalidValue, "decoding config")
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, vecerr.Wrap(errors.Join(errs...), vecerr.CodeConfigInvalidValue, "validating config")
	}
	return &cfg, nil
}

// Load builds a Config from defaults, the environment and an optional file.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)
	if err := ReadFile(v, path); err != nil {
		return nil, err
	}
	return FromViper(v)
}

// Validate reports every invalid setting.
func (c *Config) Validate() []error {
	var errs []error
	errs = append(errs, c.validateDataset()...)
	errs = append(errs, c.validateStore()...)
	errs = append(errs, c.validateBench()...)
	errs = append(errs, c.validateOutput()...)
	return errs
}

func (c *Config) validateDataset() []error {
	var errs []error
	if strings.TrimSpace(c.Dataset.VectorExt) == "" {
		errs = append(errs, invalid("dataset.vector_ext must not be empty"))
	}
	if strings.TrimSpace(c.Dataset.NeighborExt) == "" {
		errs = append(errs, invalid("dataset.neighbor_ext must not be empty"))
	}
	return errs
}

func (c *Config) validateStore() []error {
	var errs []error
	if !slices.Contains(Backends, c.Store.Backend) {
		errs = append(errs, invalid("store.backend must be one of [%s], got %q", strings.Join(Backends, ", "), c.Store.Backend))
	}
	if _, err := vector.ParseMetric(c.Store.Metric); err != nil {
		errs = append(errs, invalid("store.metric must be l2 or cosine, got %q", c.Store.Metric))
	}
	if c.Store.Backend == BackendSQLite && !slices.Contains(sqliteIndexes, c.Store.Index) {
		errs = append(errs, invalid("store.index must be one of [%s], got %q", strings.Join(sqliteIndexes, ", "), c.Store.Index))
	}
	if c.Store.Backend == BackendSQLite && !slices.Contains(sqliteCompressions, strings.ToLower(c.Store.Compression)) {
		errs = append(errs, invalid("store.compression must be one of [%s], got %q", strings.Join(sqliteCompressions, ", "), c.Store.Compression))
	}
	if c.Store.MaxOpenConns < 0 {
		errs = append(errs, invalid("store.max_open_conns must be >= 0, got %d", c.Store.MaxOpenConns))
	}
	if c.Store.DSN == ":memory:" && c.Store.Backend == BackendSQLite {
		errs = append(errs, invalid("store.dsn must name a file for the sqlite backend"))
	}
	return errs
}

func (c *Config) validateBench() []error {
	var errs []error
	if c.Bench.Workers < 0 {
		errs = append(errs, invalid("bench.workers must be >= 0, got %d", c.Bench.Workers))
	}
	if c.Bench.TopK < 0 {
		errs = append(errs, invalid("bench.top_k must be >= 0, got %d", c.Bench.TopK))
	}
	if c.Bench.Runs < 1 {
		errs = append(errs, invalid("bench.runs must be >= 1, got %d", c.Bench.Runs))
	}
	if c.Bench.CallTimeout < 0 {
		errs = append(errs, invalid("bench.call_timeout must not be negative, got %s", c.Bench.CallTimeout))
	}
	if c.Bench.RateLimit < 0 {
		errs = append(errs, invalid("bench.rate_limit must not be negative, got %g", c.Bench.RateLimit))
	}
	return errs
}

func (c *Config) validateOutput() []error {
	var errs []error
	if !slices.Contains([]string{"debug", "info", "warn", "warning", "error"}, strings.ToLower(c.Log.Level)) {
		errs = append(errs, invalid("log.level must be one of [debug, info, warn, error], got %q", c.Log.Level))
	}
	if !slices.Contains([]string{"text", "json"}, strings.ToLower(c.Log.Format)) {
		errs = append(errs, invalid("log.format must be text or json, got %q", c.Log.Format))
	}
	if !slices.Contains([]string{"json", "yaml", "yml"}, strings.ToLower(c.Report.Format)) {
		errs = append(errs, invalid("report.format must be json or yaml, got %q", c.Report.Format))
	}
	return errs
}

// TableFor returns the configured table, or the dataset name.
func (c *Config) TableFor(dataset string) string {
	if c.Store.Table != "" {
		return c.Store.Table
	}
	return sanitizeTable(dataset)
}

// DSNFor returns the configured DSN, or a per-backend default location.
func (c *Config) DSNFor(dataset string) string {
	if c.Store.DSN != "" {
		return c.Store.DSN
	}
	switch c.Store.Backend {
	case BackendBadger:
		return dataset + ".badger"
	default:
		return dataset + ".db"
	}
}

func sanitizeTable(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "vectors"
	}
	return b.String()
}

func invalid(format string, args ...any) error {
	return vecerr.New(vecerr.CodeConfigInvalidValue, "config: "+fmt.Sprintf(format, args...))
}
