package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/viant/vecbench/loader"
	"github.com/viant/vecbench/recall"
	"github.com/viant/vecbench/vecerr"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml and yml; empty selects json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", vecerr.New(vecerr.CodeReportWriteFailure, "unsupported report format", vecerr.Field("format", s))
}

// Report is one benchmark run. Times are in seconds.
type Report struct {
	RunID        string    `json:"runId" yaml:"run_id"`
	Dataset      string    `json:"dataset" yaml:"dataset"`
	Backend      string    `json:"backend" yaml:"backend"`
	Index        string    `json:"index,omitempty" yaml:"index,omitempty"`
	Workers      int       `json:"workers" yaml:"workers"`
	TopK         int       `json:"topK" yaml:"top_k"`
	Runs         int       `json:"runs" yaml:"runs"`
	Records      int       `json:"records" yaml:"records"`
	Dimension    int       `json:"dimension" yaml:"dimension"`
	ImportTime   float64   `json:"importTime" yaml:"import_time"`
	Recall       float64   `json:"recall" yaml:"recall"`
	QPS          float64   `json:"qps" yaml:"qps"`
	MeanLatency  float64   `json:"meanLatency" yaml:"mean_latency"`
	P50Latency   float64   `json:"p50Latency" yaml:"p50_latency"`
	P99Latency   float64   `json:"p99Latency" yaml:"p99_latency"`
	SyntaxErrors int64     `json:"syntaxErrors" yaml:"syntax_errors"`
	Timestamp    time.Time `json:"timestamp" yaml:"timestamp"`
}

// New starts a report with a fresh run id.
func New(dataset, backend, index string) *Report {
	return &Report{
		RunID:     uuid.New().String(),
		Dataset:   dataset,
		Backend:   backend,
		Index:     index,
		Timestamp: time.Now().UTC(),
	}
}

// AddLoad records the import phase.
func (r *Report) AddLoad(stats loader.Stats, dimension int) {
	r.Records = stats.Records
	r.Dimension = dimension
	r.ImportTime = stats.Elapsed.Seconds()
}

// AddRecall records the search phase.
func (r *Report) AddRecall(res recall.Result) {
	r.TopK = res.TopK
	r.Runs = res.Runs
	r.Recall = res.Recall
	r.QPS = res.QPS
	r.MeanLatency = res.MeanLatency.Seconds()
	r.P50Latency = res.P50Latency.Seconds()
	r.P99Latency = res.P99Latency.Seconds()
	r.SyntaxErrors = res.SyntaxErrors
}

// Write encodes r to w.
func (r *Report) Write(w io.Writer, format Format) error {
	var err error
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(r); err == nil {
			err = enc.Close()
		}
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(r)
	default:
		return vecerr.New(vecerr.CodeReportWriteFailure, "unsupported report format", vecerr.Field("format", string(format)))
	}
	if err != nil {
		return vecerr.Wrap(err, vecerr.CodeReportWriteFailure, "encoding report")
	}
	return nil
}

// WriteFile writes r to path, creating parent directories.
func (r *Report) WriteFile(path string, format Format) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return vecerr.Wrap(err, vecerr.CodeReportWriteFailure, "creating report directory", vecerr.FieldFile(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return vecerr.Wrap(err, vecerr.CodeReportWriteFailure, "creating report", vecerr.FieldFile(path))
	}
	if err := r.Write(f, format); err != nil {
		_ = f.Close()
		return vecerr.With(err, vecerr.FieldFile(path))
	}
	if err := f.Close(); err != nil {
		return vecerr.Wrap(err, vecerr.CodeReportWriteFailure, "closing report", vecerr.FieldFile(path))
	}
	return nil
}

func seconds(v float64) string {
	d := time.Duration(v * float64(time.Second))
	switch {
	case d == 0:
		return "-"
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	default:
		return d.Round(10 * time.Microsecond).String()
	}
}

func ratio(v float64) string { return fmt.Sprintf("%.4f", v) }
