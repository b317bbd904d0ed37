package recall

import (
	"context"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"github.com/viant/vecbench/internal/logging"
	"github.com/viant/vecbench/internal/workpool"
	"github.com/viant/vecbench/vecerr"
	"github.com/viant/vecbench/vector"
)

// State is the lifecycle of an Evaluator.
type State int32

const (
	NotStarted State = iota
	Running
	Completed
	Aborted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result is the outcome of one evaluation.
type Result struct {
	Recall       float64
	TopK         int
	Queries      int
	Runs         int
	Hits         int64
	SyntaxErrors int64
	Elapsed      time.Duration
	QPS          float64
	MeanLatency  time.Duration
	P50Latency   time.Duration
	P99Latency   time.Duration
}

// Evaluator runs a single recall@k evaluation.
type Evaluator struct {
	store  vector.Store
	pool   workpool.Config
	topK   int
	runs   int
	logger *logging.Logger
	state  atomic.Int32
}

// New creates an Evaluator querying store.
func New(store vector.Store, opts ...Option) *Evaluator {
	e := &Evaluator{store: store, runs: 1, logger: logging.Noop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.runs < 1 {
		e.runs = 1
	}
	return e
}

// State returns the current lifecycle state.
func (e *Evaluator) State() State { return State(e.state.Load()) }

// Workers returns the effective pool size.
func (e *Evaluator) Workers() int { return e.pool.EffectiveWorkers() }

// Evaluate issues queries[i] for every i (once per run) and scores the
// distinct returned pks found in truth[i]. Inputs are validated before any
// query is issued. An Evaluator can be used once.
func (e *Evaluator) Evaluate(ctx context.Context, queries []vector.Vector, truth []vector.NeighborSet) (Result, error) {
	if !e.state.CompareAndSwap(int32(NotStarted), int32(Running)) {
		return Result{}, vecerr.New(vecerr.CodeRecallStateInvalid, "evaluator already used",
			vecerr.Field("state", e.State().String()))
	}
	result, err := e.evaluate(ctx, queries, truth)
	if err != nil {
		e.state.Store(int32(Aborted))
		return result, err
	}
	e.state.Store(int32(Completed))
	return result, nil
}

func (e *Evaluator) evaluate(ctx context.Context, queries []vector.Vector, truth []vector.NeighborSet) (Result, error) {
	topK, err := e.validate(queries, truth)
	if err != nil {
		return Result{}, err
	}
	logger := e.logger.WithPhase("search").WithWorkers(e.Workers())
	total := len(queries) * e.runs
	latencies := make([]time.Duration, total)
	var hits, syntaxErrors atomic.Int64

	started := time.Now()
	err = workpool.Run(ctx, total, e.pool, func(callCtx context.Context, n int) error {
		i := n % len(queries)
		callStart := time.Now()
		res, err := e.store.Query(callCtx, queries[i], topK)
		if err == nil {
			latencies[n] = time.Since(callStart)
			h := truth[i].Hits(res, topK)
			hits.Add(int64(h))
			logger.LogQuery(callCtx, i, topK, h, nil)
			return nil
		}
		switch vecerr.KindOf(err) {
		case vecerr.KindStoreSyntax:
			syntaxErrors.Add(1)
			logger.LogQuery(callCtx, i, topK, 0, err)
			return nil
		default:
			err = queryError(err, i)
			logger.LogQuery(callCtx, i, topK, 0, err)
			return err
		}
	})
	elapsed := time.Since(started)
	if err != nil {
		if vecerr.CodeOf(err) == "" && vecerr.IsCanceled(err) {
			err = vecerr.Wrap(err, vecerr.CodeCanceled, "evaluation cancelled")
		}
		logger.LogPhase(ctx, "search", elapsed, err)
		return Result{TopK: topK, Queries: len(queries), Runs: e.runs, Elapsed: elapsed}, err
	}

	result := Result{
		TopK:         topK,
		Queries:      len(queries),
		Runs:         e.runs,
		Hits:         hits.Load(),
		SyntaxErrors: syntaxErrors.Load(),
		Elapsed:      elapsed,
	}
	result.Recall = float64(result.Hits) / float64(int64(total)*int64(topK))
	if secs := elapsed.Seconds(); secs > 0 {
		result.QPS = float64(total) / secs
	}
	result.MeanLatency, result.P50Latency, result.P99Latency = summarize(latencies)
	logger.LogPhase(ctx, "search", elapsed, nil)
	return result, nil
}

func (e *Evaluator) validate(queries []vector.Vector, truth []vector.NeighborSet) (int, error) {
	if e.store == nil {
		return 0, vecerr.New(vecerr.CodeRecallInvalidInput, "evaluator has no store")
	}
	if len(queries) != len(truth) {
		return 0, vecerr.New(vecerr.CodeDatasetSizeMismatch, "query and ground truth counts differ",
			vecerr.Field("queries", len(queries)),
			vecerr.Field("ground_truth", len(truth)),
		)
	}
	if len(queries) == 0 {
		return 0, vecerr.New(vecerr.CodeRecallInvalidInput, "empty query set")
	}
	topK := e.topK
	if topK <= 0 {
		topK = truth[0].Len()
	}
	if topK <= 0 {
		return 0, vecerr.New(vecerr.CodeRecallInvalidInput, "top k is zero and ground truth is empty")
	}
	return topK, nil
}

func queryError(err error, query int) error {
	if vecerr.CodeOf(err) == "" {
		return vecerr.Wrap(err, vecerr.CodeStoreQueryFailure, "query failed", vecerr.FieldQuery(query))
	}
	return vecerr.With(err, vecerr.FieldQuery(query))
}

// summarize returns mean, p50 and p99 of the measured latencies; zero
// entries are queries without a successful answer.
func summarize(latencies []time.Duration) (mean, p50, p99 time.Duration) {
	measured := make([]time.Duration, 0, len(latencies))
	var sum time.Duration
	for _, d := range latencies {
		if d > 0 {
			measured = append(measured, d)
			sum += d
		}
	}
	if len(measured) == 0 {
		return 0, 0, 0
	}
	slices.Sort(measured)
	return sum / time.Duration(len(measured)), percentile(measured, 0.50), percentile(measured, 0.99)
}

// percentile uses the nearest-rank method on sorted values.
func percentile(sorted []time.Duration, p float64) time.Duration {
	rank := int(math.Ceil(p * float64(len(sorted))))
	return sorted[max(rank, 1)-1]
}
