package recall_test

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/vecbench/loader"
	"github.com/viant/vecbench/recall"
	"github.com/viant/vecbench/store/memstore"
	"github.com/viant/vecbench/vecerr"
	"github.com/viant/vecbench/vector"
)

// answerStore identifies query i by its first component and answers from a
// fixed table, optionally failing some queries.
type answerStore struct {
	answers map[int]vector.QueryResult
	errs    map[int]error
	calls   atomic.Int32
	jitter  bool
}

func (s *answerStore) UpsertOne(context.Context, int, vector.Vector) error { return nil }

func (s *answerStore) Query(_ context.Context, v vector.Vector, topK int) (vector.QueryResult, error) {
	s.calls.Add(1)
	i := int(v[0])
	if s.jitter {
		time.Sleep(time.Duration(rand.Intn(300)) * time.Microsecond)
	}
	if err, ok := s.errs[i]; ok {
		return nil, err
	}
	res := s.answers[i]
	if len(res) > topK {
		res = res[:topK]
	}
	return res, nil
}

func queries(n int) []vector.Vector {
	out := make([]vector.Vector, n)
	for i := range out {
		out[i] = vector.Vector{float32(i), 0}
	}
	return out
}

func neighborSet(t *testing.T, pks ...int) vector.NeighborSet {
	t.Helper()
	set, err := vector.NewNeighborSet(pks...)
	require.NoError(t, err)
	return set
}

// truthOfTen gives query i the neighbors 10i..10i+9.
func truthOfTen(t *testing.T, n int) ([]vector.NeighborSet, map[int]vector.QueryResult) {
	truth := make([]vector.NeighborSet, n)
	answers := make(map[int]vector.QueryResult, n)
	for i := range truth {
		pks := make([]int, 10)
		for j := range pks {
			pks[j] = 10*i + j
		}
		truth[i] = neighborSet(t, pks...)
		answers[i] = pks
	}
	return truth, answers
}

func TestEvaluatePerfectRecall(t *testing.T) {
	truth, answers := truthOfTen(t, 20)
	e := recall.New(&answerStore{answers: answers}, recall.WithTopK(10), recall.WithWorkers(4))
	res, err := e.Evaluate(context.Background(), queries(20), truth)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Recall)
	assert.EqualValues(t, 200, res.Hits)
	assert.Equal(t, 20, res.Queries)
	assert.Equal(t, recall.Completed, e.State())
	assert.Positive(t, res.P99Latency)
	assert.GreaterOrEqual(t, res.P99Latency, res.P50Latency)
}

func TestEvaluateEmptyAnswers(t *testing.T) {
	truth, _ := truthOfTen(t, 5)
	res, err := recall.New(&answerStore{}, recall.WithTopK(10)).Evaluate(context.Background(), queries(5), truth)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Recall)
}

func TestEvaluateSyntaxErrorScoresZero(t *testing.T) {
	truth, answers := truthOfTen(t, 5)
	store := &answerStore{
		answers: answers,
		errs:    map[int]error{2: vecerr.New(vecerr.CodeStoreQuerySyntax, "malformed query")},
	}
	e := recall.New(store, recall.WithTopK(10), recall.WithWorkers(3))
	res, err := e.Evaluate(context.Background(), queries(5), truth)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, res.Recall, 1e-12)
	assert.EqualValues(t, 1, res.SyntaxErrors)
	assert.EqualValues(t, 5, store.calls.Load())
}

func TestEvaluateOtherErrorAborts(t *testing.T) {
	truth, answers := truthOfTen(t, 10)
	store := &answerStore{
		answers: answers,
		errs:    map[int]error{2: errors.New("connection refused")},
	}
	e := recall.New(store, recall.WithTopK(10), recall.WithWorkers(1))
	_, err := e.Evaluate(context.Background(), queries(10), truth)
	require.Error(t, err)
	assert.Equal(t, vecerr.KindStoreQuery, vecerr.KindOf(err))
	assert.Equal(t, 2, vecerr.FieldsOf(err)["query"])
	assert.EqualValues(t, 3, store.calls.Load())
	assert.Equal(t, recall.Aborted, e.State())
}

func TestEvaluateSizeMismatchBeforeAnyQuery(t *testing.T) {
	truth, answers := truthOfTen(t, 4)
	store := &answerStore{answers: answers}
	e := recall.New(store, recall.WithTopK(10))
	_, err := e.Evaluate(context.Background(), queries(5), truth)
	require.Error(t, err)
	assert.Equal(t, vecerr.KindDatasetSizeMismatch, vecerr.KindOf(err))
	assert.Equal(t, 5, vecerr.FieldsOf(err)["queries"])
	assert.Equal(t, 4, vecerr.FieldsOf(err)["ground_truth"])
	assert.Zero(t, store.calls.Load())
	assert.Equal(t, recall.Aborted, e.State())
}

func TestEvaluateInvariantToWorkers(t *testing.T) {
	const n = 60
	truth, answers := truthOfTen(t, n)
	for i := range answers {
		// query i finds i%11 true neighbors, padded with misses and a duplicate.
		res := append(vector.QueryResult{}, answers[i][:min(i%11, 10)]...)
		if len(res) > 0 {
			res = append(res, res[0])
		}
		for len(res) < 10 {
			res = append(res, 100000+len(res))
		}
		answers[i] = res
	}
	var recalls []float64
	for _, workers := range []int{1, 2, 8, 32} {
		store := &answerStore{answers: answers, jitter: true}
		res, err := recall.New(store, recall.WithTopK(10), recall.WithWorkers(workers)).
			Evaluate(context.Background(), queries(n), truth)
		require.NoError(t, err)
		recalls = append(recalls, res.Recall)
	}
	for _, r := range recalls[1:] {
		assert.Equal(t, recalls[0], r)
	}
	assert.Greater(t, recalls[0], 0.0)
	assert.Less(t, recalls[0], 1.0)
}

func TestEvaluateDuplicatesCountOnce(t *testing.T) {
	truth := []vector.NeighborSet{neighborSet(t, 1, 2, 3, 4)}
	store := &answerStore{answers: map[int]vector.QueryResult{0: {1, 1, 1, 1}}}
	res, err := recall.New(store, recall.WithTopK(4)).Evaluate(context.Background(), queries(1), truth)
	require.NoError(t, err)
	assert.Equal(t, 0.25, res.Recall)
}

func TestEvaluateDerivesTopKAndRuns(t *testing.T) {
	truth, answers := truthOfTen(t, 3)
	store := &answerStore{answers: answers}
	res, err := recall.New(store, recall.WithRuns(4)).Evaluate(context.Background(), queries(3), truth)
	require.NoError(t, err)
	assert.Equal(t, 10, res.TopK)
	assert.Equal(t, 4, res.Runs)
	assert.EqualValues(t, 12, store.calls.Load())
	assert.Equal(t, 1.0, res.Recall)
}

func TestEvaluateInvalidInput(t *testing.T) {
	_, err := recall.New(&answerStore{}).Evaluate(context.Background(), nil, nil)
	assert.Equal(t, vecerr.KindInvalidInput, vecerr.KindOf(err))

	empty := []vector.NeighborSet{neighborSet(t)}
	_, err = recall.New(&answerStore{}).Evaluate(context.Background(), queries(1), empty)
	assert.True(t, vecerr.HasCode(err, vecerr.CodeRecallInvalidInput))
}

func TestEvaluatorSingleUse(t *testing.T) {
	truth, answers := truthOfTen(t, 2)
	e := recall.New(&answerStore{answers: answers})
	assert.Equal(t, recall.NotStarted, e.State())
	_, err := e.Evaluate(context.Background(), queries(2), truth)
	require.NoError(t, err)
	_, err = e.Evaluate(context.Background(), queries(2), truth)
	assert.True(t, vecerr.HasCode(err, vecerr.CodeRecallStateInvalid))
	assert.Equal(t, recall.Completed, e.State())
}

func TestEvaluateCancelled(t *testing.T) {
	truth, answers := truthOfTen(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := recall.New(&answerStore{answers: answers}).Evaluate(ctx, queries(5), truth)
	assert.Equal(t, vecerr.KindCanceled, vecerr.KindOf(err))
}

func TestLoadThenEvaluateExactStore(t *testing.T) {
	base := make([]vector.Vector, 64)
	for i := range base {
		base[i] = vector.Vector{float32(i), float32(i * i % 7)}
	}
	s := memstore.New(vector.MetricL2, 2)
	_, err := loader.New(s, loader.WithWorkers(4)).Load(context.Background(), base)
	require.NoError(t, err)

	qs := []vector.Vector{base[3], base[40]}
	truth := make([]vector.NeighborSet, len(qs))
	for i, q := range qs {
		res, err := s.Query(context.Background(), q, 5)
		require.NoError(t, err)
		truth[i] = neighborSet(t, res...)
	}
	res, err := recall.New(s, recall.WithTopK(5)).Evaluate(context.Background(), qs, truth)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Recall)
}
