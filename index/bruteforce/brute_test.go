package bruteforce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/vecbench/index"
	"github.com/viant/vecbench/vector"
)

func grid() ([]int64, [][]float32) {
	ids := []int64{10, 11, 12, 13}
	vecs := [][]float32{{0, 0}, {1, 0}, {0, 2}, {3, 3}}
	return ids, vecs
}

func TestQueryL2Order(t *testing.T) {
	idx := New(vector.MetricL2)
	ids, vecs := grid()
	require.NoError(t, idx.Build(ids, vecs))

	got, dists, err := idx.Query([]float32{0.9, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 10, 12}, got)
	assert.InDelta(t, 0.1, dists[0], 1e-6)
	assert.Equal(t, 4, idx.Len())
}

func TestQueryCosine(t *testing.T) {
	idx := New(vector.MetricCosine)
	require.NoError(t, idx.Build([]int64{1, 2, 3}, [][]float32{{1, 0}, {0, 1}, {1, 1}}))

	got, dists, err := idx.Query([]float32{2, 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 2}, got)
	assert.InDelta(t, 0.0, dists[0], 1e-6)
	assert.InDelta(t, 1.0, dists[2], 1e-6)
}

func TestQueryDimensionMismatch(t *testing.T) {
	idx := New(vector.MetricL2)
	ids, vecs := grid()
	require.NoError(t, idx.Build(ids, vecs))
	_, _, err := idx.Query([]float32{1, 2, 3}, 1)
	assert.ErrorIs(t, err, index.ErrDimensionMismatch)
}

func TestBuildRejectsRaggedInput(t *testing.T) {
	idx := New(vector.MetricL2)
	assert.Error(t, idx.Build([]int64{1}, nil))
	assert.ErrorIs(t, idx.Build([]int64{1, 2}, [][]float32{{1}, {1, 2}}), index.ErrDimensionMismatch)
}

func TestEmptyIndexQuery(t *testing.T) {
	idx := New("")
	require.NoError(t, idx.Build(nil, nil))
	got, _, err := idx.Query([]float32{1}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMarshalRoundTrip(t *testing.T) {
	idx := New(vector.MetricCosine)
	ids, vecs := grid()
	require.NoError(t, idx.Build(ids, vecs))

	data, err := idx.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, index.MagicBruteForce, index.MagicOf(data))

	restored := &Index{}
	require.NoError(t, restored.UnmarshalBinary(data))
	assert.Equal(t, vector.MetricCosine, restored.Metric())

	want, _, err := idx.Query([]float32{1, 1}, 4)
	require.NoError(t, err)
	got, _, err := restored.Query([]float32{1, 1}, 4)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.Error(t, restored.UnmarshalBinary(data[:len(data)-3]))
	assert.Error(t, restored.UnmarshalBinary([]byte("VPT1")))
}
