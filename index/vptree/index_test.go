package vptree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/vecbench/index"
	"github.com/viant/vecbench/index/bruteforce"
	"github.com/viant/vecbench/vector"
)

func randomData(n, dim int, seed int64) ([]int64, [][]float32) {
	rng := rand.New(rand.NewSource(seed))
	ids := make([]int64, n)
	vecs := make([][]float32, n)
	for i := range vecs {
		ids[i] = int64(i)
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()
		}
		vecs[i] = v
	}
	return ids, vecs
}

func TestL2MatchesBruteForce(t *testing.T) {
	ids, vecs := randomData(500, 8, 1)
	vp := New(vector.MetricL2)
	require.NoError(t, vp.Build(ids, vecs))
	bf := bruteforce.New(vector.MetricL2)
	require.NoError(t, bf.Build(ids, vecs))

	_, queries := randomData(20, 8, 2)
	for qi, q := range queries {
		want, _, err := bf.Query(q, 10)
		require.NoError(t, err)
		got, dists, err := vp.Query(q, 10)
		require.NoError(t, err)
		assert.Equal(t, want, got, "query %d", qi)
		for n := 1; n < len(dists); n++ {
			assert.LessOrEqual(t, dists[n-1], dists[n])
		}
	}
}

func TestQueryAllWhenKNonPositive(t *testing.T) {
	ids, vecs := randomData(30, 4, 3)
	vp := New(vector.MetricCosine)
	require.NoError(t, vp.Build(ids, vecs))
	got, _, err := vp.Query(vecs[0], 0)
	require.NoError(t, err)
	assert.Len(t, got, 30)
	assert.Equal(t, int64(0), got[0])
}

func TestDimensionMismatch(t *testing.T) {
	ids, vecs := randomData(5, 4, 4)
	vp := New(vector.MetricL2)
	require.NoError(t, vp.Build(ids, vecs))
	_, _, err := vp.Query([]float32{1}, 1)
	assert.ErrorIs(t, err, index.ErrDimensionMismatch)
}

func TestMarshalRoundTrip(t *testing.T) {
	ids, vecs := randomData(50, 3, 5)
	vp := New(vector.MetricL2)
	require.NoError(t, vp.Build(ids, vecs))
	data, err := vp.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, index.MagicVPTree, index.MagicOf(data))

	restored := &Index{}
	require.NoError(t, restored.UnmarshalBinary(data))
	assert.Equal(t, 50, restored.Len())
	want, _, _ := vp.Query(vecs[7], 5)
	got, _, _ := restored.Query(vecs[7], 5)
	assert.Equal(t, want, got)
}
