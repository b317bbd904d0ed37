package tree

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomVectors(n, dim int, seed int64) [][]float32 {
	r := rand.New(rand.NewSource(seed))
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dim)
		for j := range v {
			v[j] = r.Float32()*2 - 1
		}
		out[i] = v
	}
	return out
}

func exactKNN(vectors [][]float32, q []float32, k int) []int {
	type pair struct {
		pos  int
		dist float32
	}
	qp := NewPoint(q...)
	pairs := make([]pair, len(vectors))
	for i, v := range vectors {
		pairs[i] = pair{pos: i, dist: EuclideanDistance(qp, NewPoint(v...))}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].dist < pairs[j].dist })
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = pairs[i].pos
	}
	return out
}

func TestTree_KNearestNeighbors(t *testing.T) {
	vectors := randomVectors(300, 6, 7)
	queries := randomVectors(20, 6, 8)
	tr := NewTree[int](1.3, DistanceFunctionEuclidean)
	for i, v := range vectors {
		tr.Insert(i, NewPoint(v...))
	}
	require.Equal(t, len(vectors), tr.Len())

	search := map[string]func(*Point, int) []*Neighbor{
		"depth first": tr.KNearestNeighbors,
		"best first":  tr.KNearestNeighborsBestFirst,
	}
	for name, fn := range search {
		t.Run(name, func(t *testing.T) {
			for _, q := range queries {
				got := fn(NewPoint(q...), 5)
				require.Len(t, got, 5)
				ids := make([]int, len(got))
				for i, n := range got {
					ids[i] = tr.Value(n.Point)
					if i > 0 {
						assert.LessOrEqual(t, got[i-1].Distance, n.Distance)
					}
				}
				assert.Equal(t, exactKNN(vectors, q, 5), ids)
			}
		})
	}
}

func TestTree_Edges(t *testing.T) {
	tr := NewTree[string](0, "bogus")
	assert.Equal(t, float32(1.3), tr.Base())
	assert.Equal(t, DistanceFunctionCosine, tr.Distance())
	assert.Nil(t, tr.KNearestNeighbors(NewPoint(1, 0), 3))

	tr.Insert("a", NewPoint(1, 0))
	tr.Insert("b", NewPoint(0, 1))
	assert.Nil(t, tr.KNearestNeighbors(NewPoint(1, 0), 0))

	got := tr.KNearestNeighbors(NewPoint(1, 0.1), 10)
	require.Len(t, got, 2)
	assert.Equal(t, "a", tr.Value(got[0].Point))
	assert.Equal(t, "", tr.Value(NewPoint(1, 1)))

	tr.Insert("c", NewPoint(0.9, 0.05))
	got = tr.KNearestNeighbors(NewPoint(1, 0.1), 1)
	require.Len(t, got, 1)
	assert.Equal(t, "c", tr.Value(got[0].Point))
}

func TestParseBoundStrategy(t *testing.T) {
	s, ok := ParseBoundStrategy("level")
	assert.True(t, ok)
	assert.Equal(t, BoundLevel, s)
	s, ok = ParseBoundStrategy("")
	assert.True(t, ok)
	assert.Equal(t, BoundPerNode, s)
	_, ok = ParseBoundStrategy("x")
	assert.False(t, ok)
}
