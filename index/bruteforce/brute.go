package bruteforce

import (
	"fmt"
	"math"

	"github.com/viant/vecbench/index"
	"github.com/viant/vecbench/vector"
)

// Index is an exact vector index that scans every vector per query.
type Index struct {
	metric vector.Metric
	ids    []int64
	vecs   [][]float32
	mags   []float64
	dim    int
}

// New returns an empty index ranking by metric; an empty metric means l2.
func New(metric vector.Metric) *Index {
	if metric == "" {
		metric = vector.MetricL2
	}
	return &Index{metric: metric}
}

// Build loads ids and vectors and precomputes magnitudes for cosine.
func (i *Index) Build(ids []int64, vectors [][]float32) error {
	dim, err := index.CheckBuild(ids, vectors)
	if err != nil {
		return fmt.Errorf("bruteforce: %w", err)
	}
	if i.metric == "" {
		i.metric = vector.MetricL2
	}
	i.ids = append([]int64(nil), ids...)
	i.vecs = append([][]float32(nil), vectors...)
	i.dim = dim
	i.mags = nil
	if i.metric == vector.MetricCosine {
		i.mags = make([]float64, len(vectors))
		for j := range vectors {
			i.mags[j] = math.Sqrt(dot(vectors[j], vectors[j]))
		}
	}
	return nil
}

// Len returns the number of indexed vectors.
func (i *Index) Len() int { return len(i.ids) }

// Metric returns the ranking metric.
func (i *Index) Metric() vector.Metric { return i.metric }

// Query returns the k nearest ids by exact scan.
func (i *Index) Query(query []float32, k int) ([]int64, []float32, error) {
	if i.dim == 0 || len(i.vecs) == 0 {
		return nil, nil, nil
	}
	if len(query) != i.dim {
		return nil, nil, fmt.Errorf("bruteforce: %w: query dim %d != index dim %d", index.ErrDimensionMismatch, len(query), i.dim)
	}
	top := index.NewTopK(k)
	switch i.metric {
	case vector.MetricCosine:
		qm := math.Sqrt(dot(query, query))
		for j, v := range i.vecs {
			d := 1.0
			if qm != 0 && i.mags[j] != 0 {
				d = 1 - dot(query, v)/(qm*i.mags[j])
			}
			top.Push(j, float32(d))
		}
	default:
		for j, v := range i.vecs {
			top.Push(j, float32(squaredL2(query, v)))
		}
	}
	sorted := top.Sorted()
	ids := make([]int64, len(sorted))
	dists := make([]float32, len(sorted))
	for n, c := range sorted {
		ids[n] = i.ids[c.Pos]
		dists[n] = c.Distance
		if i.metric != vector.MetricCosine {
			dists[n] = float32(math.Sqrt(float64(c.Distance)))
		}
	}
	return ids, dists, nil
}

// MarshalBinary encodes the ids and vectors behind the BRF1 header.
func (i *Index) MarshalBinary() ([]byte, error) {
	return index.EncodePayload(index.MagicBruteForce, i.metric, i.ids, i.vecs)
}

// UnmarshalBinary restores the index from bytes.
func (i *Index) UnmarshalBinary(data []byte) error {
	metric, ids, vecs, err := index.DecodePayload(index.MagicBruteForce, data)
	if err != nil {
		return fmt.Errorf("bruteforce: %w", err)
	}
	i.metric = metric
	return i.Build(ids, vecs)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func squaredL2(a, b []float32) float64 {
	var s float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		s += d * d
	}
	return s
}
