package cover

import (
	"fmt"

	"github.com/viant/vecbench/index"
	"github.com/viant/vecbench/internal/cover/tree"
	"github.com/viant/vecbench/vector"
)

// DefaultBase is the level base used when none is configured.
const DefaultBase float32 = 1.3

// Option configures an Index.
type Option func(*Index)

// WithBase sets the cover tree level base; values <= 1 keep the default.
func WithBase(base float32) Option {
	return func(i *Index) {
		if base > 1 {
			i.base = base
		}
	}
}

// WithBoundStrategy selects the pruning bound.
func WithBoundStrategy(s tree.BoundStrategy) Option {
	return func(i *Index) { i.bound = s }
}

// WithBestFirst switches queries to best-first traversal.
func WithBestFirst() Option {
	return func(i *Index) { i.bestFirst = true }
}

// Index is a cover-tree backed kNN index.
type Index struct {
	metric    vector.Metric
	base      float32
	bound     tree.BoundStrategy
	bestFirst bool
	ids       []int64
	vecs      [][]float32
	dim       int
	tree      *tree.Tree[int]
}

// New returns an empty cover index ranking by metric.
func New(metric vector.Metric, opts ...Option) *Index {
	if metric == "" {
		metric = vector.MetricL2
	}
	i := &Index{metric: metric, base: DefaultBase}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Base returns the configured level base.
func (i *Index) Base() float32 { return i.base }

// Build inserts all vectors into a fresh tree.
func (i *Index) Build(ids []int64, vectors [][]float32) error {
	dim, err := index.CheckBuild(ids, vectors)
	if err != nil {
		return fmt.Errorf("cover: %w", err)
	}
	t := tree.NewTree[int](i.base, tree.ForMetric(i.metric))
	t.SetBoundStrategy(i.bound)
	for pos, v := range vectors {
		t.Insert(pos, tree.NewPoint(v...))
	}
	i.ids = append([]int64(nil), ids...)
	i.vecs = append([][]float32(nil), vectors...)
	i.dim = dim
	i.tree = t
	return nil
}

// Len returns the number of indexed vectors.
func (i *Index) Len() int { return len(i.ids) }

// Query returns up to k ids nearest first; k <= 0 returns every id.
func (i *Index) Query(query []float32, k int) ([]int64, []float32, error) {
	if i.tree == nil || len(i.ids) == 0 {
		return nil, nil, nil
	}
	if len(query) != i.dim {
		return nil, nil, fmt.Errorf("cover: %w: query dim %d != index dim %d", index.ErrDimensionMismatch, len(query), i.dim)
	}
	if k <= 0 || k > len(i.ids) {
		k = len(i.ids)
	}
	point := tree.NewPoint(query...)
	var found []*tree.Neighbor
	if i.bestFirst {
		found = i.tree.KNearestNeighborsBestFirst(point, k)
	} else {
		found = i.tree.KNearestNeighbors(point, k)
	}
	ids := make([]int64, len(found))
	dists := make([]float32, len(found))
	for n, nb := range found {
		ids[n] = i.ids[i.tree.Value(nb.Point)]
		dists[n] = nb.Distance
	}
	return ids, dists, nil
}

// MarshalBinary stores ids and vectors behind the COV1 header; the tree is
// rebuilt on load with the receiver's base and bound.
func (i *Index) MarshalBinary() ([]byte, error) {
	return index.EncodePayload(index.MagicCover, i.metric, i.ids, i.vecs)
}

// UnmarshalBinary loads the payload and rebuilds the tree.
func (i *Index) UnmarshalBinary(data []byte) error {
	metric, ids, vecs, err := index.DecodePayload(index.MagicCover, data)
	if err != nil {
		return fmt.Errorf("cover: %w", err)
	}
	i.metric = metric
	if i.base <= 1 {
		i.base = DefaultBase
	}
	return i.Build(ids, vecs)
}
