package vptree

import (
	"fmt"
	"math"
	"sort"

	"github.com/viant/vecbench/index"
	"github.com/viant/vecbench/vector"
)

// Index implements a kNN index using a vantage-point tree to prune search.
// Pruning relies on the triangle inequality, exact for l2 and a close
// approximation for cosine distance.
type Index struct {
	metric vector.Metric
	ids    []int64
	vecs   [][]float32
	mags   []float64
	dim    int
	root   *node
}

type node struct {
	idx   int // index into ids/vecs
	thr   float64
	left  *node
	right *node
}

// New returns an empty VP-tree ranking by metric.
func New(metric vector.Metric) *Index {
	if metric == "" {
		metric = vector.MetricL2
	}
	return &Index{metric: metric}
}

// Build constructs the VP-tree and caches magnitudes.
func (i *Index) Build(ids []int64, vectors [][]float32) error {
	dim, err := index.CheckBuild(ids, vectors)
	if err != nil {
		return fmt.Errorf("vptree: %w", err)
	}
	if i.metric == "" {
		i.metric = vector.MetricL2
	}
	i.ids = append([]int64(nil), ids...)
	i.vecs = append([][]float32(nil), vectors...)
	i.dim = dim
	i.mags = make([]float64, len(vectors))
	for j := range vectors {
		i.mags[j] = math.Sqrt(dot(vectors[j], vectors[j]))
	}
	idxs := make([]int, len(vectors))
	for k := range idxs {
		idxs[k] = k
	}
	i.root = i.buildVP(idxs)
	return nil
}

func (i *Index) buildVP(idxs []int) *node {
	if len(idxs) == 0 {
		return nil
	}
	// last element is the vantage point; keeps builds deterministic
	vp := idxs[len(idxs)-1]
	idxs = idxs[:len(idxs)-1]
	if len(idxs) == 0 {
		return &node{idx: vp}
	}
	dists := make([]float64, len(idxs))
	for k, j := range idxs {
		dists[k] = i.distance(i.vecs[vp], i.mags[vp], j)
	}
	order := make([]int, len(idxs))
	for k := range order {
		order[k] = k
	}
	sort.Slice(order, func(a, b int) bool { return dists[order[a]] < dists[order[b]] })
	mid := len(order) / 2
	thr := dists[order[mid]]
	left := make([]int, 0, mid+1)
	right := make([]int, 0, len(order)-mid-1)
	for rank, k := range order {
		if rank <= mid {
			left = append(left, idxs[k])
		} else {
			right = append(right, idxs[k])
		}
	}
	return &node{idx: vp, thr: thr, left: i.buildVP(left), right: i.buildVP(right)}
}

// distance from a query (with magnitude qm) to the stored vector j.
func (i *Index) distance(q []float32, qm float64, j int) float64 {
	if i.metric == vector.MetricCosine {
		if qm == 0 || i.mags[j] == 0 {
			return 1
		}
		return 1 - dot(q, i.vecs[j])/(qm*i.mags[j])
	}
	return math.Sqrt(squaredL2(q, i.vecs[j]))
}

// Len returns the number of indexed vectors.
func (i *Index) Len() int { return len(i.ids) }

// Query returns up to k ids nearest first.
func (i *Index) Query(query []float32, k int) ([]int64, []float32, error) {
	if i.dim == 0 || len(i.vecs) == 0 {
		return nil, nil, nil
	}
	if len(query) != i.dim {
		return nil, nil, fmt.Errorf("vptree: %w: query dim %d != index dim %d", index.ErrDimensionMismatch, len(query), i.dim)
	}
	qm := math.Sqrt(dot(query, query))
	top := index.NewTopK(k)
	var search func(n *node)
	search = func(n *node) {
		if n == nil {
			return
		}
		d := i.distance(query, qm, n.idx)
		top.Push(n.idx, float32(d))
		tau := math.Inf(1)
		if top.Full() {
			tau = float64(top.Worst())
		}
		if d < n.thr {
			if d-tau <= n.thr {
				search(n.left)
			}
			if top.Full() {
				tau = float64(top.Worst())
			}
			if d+tau >= n.thr {
				search(n.right)
			}
			return
		}
		if d+tau >= n.thr {
			search(n.right)
		}
		if top.Full() {
			tau = float64(top.Worst())
		}
		if d-tau <= n.thr {
			search(n.left)
		}
	}
	search(i.root)
	sorted := top.Sorted()
	ids := make([]int64, len(sorted))
	dists := make([]float32, len(sorted))
	for n, c := range sorted {
		ids[n] = i.ids[c.Pos]
		dists[n] = c.Distance
	}
	return ids, dists, nil
}

// MarshalBinary stores ids and vectors behind the VPT1 header; the tree is
// rebuilt on load.
func (i *Index) MarshalBinary() ([]byte, error) {
	return index.EncodePayload(index.MagicVPTree, i.metric, i.ids, i.vecs)
}

// UnmarshalBinary loads the payload and rebuilds the tree.
func (i *Index) UnmarshalBinary(data []byte) error {
	metric, ids, vecs, err := index.DecodePayload(index.MagicVPTree, data)
	if err != nil {
		return fmt.Errorf("vptree: %w", err)
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
