package tree

// Adapted from github.com/viant/gds/tree/cover.

import (
	"container/heap"
	"math"
	"sort"
	"sync"
)

// BoundStrategy selects which lower-bound radius to use when pruning.
type BoundStrategy int

const (
	// BoundPerNode uses the per-node subtree radius (tight, exact for metrics).
	BoundPerNode BoundStrategy = iota
	// BoundLevel uses a geometric bound derived from the node level.
	BoundLevel
)

// ParseBoundStrategy maps "node" and "level" onto a strategy.
func ParseBoundStrategy(s string) (BoundStrategy, bool) {
	switch s {
	case "", "node":
		return BoundPerNode, true
	case "level":
		return BoundLevel, true
	}
	return BoundPerNode, false
}

// Tree is a cover tree for cosine/euclidean kNN queries over values of T.
// Writes and searches may interleave; subtree radii are recomputed lazily
// after the first search following a write.
type Tree[T any] struct {
	mu            sync.RWMutex
	root          *Node
	base          float32
	distance      DistanceFunction
	distanceFunc  DistanceFunc
	values        []T
	version       uint64
	sealed        uint64
	boundStrategy BoundStrategy
}

// NewTree constructs a cover tree with the provided base and distance metric.
// Bases <= 1 fall back to 1.3 and unknown metrics to cosine.
func NewTree[T any](base float32, distance DistanceFunction) *Tree[T] {
	if base <= 1 {
		base = 1.3
	}
	fn := distance.Function()
	if fn == nil {
		distance = DistanceFunctionCosine
		fn = CosineDistance
	}
	return &Tree[T]{base: base, distance: distance, distanceFunc: fn}
}

// Base returns the level base.
func (t *Tree[T]) Base() float32 { return t.base }

// Distance returns the configured metric.
func (t *Tree[T]) Distance() DistanceFunction { return t.distance }

// SetBoundStrategy switches the pruning strategy.
func (t *Tree[T]) SetBoundStrategy(s BoundStrategy) {
	t.mu.Lock()
	t.boundStrategy = s
	t.mu.Unlock()
}

// Len returns the number of inserted points.
func (t *Tree[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.values)
}

// Insert adds a value/point pair and returns its slot.
func (t *Tree[T]) Insert(value T, point *Point) int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	point.index = int32(len(t.values))
	t.values = append(t.values, value)
	point.magnitude()
	if t.root == nil {
		node := NewNode(point, 0, t.base)
		t.root = &node
	} else {
		t.insert(t.root, point, 0)
	}
	t.version++
	return point.index
}

// Value returns the stored value for the given point.
func (t *Tree[T]) Value(point *Point) T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var zero T
	if !point.HasValue() || int(point.index) >= len(t.values) {
		return zero
	}
	return t.values[point.index]
}

func (t *Tree[T]) insert(node *Node, point *Point, level int32) {
	for {
		radius := float32(math.Pow(float64(t.base), float64(level)))
		if t.distanceFunc(point, node.point) < radius {
			next := -1
			for i := range node.children {
				if t.distanceFunc(point, node.children[i].point) < radius {
					next = i
					break
				}
			}
			if next < 0 {
				node.children = append(node.children, NewNode(point, level-1, t.base))
				return
			}
			node = &node.children[next]
			level--
			continue
		}
		level++
		if level > node.level {
			root := NewNode(point, level, t.base)
			root.children = append(root.children, *t.root)
			t.root = &root
			return
		}
	}
}

// seal recomputes subtree radii when the tree changed since the last search.
func (t *Tree[T]) seal() {
	t.mu.RLock()
	fresh := t.sealed == t.version
	t.mu.RUnlock()
	if fresh {
		return
	}
	t.mu.Lock()
	if t.sealed != t.version {
		t.computeRadius(t.root)
		t.sealed = t.version
	}
	t.mu.Unlock()
}

func (t *Tree[T]) computeRadius(n *Node) float32 {
	if n == nil {
		return 0
	}
	if n.version == t.version {
		return n.radius
	}
	var r float32
	for i := range n.children {
		child := &n.children[i]
		if d := t.distanceFunc(n.point, child.point) + t.computeRadius(child); d > r {
			r = d
		}
	}
	n.radius = r
	n.version = t.version
	return r
}

func (t *Tree[T]) bound(n *Node) float32 {
	if t.boundStrategy == BoundLevel {
		return n.baseLevel * t.base / (t.base - 1)
	}
	return n.radius
}

// KNearestNeighbors runs a depth-first kNN search, nearest first.
func (t *Tree[T]) KNearestNeighbors(point *Point, k int) []*Neighbor {
	if k <= 0 {
		return nil
	}
	t.seal()
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.root == nil {
		return nil
	}
	point.magnitude()
	h := &neighbors{}
	t.depthFirst(t.root, t.distanceFunc(point, t.root.point), point, k, h)
	return drain(h)
}

func (t *Tree[T]) depthFirst(node *Node, dc float32, point *Point, k int, h *neighbors) {
	offer(h, k, Neighbor{Point: node.point, Distance: dc})
	if len(node.children) == 0 {
		return
	}
	type childDist struct {
		child *Node
		dist  float32
	}
	cds := make([]childDist, len(node.children))
	for i := range node.children {
		child := &node.children[i]
		cds[i] = childDist{child: child, dist: t.distanceFunc(point, child.point)}
	}
	sort.Slice(cds, func(i, j int) bool { return cds[i].dist < cds[j].dist })
	for _, cd := range cds {
		if h.Len() == k && cd.dist-t.bound(cd.child) >= h.worst() {
			continue
		}
		t.depthFirst(cd.child, cd.dist, point, k, h)
	}
}

// KNearestNeighborsBestFirst performs a best-first search ordered by the
// lower bound of each subtree.
func (t *Tree[T]) KNearestNeighborsBestFirst(point *Point, k int) []*Neighbor {
	if k <= 0 {
		return nil
	}
	t.seal()
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.root == nil {
		return nil
	}
	point.magnitude()
	h := &neighbors{}
	pq := &nodeQueue{}
	rootDist := t.distanceFunc(point, t.root.point)
	heap.Push(pq, nodeItem{node: t.root, lb: rootDist - t.bound(t.root), dist: rootDist})
	for pq.Len() > 0 {
		top := heap.Pop(pq).(nodeItem)
		if h.Len() == k && top.lb >= h.worst() {
			break
		}
		offer(h, k, Neighbor{Point: top.node.point, Distance: top.dist})
		for i := range top.node.children {
			child := &top.node.children[i]
			cd := t.distanceFunc(point, child.point)
			lb := cd - t.bound(child)
			if h.Len() == k && lb >= h.worst() {
				continue
			}
			heap.Push(pq, nodeItem{node: child, lb: lb, dist: cd})
		}
	}
	return drain(h)
}

func offer(h *neighbors, k int, n Neighbor) {
	if h.Len() < k {
		heap.Push(h, n)
		return
	}
	if n.Distance < h.worst() {
		(*h)[0] = n
		heap.Fix(h, 0)
	}
}

func drain(h *neighbors) []*Neighbor {
	result := make([]*Neighbor, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		n := heap.Pop(h).(Neighbor)
		result[i] = &n
	}
	return result
}

type nodeItem struct {
	node *Node
	lb   float32
	dist float32
}

type nodeQueue []nodeItem

func (q nodeQueue) Len() int           { return len(q) }
func (q nodeQueue) Less(i, j int) bool { return q[i].lb < q[j].lb }
func (q nodeQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x any)        { *q = append(*q, x.(nodeItem)) }
func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}
