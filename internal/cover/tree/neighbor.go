package tree

// Neighbor is a candidate returned by a kNN search.
type Neighbor struct {
	Point    *Point
	Distance float32
}

// neighbors is a max-heap on distance holding the current k best.
type neighbors []Neighbor

func (h neighbors) Len() int           { return len(h) }
func (h neighbors) Less(i, j int) bool { return h[i].Distance > h[j].Distance }
func (h neighbors) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *neighbors) Push(x any)        { *h = append(*h, x.(Neighbor)) }
func (h *neighbors) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// worst returns the largest held distance.
func (h neighbors) worst() float32 { return h[0].Distance }
