package index

import (
	"container/heap"
	"sort"
)

// Candidate is a scored neighbor of a query.
type Candidate struct {
	Pos      int
	Distance float32
}

// TopK keeps the k nearest candidates seen so far. k <= 0 keeps everything.
type TopK struct {
	k int
	h candidates
}

// NewTopK returns a collector for k candidates.
func NewTopK(k int) *TopK {
	capacity := k
	if capacity <= 0 {
		capacity = 16
	}
	return &TopK{k: k, h: make(candidates, 0, capacity)}
}

// Push offers a candidate.
func (t *TopK) Push(pos int, distance float32) {
	if t.k <= 0 || t.h.Len() < t.k {
		heap.Push(&t.h, Candidate{Pos: pos, Distance: distance})
		return
	}
	if distance < t.h[0].Distance {
		t.h[0] = Candidate{Pos: pos, Distance: distance}
		heap.Fix(&t.h, 0)
	}
}

// Full reports whether k candidates are held.
func (t *TopK) Full() bool { return t.k > 0 && t.h.Len() >= t.k }

// Worst returns the largest held distance; only meaningful when Full.
func (t *TopK) Worst() float32 {
	if t.h.Len() == 0 {
		return 0
	}
	return t.h[0].Distance
}

// Sorted returns the candidates nearest first; ties break on position.
func (t *TopK) Sorted() []Candidate {
	out := append([]Candidate(nil), t.h...)
	sort.Slice(out, func(a, b int) bool {
		if out[a].Distance != out[b].Distance {
			return out[a].Distance < out[b].Distance
		}
		return out[a].Pos < out[b].Pos
	})
	return out
}

// candidates is a max-heap on distance.
type candidates []Candidate

func (h candidates) Len() int           { return len(h) }
func (h candidates) Less(i, j int) bool { return h[i].Distance > h[j].Distance }
func (h candidates) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidates) Push(x any)        { *h = append(*h, x.(Candidate)) }
func (h *candidates) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
