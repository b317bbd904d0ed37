package tree

import "github.com/viant/vec/search"

// Point is a vector stored in, or queried against, the tree. Points created
// by NewPoint carry no value until inserted.
type Point struct {
	index     int32
	Magnitude float32
	Vector    []float32
}

// NewPoint constructs a query point for the given vector.
func NewPoint(vector ...float32) *Point {
	return &Point{index: -1, Vector: vector}
}

// HasValue reports whether the point was inserted and has a stored value.
func (p *Point) HasValue() bool {
	return p != nil && p.index >= 0
}

// Index returns the insertion slot of the point, -1 for query points.
func (p *Point) Index() int32 { return p.index }

func (p *Point) magnitude() float32 {
	if p.Magnitude == 0 && len(p.Vector) > 0 {
		p.Magnitude = search.Float32s(p.Vector).Magnitude()
	}
	return p.Magnitude
}
