package tree

import "math"

// Node represents a cover-tree node. radius bounds the distance from the
// node's point to any descendant once computed for the current version.
type Node struct {
	level     int32
	baseLevel float32
	point     *Point
	children  []Node
	radius    float32
	version   uint64
}

// NewNode constructs a node for the provided point and level.
func NewNode(point *Point, level int32, base float32) Node {
	return Node{
		level:     level,
		baseLevel: float32(math.Pow(float64(base), float64(level))),
		point:     point,
	}
}

// Level returns the node level.
func (n *Node) Level() int32 { return n.level }
