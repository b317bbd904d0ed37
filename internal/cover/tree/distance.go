package tree

import (
	"github.com/viant/vec/search"
	"github.com/viant/vecbench/vector"
)

// DistanceFunction enumerates supported distance metrics for the cover tree.
type DistanceFunction string

const (
	DistanceFunctionCosine    DistanceFunction = "cosine"
	DistanceFunctionEuclidean DistanceFunction = "euclidean"
)

// DistanceFunc computes the distance between two points.
type DistanceFunc func(p1, p2 *Point) float32

// ForMetric maps a vector metric to the tree distance.
func ForMetric(metric vector.Metric) DistanceFunction {
	if metric == vector.MetricCosine {
		return DistanceFunctionCosine
	}
	return DistanceFunctionEuclidean
}

// Function resolves the callable distance implementation, nil if unknown.
func (d DistanceFunction) Function() DistanceFunc {
	switch d {
	case DistanceFunctionCosine:
		return CosineDistance
	case DistanceFunctionEuclidean:
		return EuclideanDistance
	default:
		return nil
	}
}

// CosineDistance returns 1 - cosine similarity using cached magnitudes.
// A zero-magnitude point is at distance 1 from everything.
func CosineDistance(p1, p2 *Point) float32 {
	m1, m2 := p1.magnitude(), p2.magnitude()
	if m1 == 0 || m2 == 0 {
		return 1
	}
	return search.Float32s(p1.Vector).CosineDistanceWithMagnitude(p2.Vector, m1, m2)
}

// EuclideanDistance returns the Euclidean distance between two points.
func EuclideanDistance(p1, p2 *Point) float32 {
	return search.Float32s(p1.Vector).EuclideanDistance(p2.Vector)
}
