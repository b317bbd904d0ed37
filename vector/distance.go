package vector

import (
	"fmt"
	"math"
	"strings"
)

// Metric names a distance function. Smaller distance means nearer.
type Metric string

const (
	MetricL2     Metric = "l2"
	MetricCosine Metric = "cosine"
)

// ParseMetric accepts l2/euclidean and cos/cosine.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "l2", "euclidean":
		return MetricL2, nil
	case "cos", "cosine":
		return MetricCosine, nil
	default:
		return "", fmt.Errorf("vector: unsupported metric %q", s)
	}
}

// Distance computes the metric's distance between a and b. Cosine distance
// is 1 - cosine similarity; zero-magnitude vectors are at distance 1.
func (m Metric) Distance(a, b []float32) (float64, error) {
	switch m {
	case MetricCosine:
		if len(a) != len(b) {
			return 0, fmt.Errorf("vector: cosine distance dimension mismatch: %d vs %d", len(a), len(b))
		}
		sim, err := CosineSimilarity(a, b)
		if err != nil {
			return 1, nil
		}
		return 1 - sim, nil
	default:
		return L2Distance(a, b)
	}
}

// CosineSimilarity computes the cosine similarity between two vectors. It
// returns an error if the vectors have different lengths or if either vector
// has zero magnitude.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: cosine similarity dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("vector: cosine similarity on empty vectors")
	}
	var dot, na2, nb2 float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, fmt.Errorf("vector: cosine similarity with zero-magnitude vector")
	}
	return dot / (math.Sqrt(na2) * math.Sqrt(nb2)), nil
}

// L2Distance computes the Euclidean distance between two vectors.
func L2Distance(a, b []float32) (float64, error) {
	sq, err := SquaredL2(a, b)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(sq), nil
}

// SquaredL2 computes the squared Euclidean distance, enough for ranking.
func SquaredL2(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: L2 distance dimension mismatch: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum, nil
}
