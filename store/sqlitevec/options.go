package sqlitevec

import (
	"github.com/viant/vecbench/vector"
)

// Options configure Open.
type Options struct {
	DSN       string
	Table     string
	Dimension int
	Metric    vector.Metric
	Recreate  bool
}

func distanceMetric(m vector.Metric) string {
	if m == vector.MetricCosine {
		return "cosine"
	}
	return "l2"
}
