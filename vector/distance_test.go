package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}

	sim, err := CosineSimilarity(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)

	sim, err = CosineSimilarity(a, a)
	require.NoError(t, err)
	assert.Equal(t, 1.0, sim)

	_, err = CosineSimilarity(a, []float32{0, 0})
	assert.Error(t, err)
}

func TestL2Distance(t *testing.T) {
	d, err := L2Distance([]float32{0, 0}, []float32{3, 4})
	require.NoError(t, err)
	assert.Equal(t, 5.0, d)

	_, err = L2Distance([]float32{0}, []float32{3, 4})
	assert.Error(t, err)
}

func TestMetricDistance(t *testing.T) {
	d, err := MetricL2.Distance([]float32{1, 1}, []float32{4, 5})
	require.NoError(t, err)
	assert.Equal(t, 5.0, d)

	d, err = MetricCosine.Distance([]float32{1, 0}, []float32{2, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, d, 1e-12)

	d, err = MetricCosine.Distance([]float32{1, 0}, []float32{0, 0})
	require.NoError(t, err)
	assert.Equal(t, 1.0, d)
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("Euclidean")
	require.NoError(t, err)
	assert.Equal(t, MetricL2, m)

	m, err = ParseMetric("cos")
	require.NoError(t, err)
	assert.Equal(t, MetricCosine, m)

	_, err = ParseMetric("hamming")
	assert.Error(t, err)
}

func TestEncodeDecodeEmbeddingPreservesBits(t *testing.T) {
	orig := []float32{0.0, 1.5, -2.25, float32(math.Inf(1)), math.SmallestNonzeroFloat32}

	b, err := EncodeEmbedding(orig)
	require.NoError(t, err)
	require.Len(t, b, len(orig)*4)

	decoded, err := DecodeEmbedding(b)
	require.NoError(t, err)
	require.Len(t, decoded, len(orig))
	for i := range orig {
		assert.Equal(t, math.Float32bits(orig[i]), math.Float32bits(decoded[i]), "component %d", i)
	}
}

func TestEncodeDecodeEmbeddingEmpty(t *testing.T) {
	b, err := EncodeEmbedding(nil)
	require.NoError(t, err)
	assert.Empty(t, b)

	vec, err := DecodeEmbedding(nil)
	require.NoError(t, err)
	assert.Empty(t, vec)

	_, err = DecodeEmbedding([]byte{1, 2, 3})
	assert.Error(t, err)
}
