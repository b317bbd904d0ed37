package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeighborSetCollapsesDuplicates(t *testing.T) {
	s, err := NeighborSetOf([]int32{5, 3, 5, 9, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []int{3, 5, 9}, s.ToArray())
	assert.True(t, s.Contains(9))
	assert.False(t, s.Contains(4))
	assert.False(t, s.Contains(-1))
}

func TestNeighborSetRejectsNegative(t *testing.T) {
	_, err := NeighborSetOf([]int32{1, -2})
	assert.Error(t, err)

	_, err = NewNeighborSet(-1)
	assert.Error(t, err)
}

func TestNeighborSetZeroValue(t *testing.T) {
	var s NeighborSet
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Contains(0))
	assert.Nil(t, s.ToArray())
	assert.Equal(t, 0, s.Hits(QueryResult{1, 2}, 2))
}

func TestNeighborSetHits(t *testing.T) {
	s, err := NewNeighborSet(1, 2, 3, 4)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Hits(QueryResult{1, 7, 3}, 3))
	// duplicates in a result count once
	assert.Equal(t, 1, s.Hits(QueryResult{2, 2, 2}, 3))
	// only the first k results are scored
	assert.Equal(t, 1, s.Hits(QueryResult{1, 9, 2, 3}, 2))
	assert.Equal(t, 0, s.Hits(nil, 10))
}
