package vector

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// NeighborSet is the immutable ground-truth set of primary keys for one
// query. Only membership matters; duplicates collapse.
type NeighborSet struct {
	bm *roaring.Bitmap
}

// NewNeighborSet builds a set from non-negative primary keys.
func NewNeighborSet(pks ...int) (NeighborSet, error) {
	bm := roaring.New()
	for _, pk := range pks {
		if pk < 0 || uint64(pk) > math.MaxUint32 {
			return NeighborSet{}, fmt.Errorf("vector: neighbor pk %d out of range", pk)
		}
		bm.Add(uint32(pk))
	}
	bm.RunOptimize()
	return NeighborSet{bm: bm}, nil
}

// NeighborSetOf builds a set from decoded int32 ids, rejecting negatives.
func NeighborSetOf(ids []int32) (NeighborSet, error) {
	bm := roaring.New()
	for _, id := range ids {
		if id < 0 {
			return NeighborSet{}, fmt.Errorf("vector: negative neighbor id %d", id)
		}
		bm.Add(uint32(id))
	}
	bm.RunOptimize()
	return NeighborSet{bm: bm}, nil
}

// Contains reports whether pk is a true neighbor.
func (s NeighborSet) Contains(pk int) bool {
	if s.bm == nil || pk < 0 || uint64(pk) > math.MaxUint32 {
		return false
	}
	return s.bm.Contains(uint32(pk))
}

// Len returns the number of distinct neighbors.
func (s NeighborSet) Len() int {
	if s.bm == nil {
		return 0
	}
	return int(s.bm.GetCardinality())
}

// ToArray returns the neighbors in ascending order.
func (s NeighborSet) ToArray() []int {
	if s.bm == nil {
		return nil
	}
	raw := s.bm.ToArray()
	out := make([]int, len(raw))
	for i, v := range raw {
		out[i] = int(v)
	}
	return out
}

// Hits counts the distinct primary keys among the first k of result that
// belong to the set.
func (s NeighborSet) Hits(result QueryResult, k int) int {
	if k > len(result) || k <= 0 {
		k = len(result)
	}
	seen := roaring.New()
	hits := 0
	for _, pk := range result[:k] {
		if !s.Contains(pk) || seen.Contains(uint32(pk)) {
			continue
		}
		seen.Add(uint32(pk))
		hits++
	}
	return hits
}
