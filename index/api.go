package index

import "errors"

// Index defines a vector index over int64 primary keys. It is built from
// (id, embedding) pairs, answers kNN queries nearest first and serializes
// itself for persistence.
type Index interface {
	// Build constructs the index from the given ids and vectors.
	// ids and vectors must have the same length and a uniform dimension.
	Build(ids []int64, vectors [][]float32) error

	// Query returns up to k ids ordered by increasing distance to query,
	// with the parallel distances. k <= 0 returns every indexed id.
	Query(query []float32, k int) (ids []int64, distances []float32, err error)

	// Len returns the number of indexed vectors.
	Len() int

	// MarshalBinary serializes the index into a byte slice.
	MarshalBinary() ([]byte, error)

	// UnmarshalBinary reconstructs the index from a serialized byte slice.
	UnmarshalBinary(data []byte) error
}

// ErrDimensionMismatch is returned when a query or vector does not match the
// indexed dimension.
var ErrDimensionMismatch = errors.New("index: dimension mismatch")
