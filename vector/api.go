package vector

import (
	"context"
)

// Vector is a fixed-length embedding. All vectors of one file share a dimension.
type Vector []float32

// Dim returns the number of components.
func (v Vector) Dim() int { return len(v) }

// Record pairs a primary key with its vector. The primary key of a base
// vector is its zero-based position in the base file.
type Record struct {
	PK     int
	Vector Vector
}

// QueryResult holds primary keys nearest first.
type QueryResult []int

// Store is the capability a benchmarked vector store must expose. Both
// methods are called concurrently from many workers.
//
// UpsertOne either fully applies or returns an error coded
// vecerr.CodeStoreWriteFailure. Query returns at most topK primary keys
// nearest first; failures are coded vecerr.CodeStoreQueryFailure, or
// vecerr.CodeStoreQuerySyntax when the store rejected the request as
// malformed.
type Store interface {
	UpsertOne(ctx context.Context, pk int, v Vector) error
	Query(ctx context.Context, v Vector, topK int) (QueryResult, error)
}

// Counter is implemented by stores that can report how many records they hold.
type Counter interface {
	Count(ctx context.Context) (int, error)
}
