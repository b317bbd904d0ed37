//go:build !cgo

package sqlitevec

import (
	"context"

	"github.com/viant/vecbench/vecerr"
	"github.com/viant/vecbench/vector"
)

// Store is unavailable without cgo.
type Store struct{}

// Open always fails: the sqlite-vec extension needs cgo.
func Open(context.Context, Options) (*Store, error) {
	return nil, vecerr.New(vecerr.CodeStoreOpenFailure, "sqlitevec backend requires a cgo build")
}

func (s *Store) UpsertOne(context.Context, int, vector.Vector) error {
	return vecerr.New(vecerr.CodeStoreWriteFailure, "sqlitevec backend requires a cgo build")
}

func (s *Store) Query(context.Context, vector.Vector, int) (vector.QueryResult, error) {
	return nil, vecerr.New(vecerr.CodeStoreQueryFailure, "sqlitevec backend requires a cgo build")
}

func (s *Store) Count(context.Context) (int, error) { return 0, nil }

func (s *Store) Close() error { return nil }
