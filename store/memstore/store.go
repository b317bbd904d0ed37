// Package memstore is an in-process exact vector.Store.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/viant/vecbench/index"
	"github.com/viant/vecbench/index/bruteforce"
	"github.com/viant/vecbench/store"
	"github.com/viant/vecbench/vecerr"
	"github.com/viant/vecbench/vector"
)

// Store keeps vectors in a map and answers queries with an exact index that
// is rebuilt on the first query after a write.
type Store struct {
	metric vector.Metric
	dim    int

	mu    sync.RWMutex
	rows  map[int]vector.Vector
	index index.Index
}

// New returns an empty store; dim 0 fixes the dimension on first write.
func New(metric vector.Metric, dim int) *Store {
	return &Store{metric: metric, dim: dim, rows: make(map[int]vector.Vector)}
}

// UpsertOne stores a copy of v under pk.
func (s *Store) UpsertOne(ctx context.Context, pk int, v vector.Vector) error {
	if err := ctx.Err(); err != nil {
		return vecerr.Wrap(err, vecerr.CodeStoreWriteFailure, "upsert canceled", vecerr.FieldPK(pk))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dim == 0 {
		s.dim = len(v)
	}
	if err := store.CheckWrite(s.dim, pk, v); err != nil {
		return err
	}
	s.rows[pk] = append(vector.Vector(nil), v...)
	s.index = nil
	return nil
}

// Query returns the topK exact nearest pks.
func (s *Store) Query(ctx context.Context, v vector.Vector, topK int) (vector.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreQueryFailure, "query canceled")
	}
	idx, err := s.current(v)
	if err != nil {
		return nil, err
	}
	ids, _, err := idx.Query(v, topK)
	if err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreQueryFailure, "index query failed")
	}
	return store.ToResult(ids), nil
}

func (s *Store) current(v vector.Vector) (index.Index, error) {
	s.mu.RLock()
	idx, dim := s.index, s.dim
	s.mu.RUnlock()
	if err := store.CheckDimension(dim, v); err != nil {
		return nil, err
	}
	if idx != nil {
		return idx, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		return s.index, nil
	}
	pks := make([]int, 0, len(s.rows))
	for pk := range s.rows {
		pks = append(pks, pk)
	}
	sort.Ints(pks)
	ids := make([]int64, len(pks))
	vecs := make([][]float32, len(pks))
	for i, pk := range pks {
		ids[i] = int64(pk)
		vecs[i] = s.rows[pk]
	}
	built := bruteforce.New(s.metric)
	if err := built.Build(ids, vecs); err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreQueryFailure, "index build failed")
	}
	s.index = built
	return built, nil
}

// Count returns the number of stored records.
func (s *Store) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows), nil
}

// Get returns the vector stored under pk.
func (s *Store) Get(pk int) (vector.Vector, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.rows[pk]
	return v, ok
}
