package kvstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/viant/vecbench/index"
	"github.com/viant/vecbench/index/bruteforce"
	"github.com/viant/vecbench/internal/logging"
	"github.com/viant/vecbench/store"
	"github.com/viant/vecbench/vecerr"
	"github.com/viant/vecbench/vector"
	"github.com/vmihailenco/msgpack/v5"
)

var keyPrefix = []byte("v/")

// Options configure Open.
type Options struct {
	// Dir holds the database files; required unless InMemory.
	Dir       string
	InMemory  bool
	Dimension int
	Metric    vector.Metric
	Recreate  bool
	Logger    *logging.Logger
}

type record struct {
	PK     int       `msgpack:"pk"`
	Vector []float32 `msgpack:"vector"`
}

// Store is a vector.Store over BadgerDB.
type Store struct {
	db     *badger.DB
	dim    int
	metric vector.Metric

	buildMu sync.Mutex
	mu      sync.RWMutex
	index   index.Index
	version uint64
}

// Open opens or creates the database.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, vecerr.New(vecerr.CodeStoreOpenFailure, "badger store needs a directory")
	}
	dir := opts.Dir
	if opts.InMemory {
		dir = ""
	}
	dbOpts := badger.DefaultOptions(dir).
		WithInMemory(opts.InMemory).
		WithLogger(badgerLogger{logging.OrNoop(opts.Logger)})
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreOpenFailure, "open badger", vecerr.Field("dir", opts.Dir))
	}
	if opts.Recreate {
		if err := db.DropAll(); err != nil {
			_ = db.Close()
			return nil, vecerr.Wrap(err, vecerr.CodeStoreSchemaFailure, "drop badger data")
		}
	}
	return &Store{db: db, dim: opts.Dimension, metric: opts.Metric}, nil
}

func encodeKey(pk int) []byte {
	return binary.BigEndian.AppendUint64(append([]byte(nil), keyPrefix...), uint64(pk))
}

// UpsertOne writes the record of pk.
func (s *Store) UpsertOne(ctx context.Context, pk int, v vector.Vector) error {
	if err := ctx.Err(); err != nil {
		return vecerr.Wrap(err, vecerr.CodeStoreWriteFailure, "upsert canceled", vecerr.FieldPK(pk))
	}
	if err := store.CheckWrite(s.dim, pk, v); err != nil {
		return err
	}
	val, err := msgpack.Marshal(record{PK: pk, Vector: v})
	if err != nil {
		return vecerr.Wrap(err, vecerr.CodeStoreWriteFailure, "encode record", vecerr.FieldPK(pk))
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(encodeKey(pk), val)
	}); err != nil {
		return vecerr.Wrap(err, vecerr.CodeStoreWriteFailure, "badger set", vecerr.FieldPK(pk))
	}
	s.invalidate()
	return nil
}

func (s *Store) invalidate() {
	s.mu.Lock()
	s.index = nil
	s.version++
	s.mu.Unlock()
}

// Get returns the stored vector of pk.
func (s *Store) Get(pk int) (vector.Vector, error) {
	var rec record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encodeKey(pk))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return msgpack.Unmarshal(val, &rec) })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, vecerr.New(vecerr.CodeStoreQueryFailure, "record not found", vecerr.FieldPK(pk))
	}
	if err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreQueryFailure, "badger get", vecerr.FieldPK(pk))
	}
	return rec.Vector, nil
}

// Query returns up to topK exact nearest pks.
func (s *Store) Query(ctx context.Context, v vector.Vector, topK int) (vector.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreQueryFailure, "query canceled")
	}
	if err := store.CheckDimension(s.dim, v); err != nil {
		return nil, err
	}
	idx, err := s.current()
	if err != nil {
		return nil, err
	}
	ids, _, err := idx.Query(v, topK)
	if err != nil {
		if errors.Is(err, index.ErrDimensionMismatch) {
			return nil, vecerr.Wrap(err, vecerr.CodeStoreQuerySyntax, "query dimension mismatch")
		}
		return nil, vecerr.Wrap(err, vecerr.CodeStoreQueryFailure, "index query failed")
	}
	return store.ToResult(ids), nil
}

func (s *Store) current() (index.Index, error) {
	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()
	if idx != nil {
		return idx, nil
	}
	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	s.mu.RLock()
	idx, version := s.index, s.version
	s.mu.RUnlock()
	if idx != nil {
		return idx, nil
	}
	built, err := s.build()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.version == version {
		s.index = built
	}
	s.mu.Unlock()
	return built, nil
}

func (s *Store) build() (index.Index, error) {
	var ids []int64
	var vecs [][]float32
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(keyPrefix); it.ValidForPrefix(keyPrefix); it.Next() {
			var rec record
			if err := it.Item().Value(func(val []byte) error { return msgpack.Unmarshal(val, &rec) }); err != nil {
				return err
			}
			ids = append(ids, int64(rec.PK))
			vecs = append(vecs, rec.Vector)
		}
		return nil
	})
	if err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreQueryFailure, "scan records")
	}
	idx := bruteforce.New(s.metric)
	if err := idx.Build(ids, vecs); err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreQueryFailure, "index build failed")
	}
	return idx, nil
}

// Count returns the number of stored records.
func (s *Store) Count(context.Context) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(keyPrefix); it.ValidForPrefix(keyPrefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, vecerr.Wrap(err, vecerr.CodeStoreQueryFailure, "count records")
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// badgerLogger routes badger's logging to slog, dropping info and debug.
type badgerLogger struct{ log *logging.Logger }

func (l badgerLogger) Errorf(f string, v ...any) {
	l.log.Error("badger", "msg", strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (l badgerLogger) Warningf(f string, v ...any) {
	l.log.Warn("badger", "msg", strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (badgerLogger) Infof(string, ...any)  {}
func (badgerLogger) Debugf(string, ...any) {}
