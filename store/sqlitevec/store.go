//go:build cgo

package sqlitevec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/viant/vecbench/store"
	"github.com/viant/vecbench/vec"
	"github.com/viant/vecbench/vecerr"
	"github.com/viant/vecbench/vector"
)

func init() {
	sqlite_vec.Auto()
}

// Store is a vector.Store over one vec0 table.
type Store struct {
	db        *sql.DB
	dim       int
	deleteSQL string
	insertSQL string
	querySQL  string
	countSQL  string
}

// Open creates (or reuses) the vec0 table and returns a ready store.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if err := vec.ValidateName(opts.Table); err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreOpenFailure, "invalid table name", vecerr.Field("table", opts.Table))
	}
	if opts.Dimension <= 0 {
		return nil, vecerr.New(vecerr.CodeStoreOpenFailure, "vec0 tables need a dimension", vecerr.Field("dimension", opts.Dimension))
	}
	db, err := sql.Open("sqlite3", opts.DSN+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreOpenFailure, "open database", vecerr.Field("dsn", opts.DSN))
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, vecerr.Wrap(err, vecerr.CodeStoreOpenFailure, "ping database", vecerr.Field("dsn", opts.DSN))
	}
	if err := migrate(ctx, db, opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{
		db:        db,
		dim:       opts.Dimension,
		deleteSQL: fmt.Sprintf(`DELETE FROM %s WHERE pk = ?`, opts.Table),
		insertSQL: fmt.Sprintf(`INSERT INTO %s(pk, embedding) VALUES (?, ?)`, opts.Table),
		querySQL:  fmt.Sprintf(`SELECT pk FROM %s WHERE embedding MATCH ? AND k = ? ORDER BY distance`, opts.Table),
		countSQL:  fmt.Sprintf(`SELECT COUNT(*) FROM %s`, opts.Table),
	}, nil
}

func migrate(ctx context.Context, db *sql.DB, opts Options) error {
	if opts.Recreate {
		if _, err := db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, opts.Table)); err != nil {
			return vecerr.Wrap(err, vecerr.CodeStoreSchemaFailure, "drop table", vecerr.Field("table", opts.Table))
		}
	}
	ddl := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(pk INTEGER PRIMARY KEY, embedding float[%d] distance_metric=%s)`,
		opts.Table, opts.Dimension, distanceMetric(opts.Metric))
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return vecerr.Wrap(err, vecerr.CodeStoreSchemaFailure, "create vec0 table", vecerr.Field("table", opts.Table))
	}
	return nil
}

// UpsertOne replaces the row of pk; vec0 has no ON CONFLICT so the old row
// is deleted first inside one transaction.
func (s *Store) UpsertOne(ctx context.Context, pk int, v vector.Vector) error {
	if err := store.CheckWrite(s.dim, pk, v); err != nil {
		return err
	}
	blob, err := sqlite_vec.SerializeFloat32(v)
	if err != nil {
		return vecerr.Wrap(err, vecerr.CodeStoreWriteFailure, "serialize embedding", vecerr.FieldPK(pk))
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return vecerr.Wrap(err, vecerr.CodeStoreWriteFailure, "begin transaction", vecerr.FieldPK(pk))
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, s.deleteSQL, pk); err != nil {
		return vecerr.Wrap(err, vecerr.CodeStoreWriteFailure, "delete existing row", vecerr.FieldPK(pk))
	}
	if _, err := tx.ExecContext(ctx, s.insertSQL, pk, blob); err != nil {
		return vecerr.Wrap(err, vecerr.CodeStoreWriteFailure, "insert row", vecerr.FieldPK(pk))
	}
	if err := tx.Commit(); err != nil {
		return vecerr.Wrap(err, vecerr.CodeStoreWriteFailure, "commit", vecerr.FieldPK(pk))
	}
	return nil
}

// Query returns up to topK pks nearest first.
func (s *Store) Query(ctx context.Context, v vector.Vector, topK int) (vector.QueryResult, error) {
	if err := store.CheckDimension(s.dim, v); err != nil {
		return nil, err
	}
	blob, err := sqlite_vec.SerializeFloat32(v)
	if err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreQuerySyntax, "serialize query")
	}
	rows, err := s.db.QueryContext(ctx, s.querySQL, blob, topK)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = rows.Close() }()
	var out vector.QueryResult
	for rows.Next() {
		var pk int64
		if err := rows.Scan(&pk); err != nil {
			return nil, vecerr.Wrap(err, vecerr.CodeStoreQueryFailure, "scan result")
		}
		out = append(out, int(pk))
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// classify treats the generic SQLITE_ERROR result as a rejected request.
func classify(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrError {
		return vecerr.Wrap(err, vecerr.CodeStoreQuerySyntax, "query rejected")
	}
	return vecerr.Wrap(err, vecerr.CodeStoreQueryFailure, "query failed")
}

// Count returns the number of stored rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.countSQL).Scan(&n); err != nil {
		return 0, vecerr.Wrap(err, vecerr.CodeStoreQueryFailure, "count rows")
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
