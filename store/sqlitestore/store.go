package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/vecbench/engine"
	"github.com/viant/vecbench/store"
	"github.com/viant/vecbench/vec"
	"github.com/viant/vecbench/vecadmin"
	"github.com/viant/vecbench/vecerr"
	"github.com/viant/vecbench/vector"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// IndexSQL answers queries with an exact ORDER BY scan over the shadow
// table instead of the virtual table.
const IndexSQL = "sql"

// Options configure Open.
type Options struct {
	// DSN is the database file path; in-memory databases are not supported
	// because each connection would see its own database.
	DSN         string
	Table       string
	Dimension   int
	Metric      vector.Metric
	Index       string
	Compression string
	Recreate    bool
	// MaxOpenConns bounds the pool; 0 leaves it unbounded. Values below 2
	// are raised to 2 since the virtual table queries on a second connection.
	MaxOpenConns int
}

// Store is a vector.Store over one vec table.
type Store struct {
	db        *sql.DB
	table     string
	dim       int
	upsertSQL string
	querySQL  string
	countSQL  string
}

// Open provisions the table (dropping it first when Recreate is set) and
// returns a ready store.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if err := vec.ValidateName(opts.Table); err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreOpenFailure, "invalid table name", vecerr.Field("table", opts.Table))
	}
	if opts.DSN == "" || strings.Contains(opts.DSN, ":memory:") {
		return nil, vecerr.New(vecerr.CodeStoreOpenFailure, "sqlite store needs a database file", vecerr.Field("dsn", opts.DSN))
	}
	vopts := vec.DefaultOptions()
	if opts.Metric != "" {
		vopts.Metric = opts.Metric
	}
	mode := strings.ToLower(opts.Index)
	if mode != "" && mode != IndexSQL {
		vopts.Index = mode
	}
	if opts.Compression != "" {
		c, err := vec.ParseCompression(opts.Compression)
		if err != nil {
			return nil, vecerr.Wrap(err, vecerr.CodeStoreOpenFailure, "invalid compression")
		}
		vopts.Compression = c
	}
	// probe the option set before touching the database
	if _, err := vec.ParseOptions(vopts.Args()); err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreOpenFailure, "invalid vec options", vecerr.Field("index", opts.Index))
	}

	if err := engine.RegisterVectorFunctions(); err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreOpenFailure, "register vector functions")
	}
	db, err := engine.OpenFile(opts.DSN)
	if err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreOpenFailure, "open database", vecerr.Field("dsn", opts.DSN))
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(max(opts.MaxOpenConns, 2))
	}
	s, err := provision(ctx, db, opts, vopts, mode)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func provision(ctx context.Context, db *sql.DB, opts Options, vopts vec.Options, mode string) (*Store, error) {
	if err := vec.Register(db); err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreOpenFailure, "register vec module")
	}
	if err := vecadmin.Register(db); err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreOpenFailure, "register vec_admin module")
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreOpenFailure, "ping database", vecerr.Field("dsn", opts.DSN))
	}
	if opts.Recreate {
		if err := vec.DropTable(ctx, db, opts.Table); err != nil {
			return nil, vecerr.Wrap(err, vecerr.CodeStoreSchemaFailure, "drop table", vecerr.Field("table", opts.Table))
		}
	}
	if err := vec.CreateTable(ctx, db, opts.Table, vopts); err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreSchemaFailure, "create table", vecerr.Field("table", opts.Table))
	}
	if _, err := db.ExecContext(ctx, `CREATE VIRTUAL TABLE IF NOT EXISTS vec_admin USING vec_admin(op)`); err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreSchemaFailure, "create vec_admin")
	}
	shadow := vec.ShadowTable(opts.Table)
	s := &Store{
		db:        db,
		table:     opts.Table,
		dim:       opts.Dimension,
		upsertSQL: fmt.Sprintf(`INSERT INTO %s(pk, embedding) VALUES (?, ?) ON CONFLICT(pk) DO UPDATE SET embedding = excluded.embedding`, shadow),
		querySQL:  fmt.Sprintf(`SELECT pk FROM %s WHERE embedding MATCH ? AND k = ? ORDER BY distance`, opts.Table),
		countSQL:  fmt.Sprintf(`SELECT COUNT(*) FROM %s`, shadow),
	}
	if mode == IndexSQL {
		if vopts.Metric == vector.MetricCosine {
			s.querySQL = fmt.Sprintf(`SELECT pk FROM %s ORDER BY vec_cosine(embedding, ?) DESC LIMIT ?`, shadow)
		} else {
			s.querySQL = fmt.Sprintf(`SELECT pk FROM %s ORDER BY vec_l2(embedding, ?) LIMIT ?`, shadow)
		}
	}
	return s, nil
}

// UpsertOne inserts or replaces the embedding of pk.
func (s *Store) UpsertOne(ctx context.Context, pk int, v vector.Vector) error {
	if err := store.CheckWrite(s.dim, pk, v); err != nil {
		return err
	}
	blob, err := vector.EncodeEmbedding(v)
	if err != nil {
		return vecerr.Wrap(err, vecerr.CodeStoreWriteFailure, "encode embedding", vecerr.FieldPK(pk))
	}
	if _, err := s.db.ExecContext(ctx, s.upsertSQL, pk, blob); err != nil {
		return vecerr.Wrap(err, vecerr.CodeStoreWriteFailure, "upsert failed", vecerr.FieldPK(pk))
	}
	return nil
}

// Query returns up to topK pks nearest first.
func (s *Store) Query(ctx context.Context, v vector.Vector, topK int) (vector.QueryResult, error) {
	if err := store.CheckDimension(s.dim, v); err != nil {
		return nil, err
	}
	blob, err := vector.EncodeEmbedding(v)
	if err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeStoreQuerySyntax, "encode query")
	}
	rows, err := s.db.QueryContext(ctx, s.querySQL, blob, topK)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	out := make(vector.QueryResult, 0, max(topK, 0))
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

// classify maps SQLite failures onto query codes. The primary result code
// SQLITE_ERROR covers malformed statements and rejected MATCH arguments;
// vec storage failures travel under the same code and are told apart by
// their marker.
func classify(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_ERROR && !vec.IsInternal(err) {
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

// Reindex rebuilds and persists the table index through vec_admin.
func (s *Store) Reindex(ctx context.Context) (int, error) {
	var op string
	if err := s.db.QueryRowContext(ctx, `SELECT op FROM vec_admin WHERE op MATCH ?`, s.table).Scan(&op); err != nil {
		return 0, vecerr.Wrap(err, vecerr.CodeStoreSchemaFailure, "reindex", vecerr.Field("table", s.table))
	}
	n, err := strconv.Atoi(strings.TrimPrefix(op, "reindexed:"))
	if err != nil {
		return 0, vecerr.Wrap(err, vecerr.CodeStoreSchemaFailure, "unexpected vec_admin reply", vecerr.Field("reply", op))
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
