package vec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const shadowPrefix = "_vec_"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ShadowTable returns the shadow table name of a vec table.
func ShadowTable(table string) string { return shadowPrefix + table }

// ValidateName rejects names that cannot be interpolated into DDL as-is.
func ValidateName(table string) error {
	if !identPattern.MatchString(table) {
		return fmt.Errorf("vec: invalid table name %q", table)
	}
	return nil
}

func qualify(schema, name string) string {
	if strings.TrimSpace(schema) == "" {
		schema = "main"
	}
	return schema + "." + name
}

// CreateTable provisions vector_storage, the shadow table with its
// invalidation triggers, then the virtual table itself. DDL runs outside the
// vtab callbacks so no connection issues nested schema changes.
func CreateTable(ctx context.Context, db *sql.DB, table string, opts Options) error {
	if err := ValidateName(table); err != nil {
		return err
	}
	if opts.Index == "" {
		opts.Index = IndexAuto
	}
	if opts.Metric == "" {
		opts.Metric = DefaultOptions().Metric
	}
	stmts := []string{storageDDL}
	stmts = append(stmts, shadowDDL(table)...)
	stmts = append(stmts, fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec(%s)`, table, strings.Join(opts.Args(), ", ")))
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("vec: create %s: %w", table, err)
		}
	}
	return nil
}

// DropTable removes the virtual table, its shadow and its persisted index.
func DropTable(ctx context.Context, db *sql.DB, table string) error {
	if err := ValidateName(table); err != nil {
		return err
	}
	shadow := ShadowTable(table)
	stmts := []string{
		storageDDL,
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table),
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, shadow),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("vec: drop %s: %w", table, err)
		}
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM vector_storage WHERE shadow_table_name = ?`, qualify("", shadow)); err != nil {
		return fmt.Errorf("vec: drop %s index: %w", table, err)
	}
	InvalidateCache(table)
	return nil
}

const storageDDL = `CREATE TABLE IF NOT EXISTS vector_storage (
    shadow_table_name TEXT PRIMARY KEY,
    "index"           BLOB
)`

// shadowDDL returns the shadow table and its AFTER INSERT/UPDATE/DELETE
// triggers; each trigger deletes the persisted blob and resets the cache.
func shadowDDL(table string) []string {
	shadow := ShadowTable(table)
	key := quoteLiteral(qualify("", shadow))
	body := fmt.Sprintf(`DELETE FROM vector_storage WHERE shadow_table_name = %s; SELECT vec_invalidate(%s);`, key, quoteLiteral(table))
	out := []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    pk        INTEGER PRIMARY KEY,
    embedding BLOB NOT NULL
)`, shadow)}
	for _, event := range []string{"INSERT", "UPDATE", "DELETE"} {
		out = append(out, fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS trg%s_%s AFTER %s ON %s BEGIN %s END`,
			shadow, strings.ToLower(event[:3]), event, shadow, body))
	}
	return out
}

// TableOptions reads the USING vec(...) arguments back from sqlite_master.
func TableOptions(ctx context.Context, db *sql.DB, table string) (Options, error) {
	var ddl string
	err := db.QueryRowContext(ctx, `SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&ddl)
	if errors.Is(err, sql.ErrNoRows) {
		return Options{}, fmt.Errorf("vec: no such table %q", table)
	}
	if err != nil {
		return Options{}, err
	}
	open := strings.Index(ddl, "(")
	end := strings.LastIndex(ddl, ")")
	if !strings.Contains(strings.ToLower(ddl), "using vec") || open < 0 || end < open {
		return Options{}, fmt.Errorf("vec: %q is not a vec table", table)
	}
	return ParseOptions(strings.Split(ddl[open+1:end], ","))
}

func loadPersisted(ctx context.Context, db *sql.DB, shadow string) ([]byte, error) {
	var blob []byte
	err := db.QueryRowContext(ctx, `SELECT "index" FROM vector_storage WHERE shadow_table_name = ?`, shadow).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && len(blob) == 0) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decompress(blob)
}

func persist(ctx context.Context, db *sql.DB, shadow string, data []byte, c Compression) error {
	blob, err := compress(data, c)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `INSERT OR REPLACE INTO vector_storage(shadow_table_name, "index") VALUES(?, ?)`, shadow, blob)
	return err
}

// quoteLiteral returns s as a SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
