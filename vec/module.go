package vec

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/viant/vecbench/index"
	"github.com/viant/vecbench/vector"
	sqlite "modernc.org/sqlite"
	"modernc.org/sqlite/vtab"
)

// Column positions of the declared schema.
const (
	colPK = iota
	colEmbedding
	colDistance
	colK
)

const (
	idxScan = iota
	idxMatch
	idxMatchK
)

// internalPrefix marks Filter failures that are not caused by the query.
const internalPrefix = "vec: internal: "

// IsInternal reports whether err came from a vec storage or index failure
// rather than from a malformed query.
func IsInternal(err error) bool {
	return err != nil && strings.Contains(err.Error(), internalPrefix)
}

func internalError(err error) error {
	return fmt.Errorf("%s%w", internalPrefix, err)
}

// Module implements vtab.Module for the vec virtual table. Its db serves
// the internal shadow and vector_storage queries, so it needs a pool of at
// least two connections.
type Module struct {
	db *sql.DB
}

// Table represents a single vec virtual table instance.
type Table struct {
	db     *sql.DB
	schema string
	name   string
	opts   Options

	pathOnce sync.Once
	path     string
	pathErr  error
}

// Cursor iterates a materialized result set.
type Cursor struct {
	table *Table
	rows  []row
	pos   int
}

type row struct {
	pk        int64
	embedding []byte
	distance  float64
}

var registerOnce sync.Once

// Register registers the vec module with db and the vec_invalidate(table)
// scalar used by shadow triggers.
func Register(db *sql.DB) error {
	if err := vtab.RegisterModule(db, "vec", &Module{db: db}); err != nil {
		if !strings.Contains(err.Error(), "already registered") {
			return err
		}
	}
	var err error
	registerOnce.Do(func() {
		err = sqlite.RegisterScalarFunction("vec_invalidate", 1, invalidateFunc)
	})
	return err
}

// invalidateFunc implements vec_invalidate(table TEXT) -> INT.
func invalidateFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 1 {
		return int64(0), nil
	}
	switch v := args[0].(type) {
	case string:
		return int64(InvalidateCache(v)), nil
	case []byte:
		return int64(InvalidateCache(string(v))), nil
	}
	return int64(0), nil
}

// Create declares a vec table; shadow provisioning happens in CreateTable.
func (m *Module) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.connect(ctx, args)
}

// Connect attaches to an existing vec table.
func (m *Module) Connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.connect(ctx, args)
}

func (m *Module) connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("vec: expected at least 3 args, got %d", len(args))
	}
	if err := ctx.EnableConstraintSupport(); err != nil {
		return nil, fmt.Errorf("vec: EnableConstraintSupport failed: %w", err)
	}
	opts, err := ParseOptions(args[3:])
	if err != nil {
		return nil, err
	}
	if err := ctx.Declare(fmt.Sprintf("CREATE TABLE %s(pk INTEGER, embedding BLOB, distance REAL HIDDEN, k INTEGER HIDDEN)", args[2])); err != nil {
		return nil, err
	}
	return &Table{db: m.db, schema: args[1], name: args[2], opts: opts}, nil
}

// BestIndex pushes down embedding MATCH ? and k = ?.
func (t *Table) BestIndex(info *vtab.IndexInfo) error {
	var match, k *vtab.Constraint
	for i := range info.Constraints {
		c := &info.Constraints[i]
		if !c.Usable {
			continue
		}
		switch {
		case c.Column == colEmbedding && c.Op == vtab.OpMATCH:
			match = c
		case c.Column == colK && c.Op == vtab.OpEQ:
			k = c
		}
	}
	info.IdxNum = idxScan
	if match == nil {
		return nil
	}
	match.ArgIndex = 0
	match.Omit = true
	info.IdxNum = idxMatch
	if k != nil {
		k.ArgIndex = 1
		k.Omit = true
		info.IdxNum = idxMatchK
	}
	return nil
}

// Open allocates a new cursor.
func (t *Table) Open() (vtab.Cursor, error) { return &Cursor{table: t}, nil }

// Disconnect releases nothing; the index cache outlives connections.
func (t *Table) Disconnect() error { return nil }

// Destroy keeps the shadow table; DropTable removes it.
func (t *Table) Destroy() error { return nil }

func (t *Table) dbPath(ctx context.Context) (string, error) {
	t.pathOnce.Do(func() {
		t.path, t.pathErr = resolveDBPath(ctx, t.db, t.schema)
	})
	return t.path, t.pathErr
}

func (t *Table) shadow() string { return qualify(t.schema, ShadowTable(t.name)) }

// Query runs a kNN search against the table index, nearest first. k <= 0
// returns every row.
func (t *Table) Query(ctx context.Context, q []float32, k int) ([]int64, []float32, error) {
	path, err := t.dbPath(ctx)
	if err != nil {
		return nil, nil, internalError(err)
	}
	idx, err := ensureIndex(ctx, t.db, path, t.schema, t.name, t.opts)
	if err != nil {
		return nil, nil, internalError(err)
	}
	if idx.Len() == 0 {
		return nil, nil, nil
	}
	return idx.Query(q, k)
}

// Filter materializes the rows of a scan or a kNN search.
func (c *Cursor) Filter(idxNum int, _ string, vals []vtab.Value) error {
	c.rows, c.pos = nil, 0
	ctx := context.Background()
	if idxNum == idxScan {
		return c.scan(ctx)
	}
	if len(vals) == 0 || vals[0] == nil {
		return fmt.Errorf("vec: MATCH argument is required")
	}
	q, err := decodeMatchArg(vals[0])
	if err != nil {
		return err
	}
	k := 0
	if idxNum == idxMatchK {
		if len(vals) < 2 {
			return fmt.Errorf("vec: missing k argument")
		}
		if k, err = asInt(vals[1]); err != nil {
			return err
		}
		if k <= 0 {
			return fmt.Errorf("vec: k must be positive, got %d", k)
		}
	}
	ids, dists, err := c.table.Query(ctx, q, k)
	switch {
	case err == nil:
	case !IsInternal(err) && isDimensionMismatch(err):
		return fmt.Errorf("vec: invalid MATCH argument: %w", err)
	default:
		return err
	}
	c.rows = make([]row, len(ids))
	for i, id := range ids {
		c.rows[i] = row{pk: id, distance: float64(dists[i])}
	}
	return nil
}

func (c *Cursor) scan(ctx context.Context) error {
	rows, err := c.table.db.QueryContext(ctx, fmt.Sprintf(`SELECT pk, embedding FROM %s ORDER BY pk`, c.table.shadow()))
	if err != nil {
		return internalError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.pk, &r.embedding); err != nil {
			return internalError(err)
		}
		c.rows = append(c.rows, r)
	}
	if err := rows.Err(); err != nil {
		return internalError(err)
	}
	return nil
}

// Next advances the cursor.
func (c *Cursor) Next() error {
	if c.pos < len(c.rows) {
		c.pos++
	}
	return nil
}

// Eof reports end-of-rows.
func (c *Cursor) Eof() bool { return c.pos >= len(c.rows) }

// Column returns a column of the current row. embedding is only
// materialized by scans; kNN rows report NULL.
func (c *Cursor) Column(col int) (vtab.Value, error) {
	if c.pos >= len(c.rows) {
		return nil, fmt.Errorf("vec: Column out of range (pos=%d,len=%d)", c.pos, len(c.rows))
	}
	r := c.rows[c.pos]
	switch col {
	case colPK:
		return r.pk, nil
	case colEmbedding:
		if r.embedding == nil {
			return nil, nil
		}
		return r.embedding, nil
	case colDistance:
		return r.distance, nil
	case colK:
		return nil, nil
	}
	return nil, fmt.Errorf("vec: unsupported column %d", col)
}

// Rowid returns the pk of the current row.
func (c *Cursor) Rowid() (int64, error) {
	if c.pos >= len(c.rows) {
		return 0, fmt.Errorf("vec: Rowid out of range (pos=%d,len=%d)", c.pos, len(c.rows))
	}
	return c.rows[c.pos].pk, nil
}

// Close releases the result set.
func (c *Cursor) Close() error {
	c.rows, c.pos = nil, 0
	return nil
}

func isDimensionMismatch(err error) bool {
	return err != nil && strings.Contains(err.Error(), index.ErrDimensionMismatch.Error())
}

func decodeMatchArg(v vtab.Value) ([]float32, error) {
	switch val := v.(type) {
	case []byte:
		q, err := vector.DecodeEmbedding(val)
		if err != nil {
			return nil, fmt.Errorf("vec: invalid MATCH argument: %w", err)
		}
		return q, nil
	case string:
		return decodeMatchString(val)
	}
	return nil, fmt.Errorf("vec: expected MATCH arg as BLOB or string, got %T", v)
}

// decodeMatchString accepts a JSON array, a base64 embedding BLOB or a
// comma separated list of floats.
func decodeMatchString(raw string) ([]float32, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("vec: MATCH string is empty")
	}
	if strings.HasPrefix(s, "[") {
		var floats []float32
		if err := json.Unmarshal([]byte(s), &floats); err != nil {
			return nil, fmt.Errorf("vec: invalid MATCH JSON: %w", err)
		}
		return floats, nil
	}
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		q := make([]float32, 0, len(parts))
		for _, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
			if err != nil {
				return nil, fmt.Errorf("vec: invalid MATCH float %q: %w", p, err)
			}
			q = append(q, float32(f))
		}
		return q, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		if q, err := vector.DecodeEmbedding(b); err == nil && len(q) > 0 {
			return q, nil
		}
	}
	return nil, fmt.Errorf("vec: MATCH string must be a JSON/CSV float list or base64 embedding")
}

func asInt(v vtab.Value) (int, error) {
	switch val := v.(type) {
	case int64:
		return int(val), nil
	case float64:
		return int(val), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("vec: invalid k %q", val)
		}
		return n, nil
	}
	return 0, fmt.Errorf("vec: unsupported k type %T", v)
}
