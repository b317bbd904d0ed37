package vecadmin

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/viant/vecbench/vec"
	"modernc.org/sqlite/vtab"
)

// Module provides administrative operations via a virtual table.
// Usage:
//
//	CREATE VIRTUAL TABLE vec_admin USING vec_admin(op);
//	SELECT op FROM vec_admin WHERE op MATCH 'docs'; -- rebuild the docs index
//
// Returns a single row with op='reindexed:<count>' on success.
type Module struct{ db *sql.DB }

// Table is a vec_admin instance.
type Table struct{ db *sql.DB }

// Cursor yields the outcome of one operation.
type Cursor struct {
	table *Table
	rows  []string
	pos   int
}

const idxReindex = 1

// Register registers the vec_admin module with db.
func Register(db *sql.DB) error {
	if err := vtab.RegisterModule(db, "vec_admin", &Module{db: db}); err != nil {
		if !strings.Contains(err.Error(), "already registered") {
			return err
		}
	}
	return nil
}

// Create declares the single op column.
func (m *Module) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.Connect(ctx, args)
}

// Connect declares the single op column.
func (m *Module) Connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("vec_admin: need at least 3 args")
	}
	if err := ctx.Declare(fmt.Sprintf("CREATE TABLE %s(op TEXT)", args[2])); err != nil {
		return nil, err
	}
	return &Table{db: m.db}, nil
}

// BestIndex accepts op MATCH ?; anything else yields no rows.
func (t *Table) BestIndex(info *vtab.IndexInfo) error {
	for i := range info.Constraints {
		c := &info.Constraints[i]
		if c.Usable && c.Column == 0 && c.Op == vtab.OpMATCH {
			c.ArgIndex = 0
			c.Omit = true
			info.IdxNum = idxReindex
			break
		}
	}
	return nil
}

func (t *Table) Open() (vtab.Cursor, error) { return &Cursor{table: t}, nil }
func (t *Table) Disconnect() error           { return nil }
func (t *Table) Destroy() error              { return nil }

// Filter runs the requested reindex.
func (c *Cursor) Filter(idxNum int, _ string, vals []vtab.Value) error {
	c.rows, c.pos = nil, 0
	if idxNum != idxReindex || len(vals) == 0 || vals[0] == nil {
		return nil
	}
	target, ok := vals[0].(string)
	if !ok {
		return fmt.Errorf("vec_admin: MATCH expects a table name as TEXT")
	}
	n, err := vec.Rebuild(context.Background(), c.table.db, TableName(target))
	if err != nil {
		return err
	}
	c.rows = []string{fmt.Sprintf("reindexed:%d", n)}
	return nil
}

// TableName accepts a vec table name or its qualified shadow name
// ("main._vec_docs") and returns the vec table name.
func TableName(target string) string {
	name := strings.TrimSpace(target)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimPrefix(name, vec.ShadowTable(""))
}

func (c *Cursor) Next() error {
	if c.pos < len(c.rows) {
		c.pos++
	}
	return nil
}

func (c *Cursor) Eof() bool { return c.pos >= len(c.rows) }

func (c *Cursor) Column(col int) (vtab.Value, error) {
	if c.pos >= len(c.rows) {
		return nil, fmt.Errorf("vec_admin: Column out of range")
	}
	if col == 0 {
		return c.rows[c.pos], nil
	}
	return nil, nil
}

func (c *Cursor) Rowid() (int64, error) { return int64(c.pos + 1), nil }

func (c *Cursor) Close() error {
	c.rows, c.pos = nil, 0
	return nil
}
