package vec

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/viant/vecbench/index"
	"github.com/viant/vecbench/vector"
)

// ensureIndex returns the cached index, else loads the persisted blob, else
// builds from the shadow table and persists the result.
func ensureIndex(ctx context.Context, db *sql.DB, dbPath, schema, table string, opts Options) (index.Index, error) {
	entry := getCacheEntry(cacheKey(dbPath, table))
	idx, gen, claimed := entry.acquire()
	if !claimed {
		return idx, nil
	}
	shadow := qualify(schema, ShadowTable(table))
	data, err := loadPersisted(ctx, db, shadow)
	if err != nil {
		entry.release(nil, gen)
		return nil, err
	}
	if data != nil {
		if idx, err := opts.decodeIndex(data); err == nil {
			entry.release(idx, gen)
			return idx, nil
		}
	}
	built, _, err := buildIndex(ctx, db, shadow, opts)
	if err != nil {
		entry.release(nil, gen)
		return nil, err
	}
	if entry.current(gen) {
		if data, err := built.MarshalBinary(); err == nil {
			_ = persist(ctx, db, shadow, data, opts.Compression)
		}
	}
	entry.release(built, gen)
	return built, nil
}

// Rebuild builds the index of table from its shadow rows, persists it and
// installs it in the process cache. It returns the number of indexed rows.
func Rebuild(ctx context.Context, db *sql.DB, table string) (int, error) {
	if err := ValidateName(table); err != nil {
		return 0, err
	}
	opts, err := TableOptions(ctx, db, table)
	if err != nil {
		return 0, err
	}
	shadow := qualify("", ShadowTable(table))
	built, n, err := buildIndex(ctx, db, shadow, opts)
	if err != nil {
		return 0, err
	}
	data, err := built.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("vec: marshal %s index: %w", table, err)
	}
	if err := persist(ctx, db, shadow, data, opts.Compression); err != nil {
		return 0, fmt.Errorf("vec: persist %s index: %w", table, err)
	}
	dbPath, err := resolveDBPath(ctx, db, "main")
	if err != nil {
		return 0, err
	}
	getCacheEntry(cacheKey(dbPath, table)).replace(built)
	return n, nil
}

func buildIndex(ctx context.Context, db *sql.DB, shadow string, opts Options) (index.Index, int, error) {
	ids, vecs, err := loadShadow(ctx, db, shadow)
	if err != nil {
		return nil, 0, err
	}
	dim := 0
	if len(vecs) > 0 {
		dim = len(vecs[0])
	}
	idx := opts.newIndex(opts.resolveKind(len(ids), dim))
	if err := idx.Build(ids, vecs); err != nil {
		return nil, 0, fmt.Errorf("vec: build %s: %w", shadow, err)
	}
	return idx, len(ids), nil
}

func loadShadow(ctx context.Context, db *sql.DB, shadow string) ([]int64, [][]float32, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT pk, embedding FROM %s ORDER BY pk`, shadow))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var ids []int64
	var vecs [][]float32
	for rows.Next() {
		var pk int64
		var emb []byte
		if err := rows.Scan(&pk, &emb); err != nil {
			return nil, nil, err
		}
		v, err := vector.DecodeEmbedding(emb)
		if err != nil {
			return nil, nil, fmt.Errorf("vec: pk %d: %w", pk, err)
		}
		if len(v) == 0 {
			continue
		}
		ids = append(ids, pk)
		vecs = append(vecs, v)
	}
	return ids, vecs, rows.Err()
}
