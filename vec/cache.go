package vec

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/viant/vecbench/index"
)

// sharedCache holds built indexes keyed by database path and table so every
// connection of the process reuses one build.
var sharedCache = struct {
	mu    sync.Mutex
	byKey map[string]*cacheEntry
}{byKey: make(map[string]*cacheEntry)}

// cacheEntry gates builds so concurrent queries wait for a single builder.
// gen advances on every invalidation; a build started under an older
// generation is returned to its caller but never cached.
type cacheEntry struct {
	mu       sync.Mutex
	cond     *sync.Cond
	idx      index.Index
	gen      uint64
	building bool
}

func newCacheEntry() *cacheEntry {
	e := &cacheEntry{}
	e.cond = sync.NewCond(&e.mu)
	return e
}

func cacheKey(dbPath, table string) string { return dbPath + "|" + table }

func getCacheEntry(key string) *cacheEntry {
	sharedCache.mu.Lock()
	defer sharedCache.mu.Unlock()
	entry, ok := sharedCache.byKey[key]
	if !ok {
		entry = newCacheEntry()
		sharedCache.byKey[key] = entry
	}
	return entry
}

// acquire returns the cached index, or claims the build slot and reports the
// generation observed; callers that claim must call release.
func (e *cacheEntry) acquire() (index.Index, uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.building && e.idx == nil {
		e.cond.Wait()
	}
	if e.idx != nil {
		return e.idx, e.gen, false
	}
	e.building = true
	return nil, e.gen, true
}

func (e *cacheEntry) release(idx index.Index, gen uint64) {
	e.mu.Lock()
	if idx != nil && gen == e.gen {
		e.idx = idx
	}
	e.building = false
	e.cond.Broadcast()
	e.mu.Unlock()
}

// replace installs idx unconditionally, used by explicit rebuilds.
func (e *cacheEntry) replace(idx index.Index) {
	e.mu.Lock()
	e.idx = idx
	e.gen++
	e.mu.Unlock()
}

func (e *cacheEntry) invalidate() {
	e.mu.Lock()
	e.idx = nil
	e.gen++
	e.mu.Unlock()
}

// InvalidateCache drops cached indexes of table across all databases and
// returns how many entries were reset.
func InvalidateCache(table string) int {
	suffix := "|" + table
	sharedCache.mu.Lock()
	defer sharedCache.mu.Unlock()
	count := 0
	for key, entry := range sharedCache.byKey {
		if strings.HasSuffix(key, suffix) {
			entry.invalidate()
			count++
		}
	}
	return count
}

// resolveDBPath maps a schema name to its file, or the schema name itself
// for in-memory databases.
func resolveDBPath(ctx context.Context, db *sql.DB, schema string) (string, error) {
	if schema == "" {
		schema = "main"
	}
	rows, err := db.QueryContext(ctx, `SELECT name, file FROM pragma_database_list`)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	for rows.Next() {
		var name, file string
		if err := rows.Scan(&name, &file); err != nil {
			return "", err
		}
		if name == schema {
			if file == "" {
				return name, nil
			}
			return file, nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return schema, nil
}

func (e *cacheEntry) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen == gen
}
