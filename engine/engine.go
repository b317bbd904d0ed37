package engine

import (
	"database/sql"
	"net/url"
	"strings"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// BusyTimeoutMillis is the busy timeout applied by OpenFile.
const BusyTimeoutMillis = 5000

// Open opens a SQLite database using the modernc.org/sqlite driver.
//
// For file-based databases, pass a path like "./db.sqlite". For in-memory
// databases, pass ":memory:".
func Open(dsn string) (*sql.DB, error) { return sql.Open("sqlite", dsn) }

// OpenFile opens a file database with WAL journaling and a busy timeout so
// concurrent writers wait instead of failing with SQLITE_BUSY.
func OpenFile(path string) (*sql.DB, error) {
	return Open(FileDSN(path))
}

// FileDSN appends the WAL and busy timeout pragmas to path, keeping any
// query parameters already present.
func FileDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(5000)")
	return path + sep + q.Encode()
}
