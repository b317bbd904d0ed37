// Package sqlitevec implements vector.Store on the sqlite-vec extension's
// vec0 virtual table through mattn/go-sqlite3. It requires cgo; without it
// Open fails with store.open.failure.
package sqlitevec
