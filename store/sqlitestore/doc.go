// Package sqlitestore implements vector.Store on the vec virtual table over
// the pure-Go modernc.org/sqlite driver.
package sqlitestore
