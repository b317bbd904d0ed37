// Package engine opens SQLite connections through the modernc.org/sqlite
// driver and registers the vec_l2 and vec_cosine scalar functions shared by
// the vec virtual table and the SQL scan query mode.
package engine
