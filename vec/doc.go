// Package vec implements the vec SQLite virtual table for kNN search.
//
// Each virtual table is backed by a shadow table _vec_<table> holding
// (pk INTEGER PRIMARY KEY, embedding BLOB) rows. A query of the form
//
//	SELECT pk, distance FROM docs WHERE embedding MATCH ? AND k = ?
//
// is answered by an in-memory index (brute force, VP-tree or cover tree)
// that is built on first use, persisted compressed in vector_storage and
// shared by every connection of the process. Triggers on the shadow table
// drop the persisted blob and invalidate the cache on any write.
package vec
