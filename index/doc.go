// Package index defines a minimal abstraction for vector indexes that can be
// built from embeddings, queried for kNN, and serialized for persistence.
// Implementations: bruteforce (exact), vptree (vantage-point tree) and
// cover (cover tree).
package index
