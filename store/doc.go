// Package store holds the vector.Store implementations benchmarked by
// vecbench and the helpers they share.
package store
