// Package bruteforce provides an exact vector index that answers kNN queries
// by scanning all vectors under l2 or cosine distance. It is the ground of
// truth for the approximate indexes and persists in the BRF1 format.
package bruteforce
