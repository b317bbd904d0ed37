// Package vptree provides a vantage-point tree index. Each node splits its
// subtree at the median distance to a vantage point; queries prune branches
// that cannot hold a nearer neighbor.
package vptree
