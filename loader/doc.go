// Package loader upserts decoded base vectors into a vector.Store on a
// bounded worker pool. The first failed write aborts the load.
package loader
