// Package cover implements index.Index on top of a cover tree.
// Search is exact for l2 and approximate for cosine distance, which does not
// satisfy the triangle inequality.
package cover
