package store

import (
	"github.com/viant/vecbench/vecerr"
	"github.com/viant/vecbench/vector"
)

// CheckDimension returns a store.query.syntax error when a query vector does
// not match the dimension the store was provisioned with. A zero dimension
// accepts anything.
func CheckDimension(dim int, v vector.Vector) error {
	if len(v) == 0 {
		return vecerr.New(vecerr.CodeStoreQuerySyntax, "empty query vector")
	}
	if dim > 0 && len(v) != dim {
		return vecerr.New(vecerr.CodeStoreQuerySyntax, "query dimension mismatch",
			vecerr.Field("dimension", len(v)), vecerr.Field("expected", dim))
	}
	return nil
}

// CheckWrite validates a record before it is written.
func CheckWrite(dim, pk int, v vector.Vector) error {
	if pk < 0 {
		return vecerr.New(vecerr.CodeStoreWriteFailure, "negative primary key", vecerr.FieldPK(pk))
	}
	if len(v) == 0 || (dim > 0 && len(v) != dim) {
		return vecerr.New(vecerr.CodeStoreWriteFailure, "vector dimension mismatch",
			vecerr.FieldPK(pk), vecerr.Field("dimension", len(v)), vecerr.Field("expected", dim))
	}
	return nil
}

// ToResult converts index ids into a query result.
func ToResult(ids []int64) vector.QueryResult {
	out := make(vector.QueryResult, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}
