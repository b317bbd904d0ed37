// Package recall queries a vector.Store with a query set and scores the
// answers against ground truth as recall@k.
//
// A query rejected as malformed (vecerr.KindStoreSyntax) scores zero hits
// and the evaluation continues; any other failure aborts it.
package recall
