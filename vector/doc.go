// Package vector defines the benchmark data model and the Store contract:
//   - Vector, Record, QueryResult and NeighborSet (ground truth)
//   - Store: UpsertOne/Query capability implemented by every backend
//   - Metric and distance functions
//   - Embedding encoding (little-endian float32 BLOB)
package vector
