// Package kvstore implements vector.Store on BadgerDB. Records are stored
// msgpack-encoded under big-endian pk keys; queries run on an exact index
// built from a prefix scan and dropped on every write.
package kvstore
