// Package vecfile decodes and encodes the fixed-record little-endian vector
// formats used by ANN benchmark datasets:
//
//	fvecs: repeating [int32 dim][dim x float32]   (base and query vectors)
//	ivecs: repeating [int32 count][count x int32] (ground-truth neighbor ids)
//
// Files have no header. A final partial record is dropped; a non-positive or
// non-uniform record size is reported as a corrupt record.
package vecfile
