package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/viant/vecbench/vector"
)

// Magic headers identifying serialized index kinds.
const (
	MagicBruteForce = "BRF1"
	MagicVPTree     = "VPT1"
	MagicCover      = "COV1"
)

// MagicOf returns the four-byte header of a serialized index, or "".
func MagicOf(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	return string(data[:4])
}

// EncodePayload stores: magic, metric length (uint8) and name, dim (uint32),
// n (uint32), then for each item id (int64) and vec (float32[dim]).
func EncodePayload(magic string, metric vector.Metric, ids []int64, vecs [][]float32) ([]byte, error) {
	if len(magic) != 4 {
		return nil, fmt.Errorf("index: invalid magic %q", magic)
	}
	if len(ids) != len(vecs) {
		return nil, fmt.Errorf("index: ids and vectors length mismatch: %d != %d", len(ids), len(vecs))
	}
	dim := 0
	if len(vecs) > 0 {
		dim = len(vecs[0])
	}
	out := make([]byte, 0, 4+1+len(metric)+8+len(ids)*(8+4*dim))
	out = append(out, magic...)
	out = append(out, byte(len(metric)))
	out = append(out, metric...)
	out = binary.LittleEndian.AppendUint32(out, uint32(dim))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(ids)))
	for i, id := range ids {
		if len(vecs[i]) != dim {
			return nil, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(vecs[i]), dim)
		}
		out = binary.LittleEndian.AppendUint64(out, uint64(id))
		for _, v := range vecs[i] {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
		}
	}
	return out, nil
}

// DecodePayload reverses EncodePayload, checking the magic header.
func DecodePayload(magic string, data []byte) (vector.Metric, []int64, [][]float32, error) {
	if MagicOf(data) != magic {
		return "", nil, nil, fmt.Errorf("index: expected %s payload", magic)
	}
	off := 4
	if off >= len(data) {
		return "", nil, nil, errors.New("index: truncated metric")
	}
	mlen := int(data[off])
	off++
	if off+mlen+8 > len(data) {
		return "", nil, nil, errors.New("index: truncated header")
	}
	metric := vector.Metric(data[off : off+mlen])
	off += mlen
	dim := int(binary.LittleEndian.Uint32(data[off:]))
	n := int(binary.LittleEndian.Uint32(data[off+4:]))
	off += 8
	if need := n * (8 + 4*dim); need < 0 || off+need > len(data) {
		return "", nil, nil, errors.New("index: truncated items")
	}
	ids := make([]int64, n)
	vecs := make([][]float32, n)
	for i := 0; i < n; i++ {
		ids[i] = int64(binary.LittleEndian.Uint64(data[off:]))
		off += 8
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
		vecs[i] = vec
	}
	return metric, ids, vecs, nil
}

// CheckBuild validates Build arguments and returns the common dimension.
func CheckBuild(ids []int64, vectors [][]float32) (int, error) {
	if len(ids) != len(vectors) {
		return 0, fmt.Errorf("index: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if len(vectors) == 0 {
		return 0, nil
	}
	dim := len(vectors[0])
	for j := range vectors {
		if len(vectors[j]) != dim {
			return 0, fmt.Errorf("%w: inconsistent vector dims %d vs %d", ErrDimensionMismatch, len(vectors[j]), dim)
		}
	}
	return dim, nil
}
