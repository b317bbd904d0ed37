package vecfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/vecbench/vecerr"
	"github.com/viant/vecbench/vector"
)

func sampleVectors() []vector.Vector {
	return []vector.Vector{
		{0, 1.5, -2.25},
		{float32(math.Inf(-1)), 3, 42},
		{1e-38, -0, 7.125},
	}
}

func encodeVectors(t *testing.T, vs []vector.Vector) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteVectors(&buf, vs))
	return buf.Bytes()
}

func encodeNeighborSets(t *testing.T, sets [][]int32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteNeighborSets(&buf, sets))
	return buf.Bytes()
}

func rawRecord(size int32, payload ...uint32) []byte {
	out := binary.LittleEndian.AppendUint32(nil, uint32(size))
	for _, p := range payload {
		out = binary.LittleEndian.AppendUint32(out, p)
	}
	return out
}

func TestReadVectorsRoundTrip(t *testing.T) {
	want := sampleVectors()
	got, err := ReadVectors(bytes.NewReader(encodeVectors(t, want)))
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		require.Len(t, got[i], len(want[i]))
		for j := range want[i] {
			assert.Equal(t, math.Float32bits(want[i][j]), math.Float32bits(got[i][j]), "vector %d component %d", i, j)
		}
	}
}

func TestReadVectorsDeterministic(t *testing.T) {
	data := encodeVectors(t, sampleVectors())
	first, err := ReadVectors(bytes.NewReader(data))
	require.NoError(t, err)
	second, err := ReadVectors(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReadVectorsEmpty(t *testing.T) {
	got, err := ReadVectors(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadVectorsDropsTruncatedTail(t *testing.T) {
	data := encodeVectors(t, sampleVectors())
	want, err := ReadVectors(bytes.NewReader(data))
	require.NoError(t, err)

	for extra := 1; extra <= 3; extra++ {
		padded := append(append([]byte(nil), data...), bytes.Repeat([]byte{0xAB}, extra)...)
		got, err := ReadVectors(bytes.NewReader(padded))
		require.NoError(t, err, "extra=%d", extra)
		assert.Equal(t, want, got, "extra=%d", extra)
	}
}

func TestReadVectorsDropsPartialPayload(t *testing.T) {
	data := encodeVectors(t, sampleVectors())
	partial := append(append([]byte(nil), data...), rawRecord(3, 1, 2)...)
	got, err := ReadVectors(bytes.NewReader(partial))
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestReadVectorsNonPositiveDimension(t *testing.T) {
	for _, dim := range []int32{0, -4} {
		data := append(encodeVectors(t, sampleVectors()[:1]), rawRecord(dim, 1, 2, 3)...)
		d := NewVectorDecoder(bytes.NewReader(data))

		v, ok, err := d.Next()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Len(t, v, 3)

		_, ok, err = d.Next()
		require.Error(t, err, "dim=%d", dim)
		assert.False(t, ok)
		assert.Equal(t, vecerr.CodeCorruptRecord, vecerr.CodeOf(err))
		assert.Equal(t, 1, vecerr.FieldsOf(err)["record"])
		assert.Equal(t, int64(16), vecerr.FieldsOf(err)["offset"])

		// decoding stops at the corrupt record
		_, ok, err = d.Next()
		assert.NoError(t, err)
		assert.False(t, ok)

		_, err = ReadVectors(bytes.NewReader(data))
		assert.Equal(t, vecerr.KindCorruptRecord, vecerr.KindOf(err))
	}
}

func TestReadVectorsStrideMismatch(t *testing.T) {
	data := append(encodeVectors(t, sampleVectors()[:2]), rawRecord(2, 1, 2)...)
	_, err := ReadVectors(bytes.NewReader(data))
	require.Error(t, err)
	assert.Equal(t, vecerr.CodeCorruptRecord, vecerr.CodeOf(err))
	assert.Equal(t, 3, vecerr.FieldsOf(err)["stride"])
	assert.Equal(t, 2, vecerr.FieldsOf(err)["record"])
}

func TestReadVectorsOversizedDimension(t *testing.T) {
	_, err := ReadVectors(bytes.NewReader(rawRecord(MaxDimension + 1)))
	assert.Equal(t, vecerr.CodeCorruptRecord, vecerr.CodeOf(err))
}

func TestVectorDecoderIndexAndDimension(t *testing.T) {
	d := NewVectorDecoder(bytes.NewReader(encodeVectors(t, sampleVectors())))
	assert.Equal(t, 0, d.Dimension())
	for {
		_, ok, err := d.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
	}
	assert.Equal(t, 3, d.Index())
	assert.Equal(t, 3, d.Dimension())
}

func TestReadNeighborSets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNeighborSets(&buf, [][]int32{{3, 1, 2}, {7, 7, 9}}))
	buf.Write([]byte{1, 2})

	sets, err := ReadNeighborSets(&buf)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, []int{1, 2, 3}, sets[0].ToArray())
	assert.Equal(t, []int{7, 9}, sets[1].ToArray())
}

func TestReadNeighborSetsVariableCounts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNeighborSets(&buf, [][]int32{{1, 2, 3}, {4, 5}}))

	sets, err := ReadNeighborSets(&buf)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, []int{1, 2, 3}, sets[0].ToArray())
	assert.Equal(t, []int{4, 5}, sets[1].ToArray())
}

func TestReadNeighborSetsLimits(t *testing.T) {
	_, err := ReadNeighborSets(bytes.NewReader(append(rawRecord(1, 4), rawRecord(-2)...)))
	assert.Equal(t, vecerr.CodeCorruptRecord, vecerr.CodeOf(err))
	assert.Equal(t, 1, vecerr.FieldsOf(err)["record"])

	_, err = ReadNeighborSets(bytes.NewReader(rawRecord(MaxDimension + 1)))
	assert.Equal(t, vecerr.CodeCorruptRecord, vecerr.CodeOf(err))
}

func TestReadNeighborSetsCorrupt(t *testing.T) {
	_, err := ReadNeighborSets(bytes.NewReader(rawRecord(0)))
	assert.Equal(t, vecerr.CodeCorruptRecord, vecerr.CodeOf(err))

	negative := int32(-5)
	_, err = ReadNeighborSets(bytes.NewReader(rawRecord(2, 1, uint32(negative))))
	assert.Equal(t, vecerr.CodeCorruptRecord, vecerr.CodeOf(err))
	assert.Equal(t, 0, vecerr.FieldsOf(err)["record"])
}

func TestCountVectorsMatchesDecode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "base.fvecs")
	want := make([]vector.Vector, 25)
	for i := range want {
		want[i] = vector.Vector{float32(i), float32(i * 2), float32(i * 3), float32(i * 4)}
	}
	require.NoError(t, CreateVectors(path, want))

	n, err := CountVectors(path)
	require.NoError(t, err)
	got, err := OpenVectors(path)
	require.NoError(t, err)
	assert.Equal(t, len(want), n)
	assert.Equal(t, n, len(got))
	assert.Equal(t, want, got)
}

func TestCountVectorsEmptyAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.fvecs")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	n, err := CountVectors(empty)
	require.NoError(t, err)
	assert.Zero(t, n)

	bad := filepath.Join(dir, "bad.fvecs")
	require.NoError(t, os.WriteFile(bad, rawRecord(-1, 0), 0o644))
	_, err = CountVectors(bad)
	assert.Equal(t, vecerr.CodeCorruptRecord, vecerr.CodeOf(err))
	assert.Equal(t, bad, vecerr.FieldsOf(err)["file"])
}

func TestOpenErrorsCarryFile(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.ivecs")
	_, err := OpenNeighborSets(missing)
	assert.Equal(t, vecerr.CodeFileOpenFailure, vecerr.CodeOf(err))
	assert.Equal(t, missing, vecerr.FieldsOf(err)["file"])

	path := filepath.Join(dir, "gt.ivecs")
	require.NoError(t, os.WriteFile(path, append(rawRecord(1, 4), rawRecord(2, 1, 0xFFFFFFFF)...), 0o644))
	_, err = OpenNeighborSets(path)
	assert.Equal(t, vecerr.CodeCorruptRecord, vecerr.CodeOf(err))
	assert.Equal(t, path, vecerr.FieldsOf(err)["file"])
	assert.Equal(t, 1, vecerr.FieldsOf(err)["record"])
}

func TestSizedDecoderStopsAtDeclaredSize(t *testing.T) {
	data := append(encodeVectors(t, sampleVectors()), rawRecord(3, 1, 2)...)
	boom := errors.New("device gone")
	stream := func() io.Reader { return io.MultiReader(bytes.NewReader(data), iotest.ErrReader(boom)) }

	got, err := readVectors(NewSizedVectorDecoder(stream(), int64(len(data))), 0)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	// without a size the short payload is read and the stream error surfaces
	_, err = readVectors(NewVectorDecoder(stream()), 0)
	assert.Equal(t, vecerr.CodeFileReadFailure, vecerr.CodeOf(err))
	assert.ErrorIs(t, err, boom)

	sets := append(encodeNeighborSets(t, [][]int32{{1, 2}, {3}}), 7, 0)
	ns, err := readNeighborSets(NewSizedNeighborDecoder(io.MultiReader(bytes.NewReader(sets), iotest.ErrReader(boom)), int64(len(sets))))
	require.NoError(t, err)
	assert.Len(t, ns, 2)
}

func TestOpenVectorsDropsPartialTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "base.fvecs")
	data := append(encodeVectors(t, sampleVectors()), rawRecord(3, 1)...)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	got, err := OpenVectors(path)
	require.NoError(t, err)
	assert.Equal(t, sampleVectors(), got)
}

func TestCountRecords(t *testing.T) {
	assert.Equal(t, 2, CountRecords(2*(4+128*4)+3, 128))
	assert.Zero(t, CountRecords(100, 0))
}
