package vecfile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/viant/vecbench/vecerr"
	"github.com/viant/vecbench/vector"
)

// CountRecords returns how many full [int32 dim][dim x 4 bytes] records fit
// in size bytes. It assumes a uniform dimension.
func CountRecords(size int64, dim int) int {
	if dim <= 0 || size <= 0 {
		return 0
	}
	return int(size / int64(headerSize+dim*4))
}

// CountVectors derives the record count of a vector file from its size and
// the dimension of its first record, without decoding the rest.
func CountVectors(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, vecerr.Wrap(err, vecerr.CodeFileOpenFailure, "opening vector file", vecerr.FieldFile(path))
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, vecerr.Wrap(err, vecerr.CodeFileReadFailure, "stat vector file", vecerr.FieldFile(path))
	}
	var header [headerSize]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil
		}
		return 0, vecerr.Wrap(err, vecerr.CodeFileReadFailure, "reading first header", vecerr.FieldFile(path))
	}
	dim := int(int32(binary.LittleEndian.Uint32(header[:])))
	if dim <= 0 || dim > MaxDimension {
		return 0, vecerr.New(vecerr.CodeCorruptRecord, "first record declares invalid dimension",
			vecerr.FieldFile(path), vecerr.FieldRecord(0), vecerr.FieldOffset(0), vecerr.Field("size", dim))
	}
	return CountRecords(info.Size(), dim), nil
}

// OpenVectors decodes a whole vector file, pre-sizing the result from the
// file size. Errors carry the file name.
func OpenVectors(path string) ([]vector.Vector, error) {
	hint, err := CountVectors(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeFileOpenFailure, "opening vector file", vecerr.FieldFile(path))
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeFileReadFailure, "stat vector file", vecerr.FieldFile(path))
	}
	vs, err := readVectors(NewSizedVectorDecoder(f, info.Size()), hint)
	if err != nil {
		return nil, vecerr.With(err, vecerr.FieldFile(path))
	}
	return vs, nil
}

// OpenNeighborSets decodes a whole neighbor-set file. Errors carry the file name.
func OpenNeighborSets(path string) ([]vector.NeighborSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeFileOpenFailure, "opening neighbor file", vecerr.FieldFile(path))
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, vecerr.Wrap(err, vecerr.CodeFileReadFailure, "stat neighbor file", vecerr.FieldFile(path))
	}
	sets, err := readNeighborSets(NewSizedNeighborDecoder(f, info.Size()))
	if err != nil {
		return nil, vecerr.With(err, vecerr.FieldFile(path))
	}
	return sets, nil
}

// WriteVectors encodes vs in the fvecs layout.
func WriteVectors(w io.Writer, vs []vector.Vector) error {
	bw := bufio.NewWriter(w)
	var scratch []byte
	for i, v := range vs {
		scratch = binary.LittleEndian.AppendUint32(scratch[:0], uint32(int32(len(v))))
		scratch = vector.AppendEmbedding(scratch, v)
		if _, err := bw.Write(scratch); err != nil {
			return vecerr.Wrap(err, vecerr.CodeFileWriteFailure, "writing vector", vecerr.FieldRecord(i))
		}
	}
	if err := bw.Flush(); err != nil {
		return vecerr.Wrap(err, vecerr.CodeFileWriteFailure, "flushing vectors")
	}
	return nil
}

// WriteNeighborSets encodes sets in the ivecs layout, preserving id order.
func WriteNeighborSets(w io.Writer, sets [][]int32) error {
	bw := bufio.NewWriter(w)
	var scratch []byte
	for i, ids := range sets {
		scratch = binary.LittleEndian.AppendUint32(scratch[:0], uint32(int32(len(ids))))
		for _, id := range ids {
			scratch = binary.LittleEndian.AppendUint32(scratch, uint32(id))
		}
		if _, err := bw.Write(scratch); err != nil {
			return vecerr.Wrap(err, vecerr.CodeFileWriteFailure, "writing neighbor set", vecerr.FieldRecord(i))
		}
	}
	if err := bw.Flush(); err != nil {
		return vecerr.Wrap(err, vecerr.CodeFileWriteFailure, "flushing neighbor sets")
	}
	return nil
}

// CreateVectors writes vs to a new file at path.
func CreateVectors(path string, vs []vector.Vector) error {
	return createFile(path, func(w io.Writer) error { return WriteVectors(w, vs) })
}

// CreateNeighborSets writes sets to a new file at path.
func CreateNeighborSets(path string, sets [][]int32) error {
	return createFile(path, func(w io.Writer) error { return WriteNeighborSets(w, sets) })
}

func createFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return vecerr.Wrap(err, vecerr.CodeFileWriteFailure, "creating file", vecerr.FieldFile(path))
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return vecerr.With(err, vecerr.FieldFile(path))
	}
	if err := f.Close(); err != nil {
		return vecerr.Wrap(err, vecerr.CodeFileWriteFailure, "closing file", vecerr.FieldFile(path))
	}
	return nil
}
