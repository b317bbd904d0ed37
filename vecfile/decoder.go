package vecfile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/viant/vecbench/vecerr"
	"github.com/viant/vecbench/vector"
)

// MaxDimension bounds the declared record size accepted before allocating.
const MaxDimension = 1 << 20

const headerSize = 4

// unknownSize marks a stream whose total length is not known up front.
const unknownSize = -1

// recordReader splits a stream into [int32 n][n x 4 bytes] records. With
// uniform set every n must equal the first one. It is shared by the vector
// and neighbor decoders.
type recordReader struct {
	r         *bufio.Reader
	uniform   bool
	stride    int
	remaining int64
	index     int
	offset    int64
	done      bool
	header    [headerSize]byte
	buf       []byte
}

func newRecordReader(r io.Reader, uniform bool, size int64) *recordReader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, 1<<16)
	}
	if size < 0 {
		size = unknownSize
	}
	return &recordReader{r: br, uniform: uniform, remaining: size}
}

// short reports whether fewer than n bytes are left in a stream of known size.
func (rr *recordReader) short(n int) bool {
	return rr.remaining != unknownSize && rr.remaining < int64(n)
}

func (rr *recordReader) consume(n int) {
	if rr.remaining != unknownSize {
		rr.remaining -= int64(n)
	}
}

// next returns the payload of the next full record, or ok=false at the end
// of the stream. The payload is valid until the following call.
func (rr *recordReader) next() ([]byte, bool, error) {
	if rr.done {
		return nil, false, nil
	}
	if rr.short(headerSize) {
		// fewer than four trailing bytes: truncated tail
		rr.done = true
		return nil, false, nil
	}
	_, err := io.ReadFull(rr.r, rr.header[:])
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		rr.done = true
		return nil, false, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		// fewer than four trailing bytes: truncated tail
		rr.done = true
		return nil, false, nil
	default:
		rr.done = true
		return nil, false, vecerr.Wrap(err, vecerr.CodeFileReadFailure, "reading record header",
			vecerr.FieldRecord(rr.index), vecerr.FieldOffset(rr.offset))
	}

	rr.consume(headerSize)
	size := int(int32(binary.LittleEndian.Uint32(rr.header[:])))
	if err := rr.checkSize(size); err != nil {
		rr.done = true
		return nil, false, err
	}

	want := size * 4
	if rr.short(want) {
		// header present but payload short: truncated tail
		rr.done = true
		return nil, false, nil
	}
	if cap(rr.buf) < want {
		rr.buf = make([]byte, want)
	}
	payload := rr.buf[:want]
	_, err = io.ReadFull(rr.r, payload)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		// header present but payload short: truncated tail
		rr.done = true
		return nil, false, nil
	default:
		rr.done = true
		return nil, false, vecerr.Wrap(err, vecerr.CodeFileReadFailure, "reading record payload",
			vecerr.FieldRecord(rr.index), vecerr.FieldOffset(rr.offset))
	}
	rr.consume(want)
	rr.index++
	rr.offset += int64(headerSize + want)
	return payload, true, nil
}

func (rr *recordReader) checkSize(size int) error {
	fields := []vecerr.Attr{vecerr.FieldRecord(rr.index), vecerr.FieldOffset(rr.offset), vecerr.Field("size", size)}
	if size <= 0 {
		return vecerr.New(vecerr.CodeCorruptRecord, "record declares non-positive size", fields...)
	}
	if size > MaxDimension {
		return vecerr.New(vecerr.CodeCorruptRecord, "record size exceeds maximum dimension", fields...)
	}
	if !rr.uniform {
		return nil
	}
	if rr.stride == 0 {
		rr.stride = size
		return nil
	}
	if size != rr.stride {
		fields = append(fields, vecerr.Field("stride", rr.stride))
		return vecerr.New(vecerr.CodeCorruptRecord, "record size differs from the file stride", fields...)
	}
	return nil
}

// VectorDecoder streams vectors from an fvecs stream.
type VectorDecoder struct {
	rr *recordReader
}

// NewVectorDecoder returns a decoder reading from r.
func NewVectorDecoder(r io.Reader) *VectorDecoder {
	return NewSizedVectorDecoder(r, unknownSize)
}

// NewSizedVectorDecoder returns a decoder for a stream of size bytes. A
// final record that does not fit in the bytes left is dropped without
// being read.
func NewSizedVectorDecoder(r io.Reader, size int64) *VectorDecoder {
	return &VectorDecoder{rr: newRecordReader(r, true, size)}
}

// Next returns the next vector. ok is false once the stream is exhausted
// (a partial final record included) or after an error.
func (d *VectorDecoder) Next() (v vector.Vector, ok bool, err error) {
	payload, ok, err := d.rr.next()
	if !ok || err != nil {
		return nil, false, err
	}
	v = make(vector.Vector, len(payload)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	return v, true, nil
}

// Index returns the number of records decoded so far.
func (d *VectorDecoder) Index() int { return d.rr.index }

// Dimension returns the established stride, 0 before the first record.
func (d *VectorDecoder) Dimension() int { return d.rr.stride }

// NeighborDecoder streams ground-truth neighbor sets from an ivecs stream.
type NeighborDecoder struct {
	rr  *recordReader
	ids []int32
}

// NewNeighborDecoder returns a decoder reading from r.
func NewNeighborDecoder(r io.Reader) *NeighborDecoder {
	return NewSizedNeighborDecoder(r, unknownSize)
}

// NewSizedNeighborDecoder returns a decoder for a stream of size bytes.
func NewSizedNeighborDecoder(r io.Reader, size int64) *NeighborDecoder {
	return &NeighborDecoder{rr: newRecordReader(r, false, size)}
}

// Next returns the next neighbor set. Records may list different numbers
// of ids; negative ids are corrupt records.
func (d *NeighborDecoder) Next() (vector.NeighborSet, bool, error) {
	record, offset := d.rr.index, d.rr.offset
	payload, ok, err := d.rr.next()
	if !ok || err != nil {
		return vector.NeighborSet{}, false, err
	}
	d.ids = d.ids[:0]
	for i := 0; i < len(payload); i += 4 {
		d.ids = append(d.ids, int32(binary.LittleEndian.Uint32(payload[i:])))
	}
	set, err := vector.NeighborSetOf(d.ids)
	if err != nil {
		d.rr.done = true
		return vector.NeighborSet{}, false, vecerr.Wrap(err, vecerr.CodeCorruptRecord, "invalid neighbor id",
			vecerr.FieldRecord(record), vecerr.FieldOffset(offset))
	}
	return set, true, nil
}

// Index returns the number of records decoded so far.
func (d *NeighborDecoder) Index() int { return d.rr.index }

// ReadVectors decodes every full record of r.
func ReadVectors(r io.Reader) ([]vector.Vector, error) {
	return readVectors(NewVectorDecoder(r), 0)
}

func readVectors(d *VectorDecoder, sizeHint int) ([]vector.Vector, error) {
	out := make([]vector.Vector, 0, sizeHint)
	for {
		v, ok, err := d.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// ReadNeighborSets decodes every full record of r.
func ReadNeighborSets(r io.Reader) ([]vector.NeighborSet, error) {
	return readNeighborSets(NewNeighborDecoder(r))
}

func readNeighborSets(d *NeighborDecoder) ([]vector.NeighborSet, error) {
	var out []vector.NeighborSet
	for {
		s, ok, err := d.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, s)
	}
}
