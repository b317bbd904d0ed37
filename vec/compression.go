package vec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how persisted index blobs are stored.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZSTD Compression = 2
)

// headerSize covers [type uint8][raw size uint32][stored size uint32].
const headerSize = 9

// ParseCompression accepts none, lz4 and zstd.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zstd":
		return CompressionZSTD, nil
	case "lz4":
		return CompressionLZ4, nil
	case "none", "off":
		return CompressionNone, nil
	}
	return 0, fmt.Errorf("vec: unsupported compression %q", s)
}

func (c Compression) String() string {
	switch c {
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return "none"
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// compress frames data with a header; incompressible data is stored raw.
func compress(data []byte, c Compression) ([]byte, error) {
	var packed []byte
	switch c {
	case CompressionZSTD:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("vec: lz4 compress: %w", err)
		}
		packed = buf[:n]
	}
	if len(packed) == 0 || len(packed) >= len(data) {
		c, packed = CompressionNone, data
	}
	out := make([]byte, headerSize, headerSize+len(packed))
	out[0] = byte(c)
	binary.LittleEndian.PutUint32(out[1:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[5:], uint32(len(packed)))
	return append(out, packed...), nil
}

func decompress(blob []byte) ([]byte, error) {
	if len(blob) < headerSize {
		return nil, errors.New("vec: index blob too small for header")
	}
	c := Compression(blob[0])
	raw := binary.LittleEndian.Uint32(blob[1:])
	stored := binary.LittleEndian.Uint32(blob[5:])
	if uint64(len(blob)) < headerSize+uint64(stored) {
		return nil, errors.New("vec: index blob truncated")
	}
	data := blob[headerSize : headerSize+int(stored)]
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(data, make([]byte, 0, raw))
		if err != nil {
			return nil, fmt.Errorf("vec: zstd decompress: %w", err)
		}
		if uint32(len(out)) != raw {
			return nil, errors.New("vec: decompressed size mismatch")
		}
		return out, nil
	case CompressionLZ4:
		out := make([]byte, raw)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, fmt.Errorf("vec: lz4 decompress: %w", err)
		}
		if uint32(n) != raw {
			return nil, errors.New("vec: decompressed size mismatch")
		}
		return out, nil
	}
	return nil, fmt.Errorf("vec: unknown compression %d", c)
}
