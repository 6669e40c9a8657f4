package persistence

import (
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

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

// compressPayload frames the payload as [rawLen u64][compressed bytes].
// LZ4 can refuse incompressible input; such payloads are stored raw with a
// zero-length marker.
func compressPayload(raw []byte, ct CompressionType) ([]byte, error) {
	switch ct {
	case CompressionNone:
		return raw, nil
	case CompressionLZ4:
		bound := lz4.CompressBlockBound(len(raw))
		out := make([]byte, 8, 8+bound)
		byteOrder.PutUint64(out, uint64(len(raw)))
		dst := out[8 : 8+bound]
		n, err := lz4.CompressBlock(raw, dst, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// Incompressible; store raw, flagged by rawLen == 0.
			out = out[:8]
			byteOrder.PutUint64(out, 0)
			return append(out, raw...), nil
		}
		return out[:8+n], nil
	case CompressionZSTD:
		enc := getZstdEncoder()
		defer zstdEncoderPool.Put(enc)
		out := make([]byte, 8)
		byteOrder.PutUint64(out, uint64(len(raw)))
		return enc.EncodeAll(raw, out), nil
	default:
		return nil, ErrInvalidCompression
	}
}

// decompressPayload reverses compressPayload.
func decompressPayload(data []byte, ct CompressionType) ([]byte, error) {
	switch ct {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		if len(data) < 8 {
			return nil, ErrTruncated
		}
		rawLen := byteOrder.Uint64(data)
		if rawLen == 0 {
			return data[8:], nil
		}
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(data[8:], out)
		if err != nil {
			return nil, err
		}
		return out[:n], nil
	case CompressionZSTD:
		if len(data) < 8 {
			return nil, ErrTruncated
		}
		rawLen := byteOrder.Uint64(data)
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(data[8:], make([]byte, 0, rawLen))
		if err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, ErrInvalidCompression
	}
}
