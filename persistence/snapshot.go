package persistence

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"math"

	"github.com/hupe1980/pgmgo/index/static"
	"github.com/hupe1980/pgmgo/pla"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Options contains configuration options for serialization.
type Options struct {
	// Compression selects the payload compression. Compressed files cannot
	// be memory-mapped zero-copy and are materialized on load.
	Compression CompressionType
}

// DefaultOptions contains the default serialization options.
var DefaultOptions = Options{
	Compression: CompressionNone,
}

// Write serializes the index and its keys to w. The keys must be the exact
// slice the index was built from.
func Write[K pla.Key](w io.Writer, ix *static.Index[K], keys []K, optFns ...func(o *Options)) error {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if ix.Len() != len(keys) {
		return ErrKeyCount
	}

	raw := encodePayload(ix, keys)
	payload, err := compressPayload(raw, opts.Compression)
	if err != nil {
		return err
	}

	header := FileHeader{
		Magic:            MagicNumber,
		Version:          Version,
		N:                uint64(len(keys)),
		Epsilon:          uint64(ix.Epsilon()),
		EpsilonRecursive: uint64(ix.EpsilonRecursive()),
		LevelCount:       uint64(len(ix.Levels())),
		KeySize:          uint32(keySize[K]()),
		Checksum:         crc32.Checksum(raw, castagnoli),
		Compression:      uint8(opts.Compression),
	}
	if err := binary.Write(w, byteOrder, &header); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// Save writes the index atomically to a file.
func Save[K pla.Key](filename string, ix *static.Index[K], keys []K, optFns ...func(o *Options)) error {
	return SaveToFile(filename, func(w *bufio.Writer) error {
		return Write(w, ix, keys, optFns...)
	})
}

// Read deserializes an index and its keys from r. The returned key slice
// aliases the decoded payload buffer and must be treated as read-only.
func Read[K pla.Key](r io.Reader) (*static.Index[K], []K, error) {
	var header FileHeader
	if err := binary.Read(r, byteOrder, &header); err != nil {
		return nil, nil, err
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	return decode[K](&header, payload)
}

// decode validates the header and unpacks levels and keys from the payload.
func decode[K pla.Key](header *FileHeader, payload []byte) (*static.Index[K], []K, error) {
	if header.Magic != MagicNumber {
		return nil, nil, ErrInvalidMagic
	}
	if header.Version != Version {
		return nil, nil, ErrInvalidVersion
	}
	if int(header.KeySize) != keySize[K]() {
		return nil, nil, ErrInvalidKeySize
	}

	raw, err := decompressPayload(payload, CompressionType(header.Compression))
	if err != nil {
		return nil, nil, err
	}
	if crc32.Checksum(raw, castagnoli) != header.Checksum {
		return nil, nil, ErrChecksumMismatch
	}

	ks := keySize[K]()
	segBytes := ks + 16
	n := int(header.N)

	levels := make([][]pla.Segment[K], 0, header.LevelCount)
	off := 0
	for l := uint64(0); l < header.LevelCount; l++ {
		if off+8 > len(raw) {
			return nil, nil, ErrTruncated
		}
		count := int(byteOrder.Uint64(raw[off:]))
		off += 8
		if off+count*segBytes > len(raw) {
			return nil, nil, ErrTruncated
		}
		segs := make([]pla.Segment[K], count)
		for i := range segs {
			segs[i] = pla.Segment[K]{
				Key:       readKey[K](raw[off:]),
				Slope:     math.Float64frombits(byteOrder.Uint64(raw[off+ks:])),
				Intercept: int64(byteOrder.Uint64(raw[off+ks+8:])),
			}
			off += segBytes
		}
		levels = append(levels, segs)
	}

	off += pad8(off)
	if off+n*ks > len(raw) {
		return nil, nil, ErrTruncated
	}
	keys := keysFromBytes[K](raw[off:], n)

	var firstKey, lastKey K
	if n > 0 {
		firstKey, lastKey = keys[0], keys[n-1]
	}
	opts := static.Options{
		Epsilon:          int(header.Epsilon),
		EpsilonRecursive: int(header.EpsilonRecursive),
	}
	return static.FromLevels(n, opts, levels, firstKey, lastKey), keys, nil
}

// encodePayload packs segment levels (data level first) followed by the
// 8-byte-aligned key array.
func encodePayload[K pla.Key](ix *static.Index[K], keys []K) []byte {
	ks := keySize[K]()
	segBytes := ks + 16

	var total int
	for _, lvl := range ix.Levels() {
		total += 8 + len(lvl)*segBytes
	}
	pad := pad8(total)
	total += pad + len(keys)*ks

	buf := make([]byte, 0, total)
	var tmp [8]byte
	for _, lvl := range ix.Levels() {
		byteOrder.PutUint64(tmp[:], uint64(len(lvl)))
		buf = append(buf, tmp[:]...)
		for _, s := range lvl {
			buf = appendKey(buf, s.Key)
			byteOrder.PutUint64(tmp[:], math.Float64bits(s.Slope))
			buf = append(buf, tmp[:]...)
			byteOrder.PutUint64(tmp[:], uint64(s.Intercept))
			buf = append(buf, tmp[:]...)
		}
	}
	buf = append(buf, make([]byte, pad)...)
	buf = append(buf, keysToBytes(keys)...)
	return buf
}

// pad8 returns the padding needed to align off to 8 bytes, which keeps the
// key array castable in place.
func pad8(off int) int {
	return (8 - off%8) % 8
}

// Bytes serializes the index and keys into memory.
func Bytes[K pla.Key](ix *static.Index[K], keys []K, optFns ...func(o *Options)) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, ix, keys, optFns...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
