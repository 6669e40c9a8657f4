package persistence

import (
	"bufio"
	"encoding/binary"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/hupe1980/pgmgo/pla"
)

// byteOrder is little-endian throughout; the zero-copy slice casts below
// additionally assume a little-endian host, which covers x86 and ARM.
var byteOrder = binary.LittleEndian

// keySize returns the in-memory size of K in bytes.
func keySize[K pla.Key]() int {
	var k K
	return int(unsafe.Sizeof(k))
}

// appendKey appends the raw bytes of k.
func appendKey[K pla.Key](buf []byte, k K) []byte {
	return append(buf, unsafe.Slice((*byte)(unsafe.Pointer(&k)), unsafe.Sizeof(k))...)
}

// readKey decodes a key from the start of b.
func readKey[K pla.Key](b []byte) K {
	var k K
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&k)), unsafe.Sizeof(k)), b)
	return k
}

// keysToBytes reinterprets a key slice as raw bytes (no allocation).
func keysToBytes[K pla.Key](keys []K) []byte {
	if len(keys) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&keys[0])), len(keys)*keySize[K]())
}

// keysFromBytes reinterprets raw bytes as a key slice. The data must be
// aligned for K; the writer pads the key section to guarantee it.
func keysFromBytes[K pla.Key](data []byte, n int) []K {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*K)(unsafe.Pointer(&data[0])), n)
}

// SaveToFile writes a file atomically: the data goes to a temp file in the
// same directory which is fsynced and renamed over the destination.
func SaveToFile(filename string, writeFunc func(w *bufio.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, filename)
}
