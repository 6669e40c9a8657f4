//go:build windows

package mmap

import (
	"io"
	"os"
)

// Windows lacks the unix mmap surface we rely on; reading the whole file
// preserves the read-only Mapping contract at the cost of a copy.
func osMap(f *os.File, size int) ([]byte, func([]byte) error, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, nil, err
	}
	return data, func([]byte) error { return nil }, nil
}
