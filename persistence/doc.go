// Package persistence serializes built indexes to a compact little-endian
// binary format and reads them back, either streamed or memory-mapped.
//
// A serialized file holds a 64-byte header, the segment levels (data level
// first), and the sorted keys. The segment levels are small and are always
// decoded into memory; the key array is the bulk of the file and is exposed
// zero-copy when the file is uncompressed and memory-mapped.
package persistence
