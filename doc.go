// Package pgmgo implements learned indexes over sorted numeric keys.
//
// A learned index replaces the nodes of a classic search tree with compact
// piecewise linear models of the key distribution. For a sorted key slice
// it answers search queries with a narrow range guaranteed to contain the
// key's rank, so a bounded binary search finishes the lookup in a handful
// of comparisons regardless of input size.
//
// The package offers two facades:
//
//   - Set: an immutable sorted key set built once over a key slice. Safe
//     for concurrent readers, serializable to a compact binary snapshot
//     that can be reopened memory-mapped (see the persistence package) or
//     published to object storage (see the blobstore package).
//
//   - Map: a mutable sorted map that layers a logarithmic merge cascade
//     over the same static structure, supporting inserts, updates, and
//     deletes with amortized logarithmic cost.
//
// Basic usage:
//
//	keys := []uint64{2, 3, 5, 7, 11, 13}
//	set, err := pgmgo.NewSet(keys)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pos := set.LowerBoundPos(7) // 3
//
// The underlying building blocks live in pla (the segmenter), index/static,
// and index/dynamic for callers that want the raw structures without the
// facade's logging and metrics.
package pgmgo
