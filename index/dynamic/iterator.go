package dynamic

import (
	"container/heap"
	"iter"

	"github.com/hupe1980/pgmgo/pla"
)

// cursor walks one level's record array during a merge scan.
type cursor[K pla.Key, V any] struct {
	records []Record[K, V]
	pos     int
	lvl     int // cascade position; smaller is newer
}

// cursorHeap orders cursors by current key, breaking ties newest-first so
// the heap top always carries the winning record for its key.
type cursorHeap[K pla.Key, V any] []*cursor[K, V]

func (h cursorHeap[K, V]) Len() int { return len(h) }

func (h cursorHeap[K, V]) Less(i, j int) bool {
	ki, kj := h[i].records[h[i].pos].Key, h[j].records[h[j].pos].Key
	if ki != kj {
		return ki < kj
	}
	return h[i].lvl < h[j].lvl
}

func (h cursorHeap[K, V]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap[K, V]) Push(x any) { *h = append(*h, x.(*cursor[K, V])) }

func (h *cursorHeap[K, V]) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// rangeFrom yields live entries in ascending key order, each key exactly
// once with its newest record; tombstones and shadowed records are filtered
// in the same pass.
func (ix *Index[K, V]) rangeFrom(from K, bounded bool) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		h := make(cursorHeap[K, V], 0, len(ix.levels))
		for lvl, l := range ix.levels {
			if l.empty() {
				continue
			}
			pos := 0
			if bounded {
				pos = l.lowerBound(from)
			}
			if pos < len(l.records) {
				h = append(h, &cursor[K, V]{records: l.records, pos: pos, lvl: lvl})
			}
		}
		heap.Init(&h)

		for h.Len() > 0 {
			winner := h[0].records[h[0].pos]
			// Advance every cursor sitting on the winning key, dropping the
			// older shadowed records.
			for h.Len() > 0 && h[0].records[h[0].pos].Key == winner.Key {
				c := h[0]
				c.pos++
				if c.pos >= len(c.records) {
					heap.Pop(&h)
				} else {
					heap.Fix(&h, 0)
				}
			}
			if winner.Tombstone {
				continue
			}
			if !yield(winner.Key, winner.Value) {
				return
			}
		}
	}
}
