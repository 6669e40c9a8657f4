package static

import "unsafe"

// Stats describes the shape of a built index.
type Stats struct {
	Keys             int   // number of indexed keys
	Height           int   // number of levels, data level included
	Segments         int   // total segment count across all levels
	SegmentsPerLevel []int // segment count per level, data level first
	SizeBytes        int   // in-memory size of the segment arrays
}

// Stats returns statistics about the index shape.
func (ix *Index[K]) Stats() Stats {
	s := Stats{
		Keys:             ix.n,
		Height:           len(ix.levels),
		SegmentsPerLevel: make([]int, len(ix.levels)),
	}
	var segSize int
	if len(ix.levels) > 0 && len(ix.levels[0]) > 0 {
		segSize = int(unsafe.Sizeof(ix.levels[0][0]))
	}
	for i, level := range ix.levels {
		s.SegmentsPerLevel[i] = len(level)
		s.Segments += len(level)
		s.SizeBytes += len(level) * segSize
	}
	return s
}
