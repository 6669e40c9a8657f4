// Package pla implements streaming optimal piecewise linear approximation
// of a monotone point set.
//
// The segmenter consumes (key, rank) pairs with strictly increasing keys and
// partitions them into the minimum number of linear segments such that every
// pair's predicted rank is within epsilon of its true rank. Feasibility is
// maintained incrementally with a pair of convex hulls in slope-intercept
// space, so each point is processed in amortized constant time and the whole
// segmentation is a single pass.
package pla
