package bvh

import "errors"

var (
	ErrInvalidSearchRadius = errors.New("bvh: search radius must be at least 1")
	ErrLengthMismatch      = errors.New("bvh: primitive and center counts differ")
	ErrTooManyPrimitives   = errors.New("bvh: primitive count exceeds the max leaf primitive count")
	ErrInvalidGlobalBound  = errors.New("bvh: global bound is empty or not finite")
	ErrInvalidVolume       = errors.New("bvh: primitive volume is not finite")
	ErrInvalidPermutation  = errors.New("bvh: sorter returned an invalid primitive permutation")
	ErrNoNeighbor          = errors.New("bvh: no nearest neighbor found")
	ErrNaNCost             = errors.New("bvh: merge cost is NaN")
)
