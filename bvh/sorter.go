package bvh

import (
	"cmp"
	"slices"

	"github.com/achilleasa/ploc/parallel"
	"github.com/achilleasa/ploc/types"
)

// PrimitiveSorter orders primitives along a space filling curve. Sort
// returns a permutation of [0, len(centers)): the i-th entry is the index of
// the primitive that becomes the i-th leaf.
type PrimitiveSorter interface {
	Sort(global types.Box, centers []types.Vec3) []uint32
}

// Number of bits used to quantize each axis.
const mortonBits = 21

// MortonSorter orders primitive centers by their 63-bit Morton code inside
// the global box. Primitives that share a code keep their input order.
type MortonSorter struct {
	// Max number of goroutines used for computing codes. If 0, GOMAXPROCS
	// is used.
	Workers int
}

func (s *MortonSorter) Sort(global types.Box, centers []types.Vec3) []uint32 {
	pool := parallel.NewPool(s.Workers)
	codes := make([]uint64, len(centers))
	order := make([]uint32, len(centers))
	pool.ForEach(pool.Workers(), 0, len(centers), func(i int) {
		codes[i] = MortonCode(global, centers[i])
		order[i] = uint32(i)
	})

	slices.SortStableFunc(order, func(a, b uint32) int {
		return cmp.Compare(codes[a], codes[b])
	})
	return order
}

// MortonCode interleaves the quantized coordinates of p relative to the
// global box. Coordinates outside the box are clamped to its faces.
func MortonCode(global types.Box, p types.Vec3) uint64 {
	const cells = float32(1 << mortonBits)
	extent := global.Diagonal()

	var code uint64
	for axis := 0; axis < 3; axis++ {
		var t float32
		if extent[axis] > 0 {
			t = (p[axis] - global.Min[axis]) / extent[axis]
		}
		q := t * cells
		var cell uint64
		switch {
		case !(q > 0):
			cell = 0
		case q >= cells-1:
			cell = 1<<mortonBits - 1
		default:
			cell = uint64(q)
		}
		code |= expandBits(cell) << axis
	}
	return code
}

// Insert two zero bits after each of the lower 21 bits of v.
func expandBits(v uint64) uint64 {
	v &= 0x1fffff
	v = (v | v<<32) & 0x1f00000000ffff
	v = (v | v<<16) & 0x1f0000ff0000ff
	v = (v | v<<8) & 0x100f00f00f00f00f
	v = (v | v<<4) & 0x10c30c30c30c30c3
	v = (v | v<<2) & 0x1249249249249249
	return v
}
