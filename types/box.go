package types

import "math"

// Box is an axis-aligned bounding box.
type Box struct {
	Min Vec3
	Max Vec3
}

// Create an empty box. Extending an empty box with any other volume or
// point yields that volume or point.
func EmptyBox() Box {
	return Box{
		Min: Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// Create the tightest box enclosing a set of points.
func BoxFromPoints(points ...Vec3) Box {
	b := EmptyBox()
	for _, p := range points {
		b = b.ExtendPoint(p)
	}
	return b
}

// Create a box centered at c with the given half extents.
func BoxFromCenter(c, halfExtents Vec3) Box {
	return Box{Min: c.Sub(halfExtents), Max: c.Add(halfExtents)}
}

// Union returns the smallest box enclosing both b and other.
func (b Box) Union(other Box) Box {
	return Box{
		Min: MinVec3(b.Min, other.Min),
		Max: MaxVec3(b.Max, other.Max),
	}
}

// Extend the box so that it includes p.
func (b Box) ExtendPoint(p Vec3) Box {
	return Box{
		Min: MinVec3(b.Min, p),
		Max: MaxVec3(b.Max, p),
	}
}

// Get the box side lengths.
func (b Box) Diagonal() Vec3 {
	return b.Max.Sub(b.Min)
}

// Get the box center.
func (b Box) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// HalfArea returns half of the box surface area. Empty boxes have zero area.
// NaN extents propagate to the result.
func (b Box) HalfArea() float32 {
	d := b.Diagonal()
	if d[0] < 0 || d[1] < 0 || d[2] < 0 {
		return 0
	}
	return d[0]*d[1] + d[1]*d[2] + d[2]*d[0]
}

// Returns true if the box does not enclose any point.
func (b Box) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Returns true if both box extents are finite.
func (b Box) IsFinite() bool {
	return b.Min.IsFinite() && b.Max.IsFinite()
}
