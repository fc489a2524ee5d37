package types

import "math"

// Cylinder is an oriented bounding cylinder. Axis is a unit vector; a zero
// axis describes a ball of the given radius around Center (a point if the
// radius is also zero) and must be paired with a zero HalfHeight.
type Cylinder struct {
	Center     Vec3
	Axis       Vec3
	HalfHeight float32
	Radius     float32
}

// A cap disc of a cylinder. A zero normal turns the disc into a ball.
type disc struct {
	center Vec3
	normal Vec3
	radius float32
}

// Create a cylinder of radius r around the segment p0-p1.
func CylinderFromSegment(p0, p1 Vec3, r float32) Cylinder {
	d := p1.Sub(p0)
	l := d.Len()
	if l == 0 {
		return Cylinder{Center: p0, Radius: r}
	}
	return Cylinder{
		Center:     p0.Add(p1).Mul(0.5),
		Axis:       d.Mul(1.0 / l),
		HalfHeight: l * 0.5,
		Radius:     r,
	}
}

// Create a cylinder enclosing a set of points. The cylinder axis runs along
// the two points that lie furthest apart.
func CylinderFromPoints(points ...Vec3) Cylinder {
	if len(points) == 0 {
		return Cylinder{}
	}

	p0, p1 := points[0], points[0]
	var best float32
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			d := points[j].Sub(points[i])
			if dist := d.Dot(d); dist > best {
				best = dist
				p0, p1 = points[i], points[j]
			}
		}
	}
	if best == 0 {
		return Cylinder{Center: points[0]}
	}

	discs := make([]disc, len(points))
	for i, p := range points {
		discs[i] = disc{center: p}
	}
	return fitCylinder(p1.Sub(p0).Normalize(), discs)
}

// Endpoints returns the centers of the two cylinder caps.
func (c Cylinder) Endpoints() (Vec3, Vec3) {
	off := c.Axis.Mul(c.HalfHeight)
	return c.Center.Sub(off), c.Center.Add(off)
}

// Union returns a cylinder enclosing both c and other. The result axis is
// chosen among the two input axes and the direction joining the two
// centers, keeping the candidate with the smallest half area; ties keep the
// earlier candidate. A cylinder united with itself is returned unchanged.
func (c Cylinder) Union(other Cylinder) Cylinder {
	if c == other {
		return c
	}

	caps := [4]disc{}
	caps[0], caps[1] = c.caps()
	caps[2], caps[3] = other.caps()

	candidates := [3]Vec3{c.Axis, other.Axis, other.Center.Sub(c.Center).Normalize()}

	var best Cylinder
	var bestArea float32
	found := false
	for _, u := range candidates {
		if u == (Vec3{}) {
			continue
		}
		cyl := fitCylinder(u, caps[:])
		if area := cyl.HalfArea(); !found || area < bestArea {
			best, bestArea, found = cyl, area, true
		}
	}

	// Two balls sharing a center.
	if !found {
		return Cylinder{Center: c.Center, Radius: max(c.Radius, other.Radius)}
	}
	return best
}

// HalfArea returns half of the closed cylinder surface area.
func (c Cylinder) HalfArea() float32 {
	return math.Pi*c.Radius*c.Radius + 2*math.Pi*c.Radius*c.HalfHeight
}

// AABB returns the tightest axis-aligned box enclosing the cylinder.
func (c Cylinder) AABB() Box {
	var ext Vec3
	for i := 0; i < 3; i++ {
		a := c.Axis[i]
		ext[i] = c.HalfHeight*abs32(a) + c.Radius*sqrt32(1-a*a)
	}
	return BoxFromCenter(c.Center, ext)
}

// Returns true if all cylinder parameters are finite.
func (c Cylinder) IsFinite() bool {
	return c.Center.IsFinite() && c.Axis.IsFinite() &&
		!math.IsNaN(float64(c.HalfHeight)) && !math.IsInf(float64(c.HalfHeight), 0) &&
		!math.IsNaN(float64(c.Radius)) && !math.IsInf(float64(c.Radius), 0)
}

func (c Cylinder) caps() (disc, disc) {
	p0, p1 := c.Endpoints()
	return disc{center: p0, normal: c.Axis, radius: c.Radius},
		disc{center: p1, normal: c.Axis, radius: c.Radius}
}

// Fit a cylinder with axis u around a set of discs. Along the axis the fit is
// exact; the radius is bounded by the distance of each disc center from the
// axis plus the disc radius.
func fitCylinder(u Vec3, discs []disc) Cylinder {
	e1, e2 := orthoBasis(u)

	lo, hi := float32(math.MaxFloat32), float32(-math.MaxFloat32)
	minX, maxX := float32(math.MaxFloat32), float32(-math.MaxFloat32)
	minY, maxY := float32(math.MaxFloat32), float32(-math.MaxFloat32)
	for _, d := range discs {
		cos := d.normal.Dot(u)
		t := d.center.Dot(u)
		s := d.radius * sqrt32(1-cos*cos)
		lo = min(lo, t-s)
		hi = max(hi, t+s)

		x, y := d.center.Dot(e1), d.center.Dot(e2)
		minX = min(minX, x-d.radius)
		maxX = max(maxX, x+d.radius)
		minY = min(minY, y-d.radius)
		maxY = max(maxY, y+d.radius)
	}

	cx, cy := (minX+maxX)*0.5, (minY+maxY)*0.5
	var r float32
	for _, d := range discs {
		dx := d.center.Dot(e1) - cx
		dy := d.center.Dot(e2) - cy
		r = max(r, sqrt32(dx*dx+dy*dy)+d.radius)
	}

	return Cylinder{
		Center:     e1.Mul(cx).Add(e2.Mul(cy)).Add(u.Mul((lo + hi) * 0.5)),
		Axis:       u,
		HalfHeight: (hi - lo) * 0.5,
		Radius:     r,
	}
}

// Build an orthonormal basis for the plane perpendicular to u.
func orthoBasis(u Vec3) (Vec3, Vec3) {
	a := u.Abs()
	var ref Vec3
	switch {
	case a[0] <= a[1] && a[0] <= a[2]:
		ref = Vec3{1, 0, 0}
	case a[1] <= a[2]:
		ref = Vec3{0, 1, 0}
	default:
		ref = Vec3{0, 0, 1}
	}
	e1 := u.Cross(ref).Normalize()
	return e1, u.Cross(e1)
}

func sqrt32(v float32) float32 {
	if v <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(v)))
}
