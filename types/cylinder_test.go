package types

import (
	"math"
	"testing"
)

const testEpsilon = 1e-4

func approxEqual(a, b float32) bool {
	return math.Abs(float64(a-b)) <= testEpsilon*math.Max(1, math.Abs(float64(b)))
}

func TestCylinderFromSegment(t *testing.T) {
	c := CylinderFromSegment(Vec3{0, 0, 0}, Vec3{0, 4, 0}, 0.5)
	if exp := (Vec3{0, 2, 0}); c.Center != exp {
		t.Fatalf("expected center %v; got %v", exp, c.Center)
	}
	if exp := (Vec3{0, 1, 0}); c.Axis != exp {
		t.Fatalf("expected axis %v; got %v", exp, c.Axis)
	}
	if c.HalfHeight != 2 || c.Radius != 0.5 {
		t.Fatalf("expected half height 2 and radius 0.5; got %f and %f", c.HalfHeight, c.Radius)
	}

	p := CylinderFromSegment(Vec3{1, 1, 1}, Vec3{1, 1, 1}, 0.25)
	if p.Axis != (Vec3{}) || p.HalfHeight != 0 || p.Radius != 0.25 {
		t.Fatalf("expected a degenerate segment to produce a ball; got %+v", p)
	}
}

func TestCylinderAABB(t *testing.T) {
	type spec struct {
		cyl Cylinder
		exp Box
	}

	specs := []spec{
		{
			CylinderFromSegment(Vec3{0, 0, 0}, Vec3{0, 4, 0}, 0.5),
			Box{Vec3{-0.5, 0, -0.5}, Vec3{0.5, 4, 0.5}},
		},
		{
			Cylinder{Center: Vec3{1, 2, 3}, Radius: 1},
			Box{Vec3{0, 1, 2}, Vec3{2, 3, 4}},
		},
		{
			CylinderFromSegment(Vec3{-1, 0, 0}, Vec3{1, 0, 0}, 0),
			Box{Vec3{-1, 0, 0}, Vec3{1, 0, 0}},
		},
	}

	for index, s := range specs {
		got := s.cyl.AABB()
		for i := 0; i < 3; i++ {
			if !approxEqual(got.Min[i], s.exp.Min[i]) || !approxEqual(got.Max[i], s.exp.Max[i]) {
				t.Fatalf("[spec %d] expected AABB %v; got %v", index, s.exp, got)
			}
		}
	}
}

func TestCylinderHalfArea(t *testing.T) {
	c := CylinderFromSegment(Vec3{0, 0, 0}, Vec3{0, 0, 2}, 1)
	exp := float32(math.Pi + 2*math.Pi)
	if got := c.HalfArea(); !approxEqual(got, exp) {
		t.Fatalf("expected half area %f; got %f", exp, got)
	}
	if got := (Cylinder{Center: Vec3{3, 3, 3}}).HalfArea(); got != 0 {
		t.Fatalf("expected a point to have zero half area; got %f", got)
	}
}

func TestCylinderUnionIdempotent(t *testing.T) {
	cyls := []Cylinder{
		CylinderFromSegment(Vec3{0, 0, 0}, Vec3{1, 2, 3}, 0.1),
		{Center: Vec3{4, 4, 4}, Radius: 2},
		{},
	}
	for index, c := range cyls {
		if got := c.Union(c); got != c {
			t.Fatalf("[cyl %d] expected self union to be %+v; got %+v", index, c, got)
		}
	}
}

func TestCylinderUnionEncloses(t *testing.T) {
	type spec struct {
		a, b Cylinder
	}

	specs := []spec{
		// Collinear strands
		{
			CylinderFromSegment(Vec3{0, 0, 0}, Vec3{1, 0, 0}, 0.1),
			CylinderFromSegment(Vec3{1, 0, 0}, Vec3{2, 0, 0}, 0.1),
		},
		// Parallel strands side by side
		{
			CylinderFromSegment(Vec3{0, 0, 0}, Vec3{0, 3, 0}, 0.2),
			CylinderFromSegment(Vec3{1, 0, 0}, Vec3{1, 3, 0}, 0.2),
		},
		// Crossing strands
		{
			CylinderFromSegment(Vec3{-1, 0, 0}, Vec3{1, 0, 0}, 0.05),
			CylinderFromSegment(Vec3{0, -1, 1}, Vec3{0, 1, 1}, 0.05),
		},
		// Ball and strand
		{
			Cylinder{Center: Vec3{5, 5, 5}, Radius: 0.5},
			CylinderFromSegment(Vec3{0, 0, 0}, Vec3{0, 0, 1}, 0.1),
		},
	}

	for index, s := range specs {
		u := s.a.Union(s.b)
		for _, c := range []Cylinder{s.a, s.b} {
			for _, p := range samplePoints(c) {
				if !contains(u, p) {
					t.Fatalf("[spec %d] expected union %+v to contain point %v of %+v", index, u, p, c)
				}
			}
		}
		if u.HalfArea() < s.a.HalfArea()-testEpsilon || u.HalfArea() < s.b.HalfArea()-testEpsilon {
			t.Fatalf("[spec %d] expected union area %f to cover input areas %f and %f", index, u.HalfArea(), s.a.HalfArea(), s.b.HalfArea())
		}
	}
}

func TestCylinderUnionCollinearKeepsAxis(t *testing.T) {
	a := CylinderFromSegment(Vec3{0, 0, 0}, Vec3{1, 0, 0}, 0.1)
	b := CylinderFromSegment(Vec3{2, 0, 0}, Vec3{3, 0, 0}, 0.1)
	u := a.Union(b)
	if !approxEqual(u.HalfHeight, 1.5) || !approxEqual(u.Radius, 0.1) {
		t.Fatalf("expected half height 1.5 and radius 0.1; got %f and %f", u.HalfHeight, u.Radius)
	}
	if !approxEqual(u.Center[0], 1.5) {
		t.Fatalf("expected center x to be 1.5; got %f", u.Center[0])
	}
}

func TestCylinderUnionConcentricBalls(t *testing.T) {
	a := Cylinder{Center: Vec3{1, 1, 1}, Radius: 1}
	b := Cylinder{Center: Vec3{1, 1, 1}, Radius: 2}
	if got := a.Union(b); got != b {
		t.Fatalf("expected union to be %+v; got %+v", b, got)
	}
}

func TestCylinderFromPoints(t *testing.T) {
	points := []Vec3{{0, 0, 0}, {4, 0, 0}, {2, 1, 0}}
	c := CylinderFromPoints(points...)
	for _, p := range points {
		if !contains(c, p) {
			t.Fatalf("expected cylinder %+v to contain %v", c, p)
		}
	}
	if !approxEqual(c.HalfHeight, 2) {
		t.Fatalf("expected half height 2; got %f", c.HalfHeight)
	}
	if got := CylinderFromPoints(); got != (Cylinder{}) {
		t.Fatalf("expected empty point list to produce a zero cylinder; got %+v", got)
	}
}

// Sample the cap rims and cap centers of a cylinder.
func samplePoints(c Cylinder) []Vec3 {
	p0, p1 := c.Endpoints()
	out := []Vec3{p0, p1}
	if c.Radius == 0 {
		return out
	}

	u := c.Axis
	if u == (Vec3{}) {
		u = Vec3{0, 0, 1}
		out = append(out, c.Center.Add(u.Mul(c.Radius)), c.Center.Sub(u.Mul(c.Radius)))
	}
	e1, e2 := orthoBasis(u)
	for k := 0; k < 16; k++ {
		angle := float64(k) * math.Pi / 8
		off := e1.Mul(float32(math.Cos(angle)) * c.Radius).Add(e2.Mul(float32(math.Sin(angle)) * c.Radius))
		out = append(out, p0.Add(off), p1.Add(off))
	}
	return out
}

func contains(c Cylinder, p Vec3) bool {
	d := p.Sub(c.Center)
	if c.Axis == (Vec3{}) {
		return d.Len() <= c.Radius+testEpsilon
	}
	t := d.Dot(c.Axis)
	if math.Abs(float64(t)) > float64(c.HalfHeight)+testEpsilon {
		return false
	}
	perp := d.Sub(c.Axis.Mul(t))
	return perp.Len() <= c.Radius+testEpsilon
}
