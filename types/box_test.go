package types

import (
	"math"
	"testing"
)

func TestBoxUnion(t *testing.T) {
	type spec struct {
		a, b Box
		exp  Box
	}

	specs := []spec{
		{
			Box{Vec3{-0.5, -0.5, -0.5}, Vec3{0.5, 0.5, 0.5}},
			Box{Vec3{9.5, -0.5, -0.5}, Vec3{10.5, 0.5, 0.5}},
			Box{Vec3{-0.5, -0.5, -0.5}, Vec3{10.5, 0.5, 0.5}},
		},
		{
			EmptyBox(),
			Box{Vec3{1, 2, 3}, Vec3{4, 5, 6}},
			Box{Vec3{1, 2, 3}, Vec3{4, 5, 6}},
		},
		{
			Box{Vec3{-1, -1, -1}, Vec3{1, 1, 1}},
			Box{Vec3{0, 0, 0}, Vec3{0.5, 0.5, 0.5}},
			Box{Vec3{-1, -1, -1}, Vec3{1, 1, 1}},
		},
	}

	for index, s := range specs {
		if got := s.a.Union(s.b); got != s.exp {
			t.Fatalf("[spec %d] expected union to be %v; got %v", index, s.exp, got)
		}
		if got := s.b.Union(s.a); got != s.exp {
			t.Fatalf("[spec %d] expected reversed union to be %v; got %v", index, s.exp, got)
		}
	}
}

func TestBoxUnionIdempotent(t *testing.T) {
	boxes := []Box{
		{Vec3{-2, 0, -2}, Vec3{-1, 1, -1}},
		{Vec3{0, 0, 0}, Vec3{0, 0, 0}},
		BoxFromPoints(Vec3{1, 2, 3}, Vec3{-4, 5, 0.25}),
	}
	for index, b := range boxes {
		if got := b.Union(b); got != b {
			t.Fatalf("[box %d] expected self union to be %v; got %v", index, b, got)
		}
	}
}

func TestBoxHalfArea(t *testing.T) {
	type spec struct {
		box Box
		exp float32
	}

	specs := []spec{
		{Box{Vec3{-0.5, -0.5, -0.5}, Vec3{0.5, 0.5, 0.5}}, 3},
		{Box{Vec3{-0.5, -0.5, -0.5}, Vec3{10.5, 0.5, 0.5}}, 23},
		{Box{Vec3{1, 1, 1}, Vec3{1, 1, 1}}, 0},
		{Box{Vec3{0, 0, 0}, Vec3{2, 0, 0}}, 0},
		{EmptyBox(), 0},
	}

	for index, s := range specs {
		if got := s.box.HalfArea(); got != s.exp {
			t.Fatalf("[spec %d] expected half area %f; got %f", index, s.exp, got)
		}
	}

	nan := float32(math.NaN())
	if area := (Box{Vec3{nan, 0, 0}, Vec3{1, 1, 1}}).HalfArea(); !math.IsNaN(float64(area)) {
		t.Fatalf("expected NaN extents to produce a NaN area; got %f", area)
	}
}

func TestBoxHalfAreaMonotonic(t *testing.T) {
	a := Box{Vec3{0, 0, 0}, Vec3{1, 2, 3}}
	b := Box{Vec3{-1, 4, 2}, Vec3{0, 5, 7}}
	u := a.Union(b)
	if u.HalfArea() < a.HalfArea() || u.HalfArea() < b.HalfArea() {
		t.Fatalf("expected union area %f to be >= %f and %f", u.HalfArea(), a.HalfArea(), b.HalfArea())
	}
}

func TestBoxHelpers(t *testing.T) {
	b := BoxFromPoints(Vec3{0, 0, 0}, Vec3{4, 1, 2})
	if exp := (Vec3{2, 0.5, 1}); b.Center() != exp {
		t.Fatalf("expected center %v; got %v", exp, b.Center())
	}
	if b.IsEmpty() {
		t.Fatal("expected box not to be empty")
	}
	if !EmptyBox().IsEmpty() {
		t.Fatal("expected EmptyBox() to be empty")
	}
	if !b.IsFinite() {
		t.Fatal("expected box to be finite")
	}
	inf := float32(math.Inf(1))
	if (Box{Vec3{0, 0, 0}, Vec3{inf, 0, 0}}).IsFinite() {
		t.Fatal("expected box with infinite extent not to be finite")
	}
}

func TestBoxUnionPropagatesNaN(t *testing.T) {
	nan := float32(math.NaN())
	finite := Box{Vec3{0, 0, 0}, Vec3{1, 1, 1}}

	specs := []Box{
		{Vec3{0, nan, 0}, Vec3{1, 1, 1}},
		{Vec3{0, 0, 0}, Vec3{1, 1, nan}},
	}

	for index, withNaN := range specs {
		for _, u := range []Box{finite.Union(withNaN), withNaN.Union(finite)} {
			if u.IsFinite() {
				t.Fatalf("[spec %d] expected union %v to keep the NaN extent", index, u)
			}
			if area := u.HalfArea(); area == area {
				t.Fatalf("[spec %d] expected NaN half area; got %f", index, area)
			}
		}
	}
}
