package types

import (
	"math"
	"testing"
)

func TestVectorOps(t *testing.T) {
	a := XYZ(1, 2, 3)
	b := XYZ(4, -5, 6)

	if exp := (Vec3{5, -3, 9}); a.Add(b) != exp {
		t.Fatalf("expected a+b to be %v; got %v", exp, a.Add(b))
	}
	if exp := (Vec3{-3, 7, -3}); a.Sub(b) != exp {
		t.Fatalf("expected a-b to be %v; got %v", exp, a.Sub(b))
	}
	if exp := float32(12); a.Dot(b) != exp {
		t.Fatalf("expected a.b to be %f; got %f", exp, a.Dot(b))
	}
	if exp := (Vec3{27, 6, -13}); a.Cross(b) != exp {
		t.Fatalf("expected axb to be %v; got %v", exp, a.Cross(b))
	}
	if exp := (Vec3{1, -5, 3}); MinVec3(a, b) != exp {
		t.Fatalf("expected min to be %v; got %v", exp, MinVec3(a, b))
	}
	if exp := (Vec3{4, 2, 6}); MaxVec3(a, b) != exp {
		t.Fatalf("expected max to be %v; got %v", exp, MaxVec3(a, b))
	}
	if exp := (Vec3{4, 5, 6}); b.Abs() != exp {
		t.Fatalf("expected abs to be %v; got %v", exp, b.Abs())
	}
}

func TestVectorZeroSafety(t *testing.T) {
	var zero Vec3
	if l := zero.Len(); l != 0 {
		t.Fatalf("expected zero vector length to be 0; got %f", l)
	}
	if n := zero.Normalize(); n != zero {
		t.Fatalf("expected normalized zero vector to stay zero; got %v", n)
	}
	if n := XYZ(0, 0, 5).Normalize(); n != XYZ(0, 0, 1) {
		t.Fatalf("expected normalized vector to be (0, 0, 1); got %v", n)
	}
}

func TestVectorIsFinite(t *testing.T) {
	if !XYZ(1, 2, 3).IsFinite() {
		t.Fatal("expected vector to be finite")
	}
	if XYZ(float32(math.NaN()), 0, 0).IsFinite() {
		t.Fatal("expected NaN vector not to be finite")
	}
	if XYZ(0, float32(math.Inf(-1)), 0).IsFinite() {
		t.Fatal("expected infinite vector not to be finite")
	}
}
