package xform

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

const tol = 1e-9

func near(a, b v3.Vec) bool {
	return math.Abs(a.X-b.X) < tol && math.Abs(a.Y-b.Y) < tol && math.Abs(a.Z-b.Z) < tol
}

func TestAnglesRoundTrip(t *testing.T) {
	tests := []v3.Vec{
		{},
		{X: 30},
		{Y: -45},
		{Z: 170},
		{X: 10, Y: 20, Z: 30},
		{X: -120, Y: 60, Z: -15},
	}
	for _, want := range tests {
		got := Angles(Rotate(want))
		if !near(got, want) {
			t.Errorf("Angles(Rotate(%v)) = %v", want, got)
		}
	}
}

func TestAnglesGimbal(t *testing.T) {
	m := Rotate(v3.Vec{X: 25, Y: 90, Z: 0})
	if !Equal(Rotate(Angles(m)), m, tol) {
		t.Errorf("gimbal decomposition does not reproduce matrix: %v", Angles(m))
	}
}

func TestRotateOrder(t *testing.T) {
	// Z applies first: +X -> +Y under Rz(90), then Rx(90) sends +Y to +Z.
	m := Rotate(v3.Vec{X: 90, Z: 90})
	got := Apply(m, v3.Vec{X: 1})
	if !near(got, v3.Vec{Z: 1}) {
		t.Errorf("got %v, want +Z", got)
	}
}

func TestMirror(t *testing.T) {
	tests := []struct {
		plane Plane
		want  v3.Vec
	}{
		{PlaneXY, v3.Vec{X: 1, Y: 2, Z: -3}},
		{PlaneXZ, v3.Vec{X: 1, Y: -2, Z: 3}},
		{PlaneYZ, v3.Vec{X: -1, Y: 2, Z: 3}},
	}
	for _, tt := range tests {
		m := Mirror(tt.plane)
		if got := Apply(m, v3.Vec{X: 1, Y: 2, Z: 3}); !near(got, tt.want) {
			t.Errorf("plane %d: got %v, want %v", tt.plane, got, tt.want)
		}
		if d := Determinant(m); d > -0.5 {
			t.Errorf("plane %d: determinant %v, want negative", tt.plane, d)
		}
	}
	if d := Determinant(Rotate(v3.Vec{X: 10, Y: 20, Z: 30})); math.Abs(d-1) > tol {
		t.Errorf("rotation determinant %v, want 1", d)
	}
}

func TestComposeAssociative(t *testing.T) {
	a := Translate(v3.Vec{X: 1, Y: 2, Z: 3}).Mul(Rotate(v3.Vec{X: 10}))
	b := Translate(v3.Vec{Y: -4}).Mul(Rotate(v3.Vec{Z: 45}))
	c := Rotate(v3.Vec{Y: 30}).Mul(Translate(v3.Vec{Z: 7}))

	direct := Compose(a, b, c)
	grouped := a.Mul(b.Mul(c))
	if !Equal(direct, grouped, tol) {
		t.Error("composition is not associative within tolerance")
	}
}

func TestFromFrame(t *testing.T) {
	o := v3.Vec{X: 5, Y: 1, Z: -2}
	m := FromFrame(o, v3.Vec{Y: 2}, v3.Vec{X: -1, Y: 0.3})
	x, y, z := Axes(m)
	if !near(Origin(m), o) {
		t.Errorf("origin %v, want %v", Origin(m), o)
	}
	if !near(x, v3.Vec{Y: 1}) || !near(y, v3.Vec{X: -1}) || !near(z, v3.Vec{Z: 1}) {
		t.Errorf("axes %v %v %v", x, y, z)
	}

	if !Equal(FromFrame(o, v3.Vec{}, v3.Vec{Y: 1}), Translate(o), tol) {
		t.Error("degenerate frame should be a pure translation")
	}
}

func TestSplitTranslationRotation(t *testing.T) {
	m := Translate(v3.Vec{X: 3}).Mul(Rotate(v3.Vec{Z: 90}))
	if !Equal(TranslationOnly(m).Mul(RotationOnly(m)), m, tol) {
		t.Error("translation * rotation does not reproduce m")
	}
	if got := ApplyDir(m, v3.Vec{X: 1}); !near(got, v3.Vec{Y: 1}) {
		t.Errorf("ApplyDir got %v", got)
	}
}
