// Package xform holds the placement math shared by geometry nodes: 4x4
// affine matrices (sdf.M44), Euler decomposition in the X-then-Y-then-Z
// convention used by the placement parms, frames and reflections.
//
// All angles crossing this package boundary are in degrees.
package xform

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Plane names a mirror plane.
type Plane int

const (
	PlaneXY Plane = iota
	PlaneXZ
	PlaneYZ
)

// Axis names a rotation axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Identity returns the identity matrix.
func Identity() sdf.M44 {
	return sdf.Identity3d()
}

// Translate returns a translation by v.
func Translate(v v3.Vec) sdf.M44 {
	return sdf.Translate3d(v)
}

// Rotate returns Rx(deg.X) * Ry(deg.Y) * Rz(deg.Z).
func Rotate(deg v3.Vec) sdf.M44 {
	return sdf.RotateX(Rad(deg.X)).Mul(sdf.RotateY(Rad(deg.Y))).Mul(sdf.RotateZ(Rad(deg.Z)))
}

// RotateAbout returns a rotation of deg degrees about axis.
func RotateAbout(axis Axis, deg float64) sdf.M44 {
	switch axis {
	case AxisX:
		return sdf.RotateX(Rad(deg))
	case AxisY:
		return sdf.RotateY(Rad(deg))
	default:
		return sdf.RotateZ(Rad(deg))
	}
}

// Mirror returns the reflection across plane through the origin.
func Mirror(plane Plane) sdf.M44 {
	switch plane {
	case PlaneXY:
		return sdf.Scale3d(v3.Vec{X: 1, Y: 1, Z: -1})
	case PlaneXZ:
		return sdf.Scale3d(v3.Vec{X: 1, Y: -1, Z: 1})
	default:
		return sdf.Scale3d(v3.Vec{X: -1, Y: 1, Z: 1})
	}
}

// Uniform returns a uniform scale.
func Uniform(s float64) sdf.M44 {
	return sdf.Scale3d(v3.Vec{X: s, Y: s, Z: s})
}

// Compose returns ms[0] * ms[1] * ... ; the last matrix applies first.
func Compose(ms ...sdf.M44) sdf.M44 {
	out := Identity()
	for _, m := range ms {
		out = out.Mul(m)
	}
	return out
}

// Inverse returns the inverse of m.
func Inverse(m sdf.M44) sdf.M44 {
	return m.Inverse()
}

// Rad converts degrees to radians.
func Rad(deg float64) float64 { return deg * math.Pi / 180 }

// Deg converts radians to degrees.
func Deg(rad float64) float64 { return rad * 180 / math.Pi }

// Origin returns the image of the origin under m.
func Origin(m sdf.M44) v3.Vec {
	return m.MulPosition(v3.Vec{})
}

// Axes returns the columns of m's linear part.
func Axes(m sdf.M44) (x, y, z v3.Vec) {
	o := Origin(m)
	x = m.MulPosition(v3.Vec{X: 1}).Sub(o)
	y = m.MulPosition(v3.Vec{Y: 1}).Sub(o)
	z = m.MulPosition(v3.Vec{Z: 1}).Sub(o)
	return x, y, z
}

// Apply transforms a point.
func Apply(m sdf.M44, p v3.Vec) v3.Vec {
	return m.MulPosition(p)
}

// ApplyDir transforms a direction (ignores translation).
func ApplyDir(m sdf.M44, d v3.Vec) v3.Vec {
	return m.MulPosition(d).Sub(Origin(m))
}

// Angles decomposes the rotation of m into degrees such that
// Rotate(Angles(m)) reproduces it. m's linear part must be a proper
// rotation.
func Angles(m sdf.M44) v3.Vec {
	x, y, z := Axes(m)
	return anglesFromAxes(x.Normalize(), y.Normalize(), z.Normalize())
}

// R = Rx(a) Ry(b) Rz(c); R[i][j] is component i of column j.
func anglesFromAxes(x, y, z v3.Vec) v3.Vec {
	r02 := clampUnit(z.X)
	b := math.Asin(r02)
	var a, c float64
	if math.Abs(math.Cos(b)) > 1e-9 {
		a = math.Atan2(-z.Y, z.Z)
		c = math.Atan2(-y.X, x.X)
	} else {
		a = math.Atan2(y.Z, y.Y)
	}
	return v3.Vec{X: Deg(a), Y: Deg(b), Z: Deg(c)}
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// TranslationOnly keeps only m's translation.
func TranslationOnly(m sdf.M44) sdf.M44 {
	return Translate(Origin(m))
}

// RotationOnly keeps only m's rotation.
func RotationOnly(m sdf.M44) sdf.M44 {
	return Rotate(Angles(m))
}

// FromFrame builds the matrix whose origin is o and whose x axis points
// along x, with y in the plane of x and y. Degenerate axes yield a pure
// translation.
func FromFrame(o, x, y v3.Vec) sdf.M44 {
	if x.Length() < 1e-12 || y.Length() < 1e-12 {
		return Translate(o)
	}
	ex := x.Normalize()
	ez := ex.Cross(y)
	if ez.Length() < 1e-12 {
		return Translate(o)
	}
	ez = ez.Normalize()
	ey := ez.Cross(ex)
	return Translate(o).Mul(Rotate(anglesFromAxes(ex, ey, ez)))
}

// Determinant returns the determinant of m's linear part; negative for
// matrices that include a reflection.
func Determinant(m sdf.M44) float64 {
	x, y, z := Axes(m)
	return x.Dot(y.Cross(z))
}

// Equal reports whether a and b map a probe set of points within tol.
func Equal(a, b sdf.M44, tol float64) bool {
	probes := []v3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}}
	for _, p := range probes {
		d := a.MulPosition(p).Sub(b.MulPosition(p))
		if math.Abs(d.X) > tol || math.Abs(d.Y) > tol || math.Abs(d.Z) > tol {
			return false
		}
	}
	return true
}
