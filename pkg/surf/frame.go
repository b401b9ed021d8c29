package surf

import (
	"github.com/chazu/spar/pkg/xform"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// step is the parameter step used for numeric tangents.
const step = 1e-4

// arcSamples is the resolution of the u arc-length table.
const arcSamples = 64

// Tangents returns dP/du and dP/dw at (u, w) by finite differences that stay
// inside [0,1].
func Tangents(s Surface, u, w float64) (du, dw v3.Vec) {
	du = diff(func(t float64) v3.Vec { return s.Point(t, w) }, u)
	dw = diff(func(t float64) v3.Vec { return s.Point(u, t) }, w)
	return du, dw
}

func diff(f func(float64) v3.Vec, t float64) v3.Vec {
	a, b := t-step, t+step
	if a < 0 {
		a = 0
	}
	if b > 1 {
		b = 1
	}
	return f(b).Sub(f(a)).MulScalar(1 / (b - a))
}

// Normal returns the unit parametric normal, inverted for flipped surfaces.
// A degenerate point yields the zero vector.
func Normal(s Surface, u, w float64) v3.Vec {
	du, dw := Tangents(s, u, w)
	n := du.Cross(dw)
	if n.Length() < 1e-14 {
		return v3.Vec{}
	}
	n = n.Normalize()
	if s.Flipped() {
		n = n.Neg()
	}
	return n
}

// FrameUW returns the frame at (u, w): origin on the surface, x along u and
// y in the tangent plane toward w.
func FrameUW(s Surface, u, w float64) sdf.M44 {
	du, dw := Tangents(s, u, w)
	return xform.FromFrame(s.Point(u, w), du, dw)
}

// PointRST evaluates the volume coordinate (r, s, t): the point at fraction t
// between P(r, s/2) and P(r, 1-s/2).
func PointRST(srf Surface, r, s, t float64) v3.Vec {
	a := srf.Point(r, 0.5*clamp01(s))
	b := srf.Point(r, 1-0.5*clamp01(s))
	return a.MulScalar(1 - clamp01(t)).Add(b.MulScalar(clamp01(t)))
}

// FrameRST returns the frame at (r, s, t) with x along r and y along s.
func FrameRST(srf Surface, r, s, t float64) sdf.M44 {
	dr := diff(func(x float64) v3.Vec { return PointRST(srf, x, s, t) }, r)
	ds := diff(func(x float64) v3.Vec { return PointRST(srf, r, x, t) }, s)
	return xform.FromFrame(PointRST(srf, r, s, t), dr, ds)
}

// FrameLMN returns the frame at (l, m, n), where l is the arc-length
// fraction along the surface's centroid line.
func FrameLMN(srf Surface, l, m, n float64) sdf.M44 {
	return FrameRST(srf, LtoR(srf, l), m, n)
}

// UWtoRST converts surface coordinates to the volume coordinates of the
// same point.
func UWtoRST(u, w float64) (r, s, t float64) {
	if w <= 0.5 {
		return u, 2 * w, 0
	}
	return u, 2 * (1 - w), 1
}

// RSTtoUW projects volume coordinates back onto the nearer skin.
func RSTtoUW(r, s, t float64) (u, w float64) {
	if t < 0.5 {
		return r, 0.5 * s
	}
	return r, 1 - 0.5*s
}

// centroid averages four points around the w direction at u.
func centroid(srf Surface, u float64) v3.Vec {
	var c v3.Vec
	for _, w := range []float64{0, 0.25, 0.5, 0.75} {
		c = c.Add(srf.Point(u, w))
	}
	return c.MulScalar(0.25)
}

func arcTable(srf Surface) []float64 {
	tab := make([]float64, arcSamples+1)
	prev := centroid(srf, 0)
	for i := 1; i <= arcSamples; i++ {
		p := centroid(srf, float64(i)/arcSamples)
		tab[i] = tab[i-1] + p.Sub(prev).Length()
		prev = p
	}
	return tab
}

// RtoL converts a u fraction to an arc-length fraction.
func RtoL(srf Surface, r float64) float64 {
	tab := arcTable(srf)
	total := tab[arcSamples]
	if total == 0 {
		return clamp01(r)
	}
	f := clamp01(r) * arcSamples
	i := min(int(f), arcSamples-1)
	a := tab[i] + (tab[i+1]-tab[i])*(f-float64(i))
	return a / total
}

// LtoR converts an arc-length fraction to a u fraction.
func LtoR(srf Surface, l float64) float64 {
	tab := arcTable(srf)
	total := tab[arcSamples]
	if total == 0 {
		return clamp01(l)
	}
	target := clamp01(l) * total
	for i := 1; i <= arcSamples; i++ {
		if tab[i] >= target {
			seg := tab[i] - tab[i-1]
			frac := 0.0
			if seg > 0 {
				frac = (target - tab[i-1]) / seg
			}
			return (float64(i-1) + frac) / arcSamples
		}
	}
	return 1
}
