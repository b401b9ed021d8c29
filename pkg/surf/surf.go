// Package surf is the boundary to surface mathematics. Geometry kinds hand
// the core Surfaces; the core only evaluates points, replicates surfaces
// under affine transforms and asks for bounds.
//
// Lattice is the one concrete surface shipped here: a bilinear patch over a
// regular grid of points, sufficient for the built-in kinds and for tests.
package surf

import (
	"errors"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Surface is a parametric surface over (u, w) in [0,1]^2.
type Surface interface {
	// Point evaluates the surface. Parameters are clamped to [0,1].
	Point(u, w float64) v3.Vec
	// Flipped reports whether the parametric normal points inward.
	Flipped() bool
	// Replicate returns a copy transformed by m with the given flip flag.
	Replicate(m sdf.M44, flip bool) Surface
	// Bounds returns the axis-aligned bounding box.
	Bounds() sdf.Box3
}

// ErrLatticeSize is returned for grids smaller than 2x2 or with a point
// count that does not match.
var ErrLatticeSize = errors.New("surf: lattice needs at least 2x2 points")

// Lattice is a bilinear surface through nu x nw points. Point (i, j) sits at
// u = i/(nu-1), w = j/(nw-1).
type Lattice struct {
	nu, nw int
	pts    []v3.Vec
	flip   bool
}

var _ Surface = (*Lattice)(nil)

// NewLattice wraps pts, stored u-major (index i*nw + j).
func NewLattice(nu, nw int, pts []v3.Vec) (*Lattice, error) {
	if nu < 2 || nw < 2 {
		return nil, ErrLatticeSize
	}
	if len(pts) != nu*nw {
		return nil, fmt.Errorf("%w: have %d points for %dx%d", ErrLatticeSize, len(pts), nu, nw)
	}
	return &Lattice{nu: nu, nw: nw, pts: append([]v3.Vec(nil), pts...)}, nil
}

// Grid samples fn on an nu x nw grid. Sizes below 2 are raised to 2.
func Grid(nu, nw int, fn func(u, w float64) v3.Vec) *Lattice {
	nu = max(nu, 2)
	nw = max(nw, 2)
	pts := make([]v3.Vec, 0, nu*nw)
	for i := 0; i < nu; i++ {
		u := float64(i) / float64(nu-1)
		for j := 0; j < nw; j++ {
			pts = append(pts, fn(u, float64(j)/float64(nw-1)))
		}
	}
	return &Lattice{nu: nu, nw: nw, pts: pts}
}

// Size returns the grid dimensions.
func (l *Lattice) Size() (nu, nw int) { return l.nu, l.nw }

// At returns grid point (i, j).
func (l *Lattice) At(i, j int) v3.Vec { return l.pts[i*l.nw+j] }

// Flipped implements Surface.
func (l *Lattice) Flipped() bool { return l.flip }

// WithFlip returns a copy with the flip flag set to f.
func (l *Lattice) WithFlip(f bool) *Lattice {
	c := *l
	c.flip = f
	return &c
}

// Point implements Surface.
func (l *Lattice) Point(u, w float64) v3.Vec {
	fu := clamp01(u) * float64(l.nu-1)
	fw := clamp01(w) * float64(l.nw-1)
	i := min(int(math.Floor(fu)), l.nu-2)
	j := min(int(math.Floor(fw)), l.nw-2)
	su := fu - float64(i)
	sw := fw - float64(j)

	p00 := l.At(i, j)
	p10 := l.At(i+1, j)
	p01 := l.At(i, j+1)
	p11 := l.At(i+1, j+1)
	a := p00.MulScalar(1 - su).Add(p10.MulScalar(su))
	b := p01.MulScalar(1 - su).Add(p11.MulScalar(su))
	return a.MulScalar(1 - sw).Add(b.MulScalar(sw))
}

// Replicate implements Surface.
func (l *Lattice) Replicate(m sdf.M44, flip bool) Surface {
	pts := make([]v3.Vec, len(l.pts))
	for i, p := range l.pts {
		pts[i] = m.MulPosition(p)
	}
	return &Lattice{nu: l.nu, nw: l.nw, pts: pts, flip: flip}
}

// Bounds implements Surface.
func (l *Lattice) Bounds() sdf.Box3 {
	return boundsOf(l.pts)
}

// Equal reports whether l and o are bit-identical.
func (l *Lattice) Equal(o *Lattice) bool {
	if o == nil || l.nu != o.nu || l.nw != o.nw || l.flip != o.flip {
		return false
	}
	for i := range l.pts {
		if l.pts[i] != o.pts[i] {
			return false
		}
	}
	return true
}

func boundsOf(pts []v3.Vec) sdf.Box3 {
	if len(pts) == 0 {
		return sdf.Box3{}
	}
	lo, hi := pts[0], pts[0]
	for _, p := range pts[1:] {
		lo = v3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = v3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return sdf.Box3{Min: lo, Max: hi}
}

// Union returns the box enclosing a and b.
func Union(a, b sdf.Box3) sdf.Box3 {
	return boundsOf([]v3.Vec{a.Min, a.Max, b.Min, b.Max})
}

// BoundsAll returns the box enclosing every surface and whether there was
// at least one.
func BoundsAll(ss []Surface) (sdf.Box3, bool) {
	if len(ss) == 0 {
		return sdf.Box3{}, false
	}
	box := ss[0].Bounds()
	for _, s := range ss[1:] {
		box = Union(box, s.Bounds())
	}
	return box, true
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
