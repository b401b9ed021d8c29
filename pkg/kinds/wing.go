package kinds

import (
	"math"

	"github.com/chazu/spar/pkg/geom"
	"github.com/chazu/spar/pkg/kernel"
	"github.com/chazu/spar/pkg/parm"
	"github.com/chazu/spar/pkg/surf"
	"github.com/chazu/spar/pkg/xform"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// WingData is the state of a Wing node: a single straight-tapered panel
// from the root chord at y=0 out to the tip at y=Span.
type WingData struct {
	Span       parm.Parm
	RootChord  parm.Parm
	TipChord   parm.Parm
	Sweep      parm.Parm
	Dihedral   parm.Parm
	ThickChord parm.Parm
}

// Chord returns the chord at span fraction u.
func (d *WingData) Chord(u float64) float64 {
	return d.RootChord.Get() + (d.TipChord.Get()-d.RootChord.Get())*u
}

// Area returns the planform area of the panel.
func (d *WingData) Area() float64 {
	return 0.5 * (d.RootChord.Get() + d.TipChord.Get()) * d.Span.Get()
}

// Wing is a tapered, swept panel with a symmetric four-digit section. Main
// surface 0 is the upper skin, 1 the lower skin. Both run root to tip in u;
// the upper skin runs trailing edge to leading edge in w and the lower one
// back again, so both parametric normals point outward.
func Wing() *geom.Kind {
	return &geom.Kind{
		Name:       "Wing",
		ID:         TypeWing,
		Adoptable:  true,
		Fixed:      true,
		Init:       initWing,
		Regenerate: regenerateWing,
		Scale: func(g *geom.Geom, f float64) {
			d := wingOf(g)
			d.Span.Set(d.Span.Get() * f)
			d.RootChord.Set(d.RootChord.Get() * f)
			d.TipChord.Set(d.TipChord.Get() * f)
		},
		Solid: func(g *geom.Geom, k kernel.Kernel) kernel.Solid {
			d := wingOf(g)
			span := d.Span.Get()
			mean := 0.5 * (d.RootChord.Get() + d.TipChord.Get())
			lead := d.leadingEdge(0.5)
			slab := k.Box(mean, span, math.Max(d.ThickChord.Get()*mean, 1e-3))
			return k.Translate(slab, lead.X+mean/2, span/2, lead.Z)
		},
	}
}

func wingOf(g *geom.Geom) *WingData { return g.Data.(*WingData) }

func initWing(g *geom.Geom) any {
	d := &WingData{}
	d.Span.Init("Span", geom.GroupDesign, g, 6, 1e-3, 1e6)
	d.RootChord.Init("Root_Chord", geom.GroupDesign, g, 3, 1e-3, 1e6)
	d.TipChord.Init("Tip_Chord", geom.GroupDesign, g, 1, 1e-3, 1e6)
	d.Sweep.Init("Sweep", geom.GroupDesign, g, 20, -85, 85)
	d.Dihedral.Init("Dihedral", geom.GroupDesign, g, 0, -90, 90)
	d.ThickChord.Init("ThickChord", geom.GroupDesign, g, 0.1, 0.001, 0.5)
	return d
}

// leadingEdge returns the leading-edge point at span fraction u.
func (d *WingData) leadingEdge(u float64) v3.Vec {
	y := u * d.Span.Get()
	dih := xform.Rad(d.Dihedral.Get())
	return v3.Vec{
		X: y * math.Tan(xform.Rad(d.Sweep.Get())),
		Y: y * math.Cos(dih),
		Z: y * math.Sin(dih),
	}
}

// halfThickness is the NACA four-digit thickness distribution with a
// closed trailing edge, as a fraction of chord.
func halfThickness(tc, x float64) float64 {
	x = math.Max(0, math.Min(1, x))
	return 5 * tc * (0.2969*math.Sqrt(x) - 0.1260*x - 0.3516*x*x + 0.2843*x*x*x - 0.1036*x*x*x*x)
}

func regenerateWing(g *geom.Geom) []surf.Surface {
	d := wingOf(g)
	tc := d.ThickChord.Get()
	dih := xform.Rad(d.Dihedral.Get())
	skin := func(upper bool) surf.Surface {
		return surf.Grid(latticeW, latticeU, func(u, w float64) v3.Vec {
			x := w
			sign := -1.0
			if upper {
				x, sign = 1-w, 1
			}
			c := d.Chord(u)
			le := d.leadingEdge(u)
			h := sign * halfThickness(tc, x) * c
			return v3.Vec{
				X: le.X + x*c,
				Y: le.Y - h*math.Sin(dih),
				Z: le.Z + h*math.Cos(dih),
			}
		})
	}
	return []surf.Surface{skin(true), skin(false)}
}
