package kinds

import (
	"math"

	"github.com/chazu/spar/pkg/geom"
	"github.com/chazu/spar/pkg/kernel"
	"github.com/chazu/spar/pkg/parm"
	"github.com/chazu/spar/pkg/surf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// PodData is the state of a Pod node.
type PodData struct {
	Length    parm.Parm
	FineRatio parm.Parm
}

// Radius returns the maximum body radius.
func (p *PodData) Radius() float64 {
	return p.Length.Get() / p.FineRatio.Get() / 2
}

// Pod is an ellipsoidal body of revolution along +X. u runs nose to tail,
// w runs once around the body.
func Pod() *geom.Kind {
	return &geom.Kind{
		Name:       "Pod",
		ID:         TypePod,
		Adoptable:  true,
		Fixed:      true,
		Init:       initPod,
		Regenerate: regeneratePod,
		Scale: func(g *geom.Geom, f float64) {
			p := podOf(g)
			p.Length.Set(p.Length.Get() * f)
		},
		Center: func(g *geom.Geom) v3.Vec {
			return v3.Vec{X: g.Origin.Get() * podOf(g).Length.Get()}
		},
		Solid: func(g *geom.Geom, k kernel.Kernel) kernel.Solid {
			p := podOf(g)
			l := p.Length.Get()
			body := k.Rotate(k.Cylinder(l, p.Radius(), 32), 0, 90, 0)
			return k.Translate(body, l/2, 0, 0)
		},
	}
}

func podOf(g *geom.Geom) *PodData { return g.Data.(*PodData) }

func initPod(g *geom.Geom) any {
	p := &PodData{}
	p.Length.Init("Length", geom.GroupDesign, g, 10, 1e-3, 1e6)
	p.FineRatio.Init("FineRatio", geom.GroupDesign, g, 15, 1, 1000)
	return p
}

func regeneratePod(g *geom.Geom) []surf.Surface {
	p := podOf(g)
	l, rmax := p.Length.Get(), p.Radius()
	body := surf.Grid(latticeU, latticeW, func(u, w float64) v3.Vec {
		r := 2 * rmax * math.Sqrt(u*(1-u))
		a := 2 * math.Pi * w
		return v3.Vec{X: u * l, Y: r * math.Cos(a), Z: -r * math.Sin(a)}
	})
	return []surf.Surface{body}
}
