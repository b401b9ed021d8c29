package kinds

import (
	"math"

	"github.com/chazu/spar/pkg/geom"
	"github.com/chazu/spar/pkg/parm"
	"github.com/chazu/spar/pkg/surf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// GroundData is the state of a Ground node.
type GroundData struct {
	Margin parm.Parm
	Gap    parm.Parm
}

// minGroundSize keeps the plane visible for an empty model.
const minGroundSize = 1.0

// Ground is a horizontal plane under the rest of the model, sized from the
// model's scale-independent bounds. It is rebuilt whenever those bounds
// change.
func Ground() *geom.Kind {
	return &geom.Kind{
		Name:           "Ground",
		ID:             TypeGround,
		Fixed:          true,
		ScaleSensitive: true,
		Init: func(g *geom.Geom) any {
			d := &GroundData{}
			d.Margin.Init("Margin", geom.GroupDesign, g, 0.25, 0, 10)
			d.Gap.Init("Gap", geom.GroupDesign, g, 0, 0, 1e6)
			return d
		},
		Regenerate: regenerateGround,
	}
}

func regenerateGround(g *geom.Geom) []surf.Surface {
	d := g.Data.(*GroundData)
	box := g.Model().ScaleBounds()
	size := box.Max.Sub(box.Min)
	pad := d.Margin.Get() * math.Max(math.Max(size.X, size.Y), minGroundSize)
	x0, x1 := box.Min.X-pad, box.Max.X+pad
	y0, y1 := box.Min.Y-pad, box.Max.Y+pad
	if x1-x0 < minGroundSize {
		x0, x1 = box.Min.X-minGroundSize/2, box.Max.X+minGroundSize/2
	}
	if y1-y0 < minGroundSize {
		y0, y1 = box.Min.Y-minGroundSize/2, box.Max.Y+minGroundSize/2
	}
	z := box.Min.Z - d.Gap.Get()
	plane := surf.Grid(2, 2, func(u, w float64) v3.Vec {
		return v3.Vec{X: x0 + u*(x1-x0), Y: y0 + w*(y1-y0), Z: z}
	})
	return []surf.Surface{plane}
}
