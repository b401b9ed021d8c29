package geom

import (
	"fmt"

	"github.com/chazu/spar/pkg/kernel"
	"github.com/chazu/spar/pkg/parm"
	"github.com/chazu/spar/pkg/surf"
	"github.com/chazu/spar/pkg/tessellate"
	"github.com/deadsy/sdfx/sdf"
)

// Primitive describes one replica for a renderer. Mesh and Lines are nil
// until a full update has tessellated the node.
type Primitive struct {
	GeomID    parm.ID
	Name      string
	Replica   int
	MainIndex int
	Flip      bool
	Transform sdf.M44
	Surface   surf.Surface
	Mesh      *kernel.Mesh
	Lines     []tessellate.Polyline
}

// RenderPrimitives returns one primitive per replica of id, or nil for an
// unknown id.
func (m *Model) RenderPrimitives(id parm.ID) []Primitive {
	g := m.nodes[id]
	if g == nil {
		return nil
	}
	out := make([]Primitive, 0, len(g.surfs))
	for i, s := range g.surfs {
		p := Primitive{
			GeomID:    id,
			Name:      g.Name(),
			Replica:   i,
			MainIndex: g.symm.MainIndex[i],
			Flip:      g.symm.Flip[i],
			Transform: g.symm.Transforms[i],
			Surface:   s,
		}
		if i < len(g.meshes) {
			p.Mesh = g.meshes[i]
		}
		if i < len(g.lines) {
			p.Lines = g.lines[i]
		}
		out = append(out, p)
	}
	return out
}

// Solids builds one kernel solid per replica of the kind's solid preview.
// Kinds without a Solid hook return nil.
func (m *Model) Solids(id parm.ID, k kernel.Kernel) ([]kernel.Solid, error) {
	g := m.nodes[id]
	if g == nil {
		return nil, fmt.Errorf("geom: solids of %s: %w", id, ErrNotFound)
	}
	if g.kind.Solid == nil {
		return nil, nil
	}
	base := g.kind.Solid(g, k)
	if base == nil {
		return nil, nil
	}
	reps := g.symm.Replicas(0)
	if len(reps) == 0 {
		return []kernel.Solid{k.Transform(base, g.modelMat)}, nil
	}
	out := make([]kernel.Solid, 0, len(reps))
	for _, r := range reps {
		out = append(out, k.Transform(base, g.symm.Transforms[r]))
	}
	return out, nil
}
