// Package tessellate turns surfaces into render-ready triangle meshes and
// feature lines. Meshes are produced once per main surface and then mapped
// onto each symmetry replica with Transform, which keeps triangle winding
// consistent with the normals under reflections.
package tessellate

import (
	"fmt"

	"github.com/chazu/spar/pkg/kernel"
	"github.com/chazu/spar/pkg/surf"
	"github.com/chazu/spar/pkg/xform"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// MinDivisions is the smallest grid accepted along either direction.
const MinDivisions = 2

// poleInset is how far a degenerate normal is re-sampled toward the interior.
const poleInset = 1e-3

// Surface samples s on an nu x nw vertex grid. Triangles wind
// counter-clockwise about the surface normal, which already accounts for
// s.Flipped().
func Surface(s surf.Surface, nu, nw int) (*kernel.Mesh, error) {
	if s == nil {
		return nil, fmt.Errorf("tessellate: nil surface")
	}
	if nu < MinDivisions || nw < MinDivisions {
		return nil, fmt.Errorf("tessellate: grid %dx%d below minimum %d", nu, nw, MinDivisions)
	}

	m := &kernel.Mesh{
		Vertices: make([]float32, 0, nu*nw*3),
		Normals:  make([]float32, 0, nu*nw*3),
		Indices:  make([]uint32, 0, (nu-1)*(nw-1)*6),
	}
	for i := 0; i < nu; i++ {
		u := float64(i) / float64(nu-1)
		for j := 0; j < nw; j++ {
			w := float64(j) / float64(nw-1)
			p := s.Point(u, w)
			n := normalAt(s, u, w)
			m.Vertices = append(m.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
		}
	}

	idx := func(i, j int) uint32 { return uint32(i*nw + j) }
	for i := 0; i < nu-1; i++ {
		for j := 0; j < nw-1; j++ {
			a, b, c, d := idx(i, j), idx(i+1, j), idx(i+1, j+1), idx(i, j+1)
			if s.Flipped() {
				m.Indices = append(m.Indices, a, c, b, a, d, c)
			} else {
				m.Indices = append(m.Indices, a, b, c, a, c, d)
			}
		}
	}
	return m, nil
}

// normalAt is surf.Normal with degenerate points (poles, collapsed edges)
// re-sampled slightly inside the parameter domain.
func normalAt(s surf.Surface, u, w float64) v3.Vec {
	n := surf.Normal(s, u, w)
	if n.Length() > 0 {
		return n
	}
	iu := min(max(u, poleInset), 1-poleInset)
	iw := min(max(w, poleInset), 1-poleInset)
	return surf.Normal(s, iu, iw)
}

// Transform maps mesh through m. When m contains a reflection the winding
// of every triangle is reversed so it stays counter-clockwise about the
// transformed normals.
func Transform(mesh *kernel.Mesh, m sdf.M44) *kernel.Mesh {
	if mesh == nil {
		return nil
	}
	out := &kernel.Mesh{
		Vertices: make([]float32, len(mesh.Vertices)),
		Normals:  make([]float32, len(mesh.Normals)),
		Indices:  make([]uint32, len(mesh.Indices)),
		Name:     mesh.Name,
	}
	for v := 0; v+2 < len(mesh.Vertices); v += 3 {
		p := m.MulPosition(v3.Vec{
			X: float64(mesh.Vertices[v]),
			Y: float64(mesh.Vertices[v+1]),
			Z: float64(mesh.Vertices[v+2]),
		})
		out.Vertices[v], out.Vertices[v+1], out.Vertices[v+2] = float32(p.X), float32(p.Y), float32(p.Z)
	}
	for v := 0; v+2 < len(mesh.Normals); v += 3 {
		n := xform.ApplyDir(m, v3.Vec{
			X: float64(mesh.Normals[v]),
			Y: float64(mesh.Normals[v+1]),
			Z: float64(mesh.Normals[v+2]),
		})
		if n.Length() > 0 {
			n = n.Normalize()
		}
		out.Normals[v], out.Normals[v+1], out.Normals[v+2] = float32(n.X), float32(n.Y), float32(n.Z)
	}
	reflect := xform.Determinant(m) < 0
	for t := 0; t+2 < len(mesh.Indices); t += 3 {
		a, b, c := mesh.Indices[t], mesh.Indices[t+1], mesh.Indices[t+2]
		if reflect {
			b, c = c, b
		}
		out.Indices[t], out.Indices[t+1], out.Indices[t+2] = a, b, c
	}
	return out
}

// Polyline is an ordered list of points.
type Polyline []v3.Vec

// FeatureLines extracts the parametric boundaries (u=0, u=1, w=0, w=1) and
// the w=0.5 iso line of s, each sampled with n+1 points.
func FeatureLines(s surf.Surface, n int) []Polyline {
	if s == nil {
		return nil
	}
	n = max(n, 1)
	wLine := func(u float64) Polyline {
		line := make(Polyline, n+1)
		for k := 0; k <= n; k++ {
			line[k] = s.Point(u, float64(k)/float64(n))
		}
		return line
	}
	uLine := func(w float64) Polyline {
		line := make(Polyline, n+1)
		for k := 0; k <= n; k++ {
			line[k] = s.Point(float64(k)/float64(n), w)
		}
		return line
	}
	return []Polyline{wLine(0), wLine(1), uLine(0), uLine(0.5), uLine(1)}
}

// TransformLines maps every polyline through m.
func TransformLines(lines []Polyline, m sdf.M44) []Polyline {
	out := make([]Polyline, len(lines))
	for i, l := range lines {
		nl := make(Polyline, len(l))
		for k, p := range l {
			nl[k] = m.MulPosition(p)
		}
		out[i] = nl
	}
	return out
}
