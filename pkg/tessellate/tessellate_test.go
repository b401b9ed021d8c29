package tessellate_test

import (
	"math"
	"testing"

	"github.com/chazu/spar/pkg/kernel"
	"github.com/chazu/spar/pkg/surf"
	"github.com/chazu/spar/pkg/tessellate"
	"github.com/chazu/spar/pkg/xform"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// makePlate returns the plane z=0 over [0,2]x[0,1] with normal +Z.
func makePlate() *surf.Lattice {
	return surf.Grid(3, 3, func(u, w float64) v3.Vec {
		return v3.Vec{X: 2 * u, Y: w}
	})
}

// triNormal returns the geometric normal of triangle t from its winding.
func triNormal(m *kernel.Mesh, t int) v3.Vec {
	p := func(i uint32) v3.Vec {
		return v3.Vec{X: float64(m.Vertices[3*i]), Y: float64(m.Vertices[3*i+1]), Z: float64(m.Vertices[3*i+2])}
	}
	a, b, c := p(m.Indices[3*t]), p(m.Indices[3*t+1]), p(m.Indices[3*t+2])
	return b.Sub(a).Cross(c.Sub(a))
}

func vertexNormal(m *kernel.Mesh, t int) v3.Vec {
	i := m.Indices[3*t]
	return v3.Vec{X: float64(m.Normals[3*i]), Y: float64(m.Normals[3*i+1]), Z: float64(m.Normals[3*i+2])}
}

func TestSurfaceGrid(t *testing.T) {
	mesh, err := tessellate.Surface(makePlate(), 4, 5)
	if err != nil {
		t.Fatalf("Surface failed: %v", err)
	}
	if mesh.VertexCount() != 20 {
		t.Fatalf("got %d vertices, want 20", mesh.VertexCount())
	}
	if mesh.TriangleCount() != 3*4*2 {
		t.Fatalf("got %d triangles, want 24", mesh.TriangleCount())
	}
	for i := 0; i < mesh.TriangleCount(); i++ {
		if n := triNormal(mesh, i); n.Z <= 0 {
			t.Fatalf("triangle %d winds against +Z: %v", i, n)
		}
	}
	min, max := mesh.Bounds()
	if min != [3]float64{0, 0, 0} || max != [3]float64{2, 1, 0} {
		t.Errorf("bounds %v %v", min, max)
	}
}

func TestSurfaceFlipped(t *testing.T) {
	mesh, err := tessellate.Surface(makePlate().WithFlip(true), 3, 3)
	if err != nil {
		t.Fatalf("Surface failed: %v", err)
	}
	for i := 0; i < mesh.TriangleCount(); i++ {
		n := triNormal(mesh, i)
		if n.Z >= 0 {
			t.Fatalf("flipped triangle %d winds toward +Z", i)
		}
		if vn := vertexNormal(mesh, i); vn.Z > -0.99 {
			t.Fatalf("flipped vertex normal %v, want -Z", vn)
		}
	}
}

func TestSurfaceRejectsBadInput(t *testing.T) {
	if _, err := tessellate.Surface(nil, 4, 4); err == nil {
		t.Error("expected error for nil surface")
	}
	if _, err := tessellate.Surface(makePlate(), 1, 4); err == nil {
		t.Error("expected error for 1-wide grid")
	}
}

func TestPoleNormal(t *testing.T) {
	// A cone collapses to a point at u=0.
	cone := surf.Grid(5, 9, func(u, w float64) v3.Vec {
		a := 2 * math.Pi * w
		return v3.Vec{X: u, Y: u * math.Cos(a), Z: u * math.Sin(a)}
	})
	mesh, err := tessellate.Surface(cone, 5, 9)
	if err != nil {
		t.Fatalf("Surface failed: %v", err)
	}
	for v := 0; v < 9; v++ {
		n := v3.Vec{X: float64(mesh.Normals[3*v]), Y: float64(mesh.Normals[3*v+1]), Z: float64(mesh.Normals[3*v+2])}
		if n.Length() < 0.5 {
			t.Fatalf("pole vertex %d has degenerate normal %v", v, n)
		}
	}
}

func TestTransformMirrorKeepsWinding(t *testing.T) {
	mesh, err := tessellate.Surface(makePlate(), 3, 3)
	if err != nil {
		t.Fatalf("Surface failed: %v", err)
	}
	mirrored := tessellate.Transform(mesh, xform.Mirror(xform.PlaneXY))
	for i := 0; i < mirrored.TriangleCount(); i++ {
		geo := triNormal(mirrored, i)
		vn := vertexNormal(mirrored, i)
		if geo.Dot(vn) <= 0 {
			t.Fatalf("triangle %d winding disagrees with its normal after mirroring", i)
		}
		if vn.Z > -0.99 {
			t.Fatalf("mirrored normal %v, want -Z", vn)
		}
	}

	moved := tessellate.Transform(mesh, xform.Translate(v3.Vec{Z: 5}))
	for i := range mesh.Indices {
		if moved.Indices[i] != mesh.Indices[i] {
			t.Fatal("translation must not change winding")
		}
	}
	if moved.Vertices[2] != 5 {
		t.Errorf("translated z = %v, want 5", moved.Vertices[2])
	}
	if tessellate.Transform(nil, xform.Identity()) != nil {
		t.Error("nil mesh should stay nil")
	}
}

func TestFeatureLines(t *testing.T) {
	lines := tessellate.FeatureLines(makePlate(), 4)
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}
	for _, l := range lines {
		if len(l) != 5 {
			t.Fatalf("got %d points, want 5", len(l))
		}
	}
	// w-line at u=1 runs along x=2.
	for _, p := range lines[1] {
		if p.X != 2 {
			t.Errorf("u=1 line point %v", p)
		}
	}
	shifted := tessellate.TransformLines(lines, xform.Translate(v3.Vec{Y: 10}))
	if shifted[3][0].Y != 10.5 {
		t.Errorf("shifted w=0.5 start %v", shifted[3][0])
	}
	if tessellate.FeatureLines(nil, 3) != nil {
		t.Error("nil surface should have no lines")
	}
}
