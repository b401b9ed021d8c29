package geom

import (
	"testing"

	"github.com/chazu/spar/pkg/surf"
	"github.com/chazu/spar/pkg/xform"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymmetryTwelveReplicas(t *testing.T) {
	m := newTestModel(t)
	g := mustAdd(t, m, "Twin", "")
	g.SymPlanar.Set(SymXZ)
	g.SymAxial.Set(SymRotX)
	g.SymRotN.Set(3)
	m.Update(true)

	require.Len(t, g.MainSurfaces(), 2)
	assert.Equal(t, 6, g.NumSymmCopies())
	assert.Len(t, g.Surfaces(), 12)
	assert.Len(t, g.Symmetry().Transforms, 12)
	assert.Equal(t, 6, g.Symmetry().NumFlipped())
	assert.Len(t, g.Meshes(), 12)
	for i := 0; i < 2; i++ {
		assert.Len(t, g.Symmetry().Replicas(i), 6)
	}
}

func TestSymmetryCardinality(t *testing.T) {
	tests := []struct {
		name   string
		planar int
		axial  int
		rotN   int
		copies int
	}{
		{"none", 0, 0, 2, 1},
		{"xy", SymXY, 0, 2, 2},
		{"xy+xz", SymXY | SymXZ, 0, 2, 4},
		{"all planes", SymXY | SymXZ | SymYZ, 0, 2, 8},
		{"rot z 4", 0, SymRotZ, 4, 4},
		{"yz + rot y 5", SymYZ, SymRotY, 5, 10},
		{"all planes + rot x 7", SymXY | SymXZ | SymYZ, SymRotX, 7, 56},
	}
	for _, tt := range tests {
		for _, kind := range []string{"Plate", "Twin"} {
			t.Run(tt.name+"/"+kind, func(t *testing.T) {
				m := newTestModel(t)
				g := mustAdd(t, m, kind, "")
				g.SymPlanar.Set(float64(tt.planar))
				g.SymAxial.Set(float64(tt.axial))
				g.SymRotN.Set(float64(tt.rotN))
				m.Update(true)

				n := len(g.MainSurfaces())
				assert.Equal(t, tt.copies, g.NumSymmCopies())
				assert.Len(t, g.Surfaces(), n*tt.copies)
				assert.Len(t, g.Symmetry().Transforms, n*tt.copies)
				assert.Len(t, g.Symmetry().MainIndex, n*tt.copies)
				assert.Len(t, g.Symmetry().Flip, n*tt.copies)
				assert.Len(t, m.RenderPrimitives(g.ID()), n*tt.copies)
			})
		}
	}
}

func TestMirrorReplicaGeometry(t *testing.T) {
	m := newTestModel(t)
	g := mustAdd(t, m, "Plate", "")
	g.SymPlanar.Set(SymXZ)
	m.Update(true)

	ss := g.Surfaces()
	require.Len(t, ss, 2)
	p0 := ss[0].Point(1, 1)
	p1 := ss[1].Point(1, 1)
	assert.InDelta(t, p0.X, p1.X, 1e-12)
	assert.InDelta(t, -p0.Y, p1.Y, 1e-12)
	assert.False(t, ss[0].Flipped())
	assert.True(t, ss[1].Flipped())
	assert.InDelta(t, 4, g.BBYLen.Get(), 1e-9)
	assert.InDelta(t, -2, g.BBYMin.Get(), 1e-9)
}

func TestSymmetryAboutAncestor(t *testing.T) {
	m := newTestModel(t)
	r := mustAdd(t, m, "Blank", "")
	r.YRelLoc.Set(10)
	c := mustAdd(t, m, "Plate", r.ID())
	c.TransAttach.Set(AttachComp)
	c.YRelLoc.Set(1)
	c.SymPlanar.Set(SymXZ)
	m.Update(true)

	// Default: mirrored about the child's own attach frame at y=10.
	ys := func() []float64 {
		var out []float64
		for _, s := range c.Surfaces() {
			out = append(out, s.Point(0, 0).Y)
		}
		return out
	}
	assert.InDeltaSlice(t, []float64{11, 9}, ys(), 1e-9)

	// Generation 0: the global origin.
	c.SymAncestor.Set(0)
	m.Update(true)
	assert.InDeltaSlice(t, []float64{11, -11}, ys(), 1e-9)

	// Generation 2 with the model matrix: the parent's model frame.
	c.SymAncestor.Set(2)
	c.SymAncestorOrigin.SetBool(false)
	m.Update(true)
	assert.InDeltaSlice(t, []float64{11, 9}, ys(), 1e-9)

	// Missing ancestors fall back to the global origin.
	c.SymAncestor.Set(5)
	m.Update(true)
	assert.InDeltaSlice(t, []float64{11, -11}, ys(), 1e-9)
}

func TestAxialCopiesRotate(t *testing.T) {
	lat := surf.Grid(2, 2, func(u, w float64) v3.Vec { return v3.Vec{X: u, Y: 1 + w, Z: 0} })
	tab := BuildSymm(SymmSpec{Axial: SymRotZ, RotN: 4}, []surf.Surface{lat}, xform.Identity(), xform.Identity())
	out := ApplySymm([]surf.Surface{lat}, tab)

	require.Len(t, out, 4)
	want := []v3.Vec{{X: 0, Y: 1}, {X: -1, Y: 0}, {X: 0, Y: -1}, {X: 1, Y: 0}}
	for i, w := range want {
		p := out[i].Point(0, 0)
		assert.InDelta(t, w.X, p.X, 1e-12, "replica %d", i)
		assert.InDelta(t, w.Y, p.Y, 1e-12, "replica %d", i)
		assert.False(t, tab.Flip[i])
		assert.Equal(t, i, tab.CopyIndex[i])
	}
}

func TestApplySymmIsPure(t *testing.T) {
	main := []surf.Surface{
		surf.Grid(3, 4, func(u, w float64) v3.Vec { return v3.Vec{X: u, Y: w, Z: u * w} }),
		surf.Grid(2, 2, func(u, w float64) v3.Vec { return v3.Vec{X: -u, Y: 2 * w, Z: 1} }).WithFlip(true),
	}
	spec := SymmSpec{Planar: SymXY | SymYZ, Axial: SymRotY, RotN: 3}
	model := xform.Compose(xform.Translate(v3.Vec{X: 1, Y: 2, Z: 3}), xform.Rotate(v3.Vec{X: 10, Y: 20, Z: 30}))
	tab := BuildSymm(spec, main, model, xform.Identity())

	a := ApplySymm(main, tab)
	b := ApplySymm(main, tab)
	require.Len(t, a, len(main)*spec.Copies())
	for i := range a {
		la, lb := a[i].(*surf.Lattice), b[i].(*surf.Lattice)
		assert.True(t, la.Equal(lb), "replica %d", i)
	}
	// The second main surface starts flipped; its first mirror is not.
	assert.True(t, tab.Flip[1])
	assert.False(t, tab.Flip[3])
	assert.Equal(t, []int{0, 1, 0, 1}, tab.MainIndex[:4])
}

func TestBuildSymmWithoutSurfaces(t *testing.T) {
	tab := BuildSymm(SymmSpec{Planar: SymXY, RotN: 2}, nil, xform.Identity(), xform.Identity())
	assert.Equal(t, 0, tab.Len())
	assert.Empty(t, ApplySymm(nil, tab))
}
