package geom

import (
	"math/bits"

	"github.com/chazu/spar/pkg/surf"
	"github.com/chazu/spar/pkg/xform"
	"github.com/deadsy/sdfx/sdf"
)

// Symmetry flag bits. The planar bits go in Sym_Planar_Flag, the axial bits
// in Sym_Axial_Flag.
const (
	SymXY   = 1 << 0
	SymXZ   = 1 << 1
	SymYZ   = 1 << 2
	SymRotX = 1 << 3
	SymRotY = 1 << 4
	SymRotZ = 1 << 5

	symPlanarMask = SymXY | SymXZ | SymYZ
	symAxialMask  = SymRotX | SymRotY | SymRotZ
	symNumTypes   = 6
)

// SymmSpec is the symmetry requested by a node's Sym parms.
type SymmSpec struct {
	Planar int
	Axial  int
	RotN   int
}

func (s SymmSpec) flags() int {
	return s.Planar&symPlanarMask | s.Axial&symAxialMask
}

// Copies returns the replica multiplier: a factor 2 per planar bit and a
// factor RotN per axial bit.
func (s SymmSpec) Copies() int {
	k := 1 << bits.OnesCount(uint(s.Planar&symPlanarMask))
	for i := bits.OnesCount(uint(s.Axial & symAxialMask)); i > 0; i-- {
		k *= max(s.RotN, 1)
	}
	return k
}

// SymmTable is the per-replica bookkeeping of a node. Every slice has one
// entry per replicated surface; the first entries are the main surfaces
// themselves.
type SymmTable struct {
	Transforms []sdf.M44
	MainIndex  []int
	CopyIndex  []int
	Flip       []bool
}

// Len returns the number of replicas.
func (t SymmTable) Len() int { return len(t.MainIndex) }

// NumFlipped counts the replicas with inverted normals.
func (t SymmTable) NumFlipped() int {
	n := 0
	for _, f := range t.Flip {
		if f {
			n++
		}
	}
	return n
}

// Replicas returns the replica indices built from main surface i, in copy
// order.
func (t SymmTable) Replicas(i int) []int {
	var out []int
	for j, m := range t.MainIndex {
		if m == i {
			out = append(out, j)
		}
	}
	return out
}

// BuildSymm lays out the replicas of main under spec. model is the node's
// placement and origin the frame the symmetry operations act in.
func BuildSymm(spec SymmSpec, main []surf.Surface, model, origin sdf.M44) SymmTable {
	spec.RotN = max(spec.RotN, 1)
	n := len(main)
	total := n * spec.Copies()
	t := SymmTable{
		Transforms: make([]sdf.M44, total),
		MainIndex:  make([]int, total),
		CopyIndex:  make([]int, total),
		Flip:       make([]bool, total),
	}
	// Symmetry operators in the origin frame, one per replica.
	ops := make([]sdf.M44, total)
	copies := make([]int, n)
	for i := 0; i < n; i++ {
		t.MainIndex[i] = i
		t.Flip[i] = main[i].Flipped()
		ops[i] = xform.Identity()
		copies[i] = 1
	}

	record := func(j, src int, op sdf.M44, flip bool) {
		t.MainIndex[j] = t.MainIndex[src]
		t.Flip[j] = flip
		ops[j] = op.Mul(ops[src])
		t.CopyIndex[j] = copies[t.MainIndex[j]]
		copies[t.MainIndex[j]]++
	}

	flags := spec.flags()
	current := n
	for bit := 0; bit < symNumTypes; bit++ {
		if flags&(1<<bit) == 0 {
			continue
		}
		added := current
		switch 1 << bit {
		case SymXY, SymXZ, SymYZ:
			ref := planeRef(1 << bit)
			for j := current; j < current+added; j++ {
				src := j - current
				record(j, src, ref, !t.Flip[src])
			}
			current += added
		default:
			step := 360 / float64(spec.RotN)
			for j := current; j < current+added; j++ {
				src := j - current
				for k := 0; k < spec.RotN-1; k++ {
					rot := xform.RotateAbout(axisOf(1<<bit), step*float64(k+1))
					record(j+k*added, src, rot, t.Flip[src])
				}
			}
			current += added * (spec.RotN - 1)
		}
	}

	inv := xform.Inverse(origin)
	for i := range t.Transforms {
		t.Transforms[i] = xform.Compose(origin, ops[i], inv, model)
	}
	return t
}

func planeRef(bit int) sdf.M44 {
	switch bit {
	case SymXY:
		return xform.Mirror(xform.PlaneXY)
	case SymXZ:
		return xform.Mirror(xform.PlaneXZ)
	default:
		return xform.Mirror(xform.PlaneYZ)
	}
}

func axisOf(bit int) xform.Axis {
	switch bit {
	case SymRotX:
		return xform.AxisX
	case SymRotY:
		return xform.AxisY
	default:
		return xform.AxisZ
	}
}

// ApplySymm expands main into the replicated set described by t. It is a
// pure function of its inputs.
func ApplySymm(main []surf.Surface, t SymmTable) []surf.Surface {
	out := make([]surf.Surface, t.Len())
	for i := range out {
		out[i] = main[t.MainIndex[i]].Replicate(t.Transforms[i], t.Flip[i])
	}
	return out
}
