package geom

import (
	"github.com/chazu/spar/pkg/kernel"
	"github.com/chazu/spar/pkg/parm"
	"github.com/chazu/spar/pkg/surf"
	"github.com/chazu/spar/pkg/tessellate"
	"github.com/chazu/spar/pkg/xform"
	"github.com/deadsy/sdfx/sdf"
)

// Attachment modes for Trans_Attach_Flag and Rots_Attach_Flag.
const (
	AttachNone = iota
	AttachComp
	AttachUV
	AttachRST
	AttachLMN
	AttachEtaMN
)

// Placement modes for Abs_Or_Relitive_flag.
const (
	PlaceAbs = iota
	PlaceRel
)

// Geom is one node of the geometry tree. It is a parm container; its
// relationships to other nodes are ids resolved through the owning Model.
type Geom struct {
	parm.Base

	model *Model
	kind  *Kind
	// Data is the kind-specific state returned by Kind.Init.
	Data any

	parentID     parm.ID
	childIDs     []parm.ID
	stepChildIDs []parm.ID
	flags        Flags
	// inherited is set when Transform was marked by an ancestor change; such
	// nodes resolve their placement relative to the parent.
	inherited bool

	// Placement.
	XLoc, YLoc, ZLoc          parm.Parm
	XRot, YRot, ZRot          parm.Parm
	XRelLoc, YRelLoc, ZRelLoc parm.Parm
	XRelRot, YRelRot, ZRelRot parm.Parm
	Origin                    parm.Parm
	AbsRelFlag                parm.IntParm
	Scale                     parm.Parm
	LastScale                 parm.Parm

	// Attachment.
	TransAttach parm.IntParm
	RotsAttach  parm.IntParm
	ULoc, WLoc  parm.Parm
	RLoc, SLoc  parm.Parm
	TLoc        parm.Parm
	LLoc, MLoc  parm.Parm
	NLoc        parm.Parm
	EtaLoc      parm.Parm

	// Symmetry.
	SymAncestor       parm.IntParm
	SymAncestorOrigin parm.BoolParm
	SymPlanar         parm.IntParm
	SymAxial          parm.IntParm
	SymRotN           parm.IntParm

	// Tessellation.
	TessU parm.IntParm
	TessW parm.IntParm

	// Bounding box outputs.
	BBXLen, BBYLen, BBZLen parm.Parm
	BBXMin, BBYMin, BBZMin parm.Parm

	attachMat sdf.M44
	modelMat  sdf.M44
	main      []surf.Surface
	surfs     []surf.Surface
	symm      SymmTable
	meshes    []*kernel.Mesh
	lines     [][]tessellate.Polyline
	bbox      sdf.Box3
}

func newGeom(m *Model, k *Kind, name string) *Geom {
	g := &Geom{model: m, kind: k}
	g.Init(m.reg, g, name)
	g.attachMat = xform.Identity()
	g.modelMat = xform.Identity()
	g.initParms()
	if k.Init != nil {
		g.Data = k.Init(g)
	}
	g.flags = DirtyAll
	return g
}

func (g *Geom) initParms() {
	const big = 1.0e12

	g.XLoc.Init("X_Location", GroupXForm, g, 0, -big, big)
	g.YLoc.Init("Y_Location", GroupXForm, g, 0, -big, big)
	g.ZLoc.Init("Z_Location", GroupXForm, g, 0, -big, big)
	g.XRot.Init("X_Rotation", GroupXForm, g, 0, -180, 180)
	g.YRot.Init("Y_Rotation", GroupXForm, g, 0, -180, 180)
	g.ZRot.Init("Z_Rotation", GroupXForm, g, 0, -180, 180)
	g.XRelLoc.Init("X_Rel_Location", GroupXForm, g, 0, -big, big)
	g.YRelLoc.Init("Y_Rel_Location", GroupXForm, g, 0, -big, big)
	g.ZRelLoc.Init("Z_Rel_Location", GroupXForm, g, 0, -big, big)
	g.XRelRot.Init("X_Rel_Rotation", GroupXForm, g, 0, -180, 180)
	g.YRelRot.Init("Y_Rel_Rotation", GroupXForm, g, 0, -180, 180)
	g.ZRelRot.Init("Z_Rel_Rotation", GroupXForm, g, 0, -180, 180)
	g.Origin.Init("Origin", GroupXForm, g, 0, 0, 1)
	g.AbsRelFlag.Init("Abs_Or_Relitive_flag", GroupXForm, g, PlaceRel, PlaceAbs, PlaceRel)
	g.Scale.Init("Scale", GroupXForm, g, 1, 1e-3, 1e3)
	g.LastScale.Init("Last_Scale", GroupXForm, g, 1, 1e-3, 1e3)

	g.TransAttach.Init("Trans_Attach_Flag", GroupAttach, g, AttachNone, AttachNone, AttachEtaMN)
	g.RotsAttach.Init("Rots_Attach_Flag", GroupAttach, g, AttachNone, AttachNone, AttachEtaMN)
	g.ULoc.Init("U_Attach_Location", GroupAttach, g, 1e-6, 1e-6, 1-1e-6)
	g.WLoc.Init("V_Attach_Location", GroupAttach, g, 0, 0, 1)
	g.RLoc.Init("R_Attach_Location", GroupAttach, g, 0, 0, 1)
	g.SLoc.Init("S_Attach_Location", GroupAttach, g, 0.5, 0, 1)
	g.TLoc.Init("T_Attach_Location", GroupAttach, g, 0.5, 0, 1)
	g.LLoc.Init("L_Attach_Location", GroupAttach, g, 0, 0, 1)
	g.MLoc.Init("M_Attach_Location", GroupAttach, g, 0.5, 0, 1)
	g.NLoc.Init("N_Attach_Location", GroupAttach, g, 0.5, 0, 1)
	g.EtaLoc.Init("Eta_Attach_Location", GroupAttach, g, 0, 0, 1)

	g.SymAncestor.Init("Sym_Ancestor", GroupSym, g, 1, 0, 1000)
	g.SymAncestorOrigin.Init("Sym_Ancestor_Origin_Flag", GroupSym, g, true)
	g.SymPlanar.Init("Sym_Planar_Flag", GroupSym, g, 0, 0, SymXY|SymXZ|SymYZ)
	g.SymAxial.Init("Sym_Axial_Flag", GroupSym, g, 0, 0, SymRotZ)
	g.SymRotN.Init("Sym_Rot_N", GroupSym, g, 2, 2, 1000)

	g.TessU.Init("Tess_U", GroupShape, g, 8, 2, 1000)
	g.TessW.Init("Tess_W", GroupShape, g, 9, 5, 1001)
	g.TessW.SetMultShift(4, 1)

	g.BBXLen.Init("X_Len", GroupBBox, g, 0, 0, big)
	g.BBYLen.Init("Y_Len", GroupBBox, g, 0, 0, big)
	g.BBZLen.Init("Z_Len", GroupBBox, g, 0, 0, big)
	g.BBXMin.Init("X_Min", GroupBBox, g, 0, -big, big)
	g.BBYMin.Init("Y_Min", GroupBBox, g, 0, -big, big)
	g.BBZMin.Init("Z_Min", GroupBBox, g, 0, -big, big)
	for _, p := range []*parm.Parm{&g.BBXLen, &g.BBYLen, &g.BBZLen, &g.BBXMin, &g.BBYMin, &g.BBZMin} {
		p.SetLinkable(false)
	}
}

// ParmChanged marks dirty flags for the committed parm and lets the model
// decide whether to update now.
func (g *Geom) ParmChanged(p *parm.Parm, kind parm.ChangeKind) {
	g.model.parmChanged(g, p, kind)
}

// Model returns the owning model.
func (g *Geom) Model() *Model { return g.model }

// Kind returns the behavior table.
func (g *Geom) Kind() *Kind { return g.kind }

// TypeName returns the kind name.
func (g *Geom) TypeName() string { return g.kind.Name }

// ParentID returns the parent id; empty for a root.
func (g *Geom) ParentID() parm.ID { return g.parentID }

// Children returns the child ids in display order.
func (g *Geom) Children() []parm.ID { return append([]parm.ID(nil), g.childIDs...) }

// StepChildren returns the step-child ids.
func (g *Geom) StepChildren() []parm.ID { return append([]parm.ID(nil), g.stepChildIDs...) }

// Flags returns the pending dirty flags.
func (g *Geom) Flags() Flags { return g.flags }

// AttachMatrix returns the inherited placement.
func (g *Geom) AttachMatrix() sdf.M44 { return g.attachMat }

// ModelMatrix returns the full node placement.
func (g *Geom) ModelMatrix() sdf.M44 { return g.modelMat }

// MainSurfaces returns the pre-replication surfaces in local coordinates.
func (g *Geom) MainSurfaces() []surf.Surface { return g.main }

// Surfaces returns the replicated surfaces in model coordinates.
func (g *Geom) Surfaces() []surf.Surface { return g.surfs }

// Symmetry returns the replica bookkeeping of the last update.
func (g *Geom) Symmetry() SymmTable { return g.symm }

// Meshes returns one tessellation per replica, if tessellated.
func (g *Geom) Meshes() []*kernel.Mesh { return g.meshes }

// BBox returns the bounds of the replicated surfaces.
func (g *Geom) BBox() sdf.Box3 { return g.bbox }

// NumSymmCopies returns the replica multiplier for the current symmetry
// parms.
func (g *Geom) NumSymmCopies() int {
	return g.symmSpec().Copies()
}

func (g *Geom) symmSpec() SymmSpec {
	return SymmSpec{
		Planar: g.SymPlanar.GetInt(),
		Axial:  g.SymAxial.GetInt(),
		RotN:   g.SymRotN.GetInt(),
	}
}

func (g *Geom) addChildID(id, after parm.ID) {
	g.childIDs = insertAfter(g.childIDs, id, after)
}

func (g *Geom) removeChildID(id parm.ID) {
	g.childIDs = removeID(g.childIDs, id)
}

func (g *Geom) removeStepChildID(id parm.ID) {
	g.stepChildIDs = removeID(g.stepChildIDs, id)
}

func insertAfter(ids []parm.ID, id, after parm.ID) []parm.ID {
	if after != "" {
		for i, x := range ids {
			if x == after {
				ids = append(ids, "")
				copy(ids[i+2:], ids[i+1:])
				ids[i+1] = id
				return ids
			}
		}
	}
	return append(ids, id)
}

func removeID(ids []parm.ID, id parm.ID) []parm.ID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

func containsID(ids []parm.ID, id parm.ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
