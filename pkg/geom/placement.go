package geom

import (
	"github.com/chazu/spar/pkg/parm"
	"github.com/chazu/spar/pkg/surf"
	"github.com/chazu/spar/pkg/xform"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func (g *Geom) parent() *Geom {
	if g.parentID == "" {
		return nil
	}
	return g.model.nodes[g.parentID]
}

// ancestor returns the node gen generations up; 0 is g itself.
func (g *Geom) ancestor(gen int) *Geom {
	cur := g
	for ; gen > 0 && cur != nil; gen-- {
		cur = cur.parent()
	}
	return cur
}

// ancestorAttach returns the attach matrix of the ancestor at gen. -1 and
// missing ancestors give the identity.
func (g *Geom) ancestorAttach(gen int) sdf.M44 {
	if a := g.ancestor(gen); gen >= 0 && a != nil {
		return a.attachMat
	}
	return xform.Identity()
}

func (g *Geom) ancestorModel(gen int) sdf.M44 {
	if a := g.ancestor(gen); gen >= 0 && a != nil {
		return a.modelMat
	}
	return xform.Identity()
}

// attachSurface is the parent surface that surface-based attachment refers
// to, in model coordinates.
func (g *Geom) attachSurface() surf.Surface {
	p := g.parent()
	if p == nil || len(p.main) == 0 {
		return nil
	}
	return p.main[0].Replicate(p.modelMat, p.main[0].Flipped())
}

func surfaceMode(mode int) bool {
	return mode >= AttachUV
}

// updateAttachParms keeps the surface coordinate sets consistent. The set
// selected by the highest active surface mode is the master.
func (g *Geom) updateAttachParms() {
	mode := max(g.TransAttach.GetInt(), g.RotsAttach.GetInt())
	if !surfaceMode(mode) {
		return
	}
	s := g.attachSurface()
	if s == nil {
		return
	}
	switch mode {
	case AttachUV:
		r, ss, t := surf.UWtoRST(g.ULoc.Get(), g.WLoc.Get())
		g.RLoc.Set(r)
		g.SLoc.Set(ss)
		g.TLoc.Set(t)
		g.LLoc.Set(surf.RtoL(s, r))
		g.MLoc.Set(ss)
		g.NLoc.Set(t)
	case AttachRST:
		u, w := surf.RSTtoUW(g.RLoc.Get(), g.SLoc.Get(), g.TLoc.Get())
		g.ULoc.Set(u)
		g.WLoc.Set(w)
		g.LLoc.Set(surf.RtoL(s, g.RLoc.Get()))
		g.MLoc.Set(g.SLoc.Get())
		g.NLoc.Set(g.TLoc.Get())
	case AttachLMN, AttachEtaMN:
		if mode == AttachEtaMN {
			g.LLoc.Set(g.EtaLoc.Get())
		}
		r := surf.LtoR(s, g.LLoc.Get())
		g.RLoc.Set(r)
		g.SLoc.Set(g.MLoc.Get())
		g.TLoc.Set(g.NLoc.Get())
		u, w := surf.RSTtoUW(r, g.MLoc.Get(), g.NLoc.Get())
		g.ULoc.Set(u)
		g.WLoc.Set(w)
	}
	if mode != AttachEtaMN {
		g.EtaLoc.Set(g.LLoc.Get())
	}
}

// attachFrame returns the full frame for one attachment mode.
func (g *Geom) attachFrame(mode int) sdf.M44 {
	p := g.parent()
	switch {
	case p == nil || mode == AttachNone:
		return xform.Identity()
	case mode == AttachComp:
		return p.modelMat
	}
	s := g.attachSurface()
	if s == nil {
		return xform.Identity()
	}
	switch mode {
	case AttachUV:
		return surf.FrameUW(s, g.ULoc.Get(), g.WLoc.Get())
	case AttachRST:
		return surf.FrameRST(s, g.RLoc.Get(), g.SLoc.Get(), g.TLoc.Get())
	case AttachEtaMN:
		return surf.FrameLMN(s, g.EtaLoc.Get(), g.MLoc.Get(), g.NLoc.Get())
	default:
		return surf.FrameLMN(s, g.LLoc.Get(), g.MLoc.Get(), g.NLoc.Get())
	}
}

// composeAttach builds the inherited placement: translation from the
// Trans_Attach_Flag frame, rotation from the Rots_Attach_Flag frame.
func (g *Geom) composeAttach() sdf.M44 {
	tm, rm := g.TransAttach.GetInt(), g.RotsAttach.GetInt()
	if g.parent() == nil || (tm == AttachNone && rm == AttachNone) {
		return xform.Identity()
	}
	trans, rots := xform.Identity(), xform.Identity()
	if tm != AttachNone {
		trans = xform.TranslationOnly(g.attachFrame(tm))
	}
	if rm != AttachNone {
		rots = xform.RotationOnly(g.attachFrame(rm))
	}
	return trans.Mul(rots)
}

func (g *Geom) center() v3.Vec {
	if g.kind.Center == nil {
		return v3.Vec{}
	}
	return g.kind.Center(g)
}

// placeAbout returns T(loc) T(c) R(rot) T(-c).
func placeAbout(loc, rot, c v3.Vec) sdf.M44 {
	return xform.Compose(xform.Translate(loc), xform.Translate(c), xform.Rotate(rot), xform.Translate(c.Neg()))
}

// unplaceAbout inverts placeAbout for a rigid m.
func unplaceAbout(m sdf.M44, c v3.Vec) (loc, rot v3.Vec) {
	rot = xform.Angles(m)
	r := xform.Rotate(rot)
	loc = xform.Origin(m).Sub(c).Add(xform.Apply(r, c))
	return loc, rot
}

func setVec(x, y, z *parm.Parm, v v3.Vec) {
	x.Set(v.X)
	y.Set(v.Y)
	z.Set(v.Z)
}

func vec(x, y, z float64) v3.Vec { return v3.Vec{X: x, Y: y, Z: z} }

// updateXForm recomputes the attach and model matrices and back-fills the
// placement parms of the inactive mode.
func (g *Geom) updateXForm() {
	g.updateAttachParms()
	g.attachMat = g.composeAttach()
	c := g.center()

	if g.AbsRelFlag.GetInt() == PlaceRel || g.inherited {
		rel := placeAbout(
			vec(g.XRelLoc.Get(), g.YRelLoc.Get(), g.ZRelLoc.Get()),
			vec(g.XRelRot.Get(), g.YRelRot.Get(), g.ZRelRot.Get()), c)
		g.modelMat = g.attachMat.Mul(rel)
		loc, rot := unplaceAbout(g.modelMat, c)
		setVec(&g.XLoc, &g.YLoc, &g.ZLoc, loc)
		setVec(&g.XRot, &g.YRot, &g.ZRot, rot)
		return
	}

	g.modelMat = placeAbout(
		vec(g.XLoc.Get(), g.YLoc.Get(), g.ZLoc.Get()),
		vec(g.XRot.Get(), g.YRot.Get(), g.ZRot.Get()), c)
	loc, rot := unplaceAbout(xform.Inverse(g.attachMat).Mul(g.modelMat), c)
	setVec(&g.XRelLoc, &g.YRelLoc, &g.ZRelLoc, loc)
	setVec(&g.XRelRot, &g.YRelRot, &g.ZRelRot, rot)
}
