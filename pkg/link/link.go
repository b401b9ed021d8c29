// Package link keeps pairs of parameters in step. A Link drives parm B
// from parm A as B = A*scale + offset, clamped to optional limits, and is
// re-applied whenever A commits a new value. Links are parm containers
// themselves, so their offset, scale and limits are ordinary parms that
// can be edited, serialized and even linked.
package link

import (
	"errors"

	"github.com/chazu/spar/pkg/parm"
)

// GroupLink is the parm group of every link setting.
const GroupLink = "Link"

// Sentinel errors.
var (
	ErrNotFound  = errors.New("link: parm not found")
	ErrSelfLink  = errors.New("link: parm linked to itself")
	ErrDuplicate = errors.New("link: duplicate link")
)

// Link drives B from A.
type Link struct {
	parm.Base
	mgr *Manager

	parmA parm.ID
	parmB parm.ID

	OffsetFlag     parm.BoolParm
	Offset         parm.Parm
	ScaleFlag      parm.BoolParm
	Scale          parm.Parm
	LowerLimitFlag parm.BoolParm
	LowerLimit     parm.Parm
	UpperLimitFlag parm.BoolParm
	UpperLimit     parm.Parm
}

func newLink(mgr *Manager, a, b parm.ID) *Link {
	l := &Link{mgr: mgr, parmA: a, parmB: b}
	l.Init(mgr.reg, l, "Link")
	l.SetElementName("Link")

	const big = 1e12
	l.OffsetFlag.Init("OffsetFlag", GroupLink, l, true)
	l.Offset.Init("Offset", GroupLink, l, 0, -big, big)
	l.ScaleFlag.Init("ScaleFlag", GroupLink, l, false)
	l.Scale.Init("Scale", GroupLink, l, 1, -big, big)
	l.LowerLimitFlag.Init("LowerLimitFlag", GroupLink, l, false)
	l.LowerLimit.Init("LowerLimit", GroupLink, l, -big, -big, big)
	l.UpperLimitFlag.Init("UpperLimitFlag", GroupLink, l, false)
	l.UpperLimit.Init("UpperLimit", GroupLink, l, big, -big, big)
	for _, p := range []*parm.Parm{
		&l.OffsetFlag.Parm, &l.Offset, &l.ScaleFlag.Parm, &l.Scale,
		&l.LowerLimitFlag.Parm, &l.LowerLimit, &l.UpperLimitFlag.Parm, &l.UpperLimit,
	} {
		p.SetLinkable(false)
	}
	return l
}

// ParmA returns the driving parm id.
func (l *Link) ParmA() parm.ID { return l.parmA }

// ParmB returns the driven parm id.
func (l *Link) ParmB() parm.ID { return l.parmB }

// Value returns the value B takes for a given A.
func (l *Link) Value(a float64) float64 {
	v := a
	if l.ScaleFlag.GetBool() {
		v *= l.Scale.Get()
	}
	if l.OffsetFlag.GetBool() {
		v += l.Offset.Get()
	}
	if l.LowerLimitFlag.GetBool() && v < l.LowerLimit.Get() {
		v = l.LowerLimit.Get()
	}
	if l.UpperLimitFlag.GetBool() && v > l.UpperLimit.Get() {
		v = l.UpperLimit.Get()
	}
	return v
}

// ParmChanged re-applies the link when one of its own settings changes.
func (l *Link) ParmChanged(p *parm.Parm, kind parm.ChangeKind) {
	if l.mgr != nil {
		l.mgr.apply(l)
	}
}
