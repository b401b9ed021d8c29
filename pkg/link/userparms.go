package link

import (
	"fmt"

	"github.com/chazu/spar/pkg/parm"
	"github.com/chazu/spar/pkg/xmldoc"
)

// DefaultUserGroup is the group user parms land in when none is given.
const DefaultUserGroup = "User_Group"

// UserParms is a container of free-standing design variables. They carry
// no geometry of their own and exist to be linked to.
type UserParms struct {
	parm.Base
	parms []*parm.Parm
}

func newUserParms(reg *parm.Registry) *UserParms {
	u := &UserParms{}
	u.Init(reg, u, "UserParms")
	u.SetElementName("UserParms")
	return u
}

// Add declares a user parm. Names are unique within a group.
func (u *UserParms) Add(name, group string, val, lower, upper float64) (*parm.Parm, error) {
	if group == "" {
		group = DefaultUserGroup
	}
	if u.FindParmInGroup(group, name) != nil {
		return nil, fmt.Errorf("user parm %s/%s: %w", group, name, ErrDuplicate)
	}
	p := &parm.Parm{}
	p.Init(name, group, u, val, lower, upper)
	u.parms = append(u.parms, p)
	return p, nil
}

// Remove drops the user parm with id. Links referencing it are pruned on
// the next propagation or Prune.
func (u *UserParms) Remove(id parm.ID) bool {
	for i, p := range u.parms {
		if p.ID() == id {
			u.RemoveParm(id)
			u.parms = append(u.parms[:i:i], u.parms[i+1:]...)
			return true
		}
	}
	return false
}

// All returns the user parms in declaration order.
func (u *UserParms) All() []*parm.Parm {
	return append([]*parm.Parm(nil), u.parms...)
}

// Len returns the number of user parms.
func (u *UserParms) Len() int { return len(u.parms) }

func (u *UserParms) clear() {
	for _, p := range u.parms {
		u.RemoveParm(p.ID())
	}
	u.parms = nil
}

// decode recreates the user parms listed in n. Every parm element under a
// group element becomes a parm; values and ids come from the document.
func (u *UserParms) decode(n *xmldoc.Node, rm *parm.Remapper) []string {
	if n == nil {
		return nil
	}
	u.clear()
	for _, g := range n.Children {
		switch g.Name {
		case "ID", "Name", "Attributes":
			continue
		}
		for _, e := range g.Children {
			lower := xmldoc.AttrValue(e, "Min", -1e12)
			upper := xmldoc.AttrValue(e, "Max", 1e12)
			val := xmldoc.AttrValue(e, "Value", 0.0)
			// A repeated name is the only failure; the first one wins.
			_, _ = u.Add(e.Name, g.Name, val, lower, upper)
		}
	}
	return u.Decode(n, rm)
}
