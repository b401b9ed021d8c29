package link

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/chazu/spar/pkg/parm"
	"github.com/chazu/spar/pkg/xmldoc"
)

// ErrNotLinkable is returned when either end of a link is an output parm.
var ErrNotLinkable = errors.New("link: parm not linkable")

// ElemLinkMgr is the document element holding the links and user parms.
const ElemLinkMgr = "LinkMgr"

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithPropagateHook installs fn, called once per value pushed through a
// link.
func WithPropagateHook(fn func(l *Link)) Option {
	return func(m *Manager) { m.hook = fn }
}

// Manager owns every link of a registry and the user parms container.
type Manager struct {
	reg    *parm.Registry
	log    *slog.Logger
	hook   func(l *Link)
	cancel func()

	links []*Link
	user  *UserParms

	// updated holds the parms that already pushed values during the
	// current propagation chain. nil outside a chain.
	updated map[parm.ID]bool
	frozen  bool
}

// NewManager subscribes to reg and returns an empty manager.
func NewManager(reg *parm.Registry, opts ...Option) *Manager {
	m := &Manager{reg: reg, log: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(m)
	}
	m.user = newUserParms(reg)
	m.cancel = reg.Subscribe(m.parmChanged)
	return m
}

// Close unsubscribes from the registry. Links stay in place but no longer
// propagate.
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// UserParms returns the user parms container.
func (m *Manager) UserParms() *UserParms { return m.user }

// Links returns the links in creation order.
func (m *Manager) Links() []*Link { return append([]*Link(nil), m.links...) }

// Len returns the number of links.
func (m *Manager) Len() int { return len(m.links) }

// Find returns the link from a to b, or nil.
func (m *Manager) Find(a, b parm.ID) *Link {
	for _, l := range m.links {
		if l.parmA == a && l.parmB == b {
			return l
		}
	}
	return nil
}

// From returns the links driven by a.
func (m *Manager) From(a parm.ID) []*Link {
	var out []*Link
	for _, l := range m.links {
		if l.parmA == a {
			out = append(out, l)
		}
	}
	return out
}

// UsedInLink reports whether id is either end of any link.
func (m *Manager) UsedInLink(id parm.ID) bool {
	for _, l := range m.links {
		if l.parmA == id || l.parmB == id {
			return true
		}
	}
	return false
}

// Add links b to a and pushes a's value through the new link. With init
// the offset is chosen so that b keeps its current value.
func (m *Manager) Add(a, b parm.ID, init bool) (*Link, error) {
	if a == b {
		return nil, fmt.Errorf("link %s: %w", a, ErrSelfLink)
	}
	pa, pb := m.reg.Parm(a), m.reg.Parm(b)
	if pa == nil {
		return nil, fmt.Errorf("link from %s: %w", a, ErrNotFound)
	}
	if pb == nil {
		return nil, fmt.Errorf("link to %s: %w", b, ErrNotFound)
	}
	if !pa.IsLinkable() || !pb.IsLinkable() {
		return nil, fmt.Errorf("link %s -> %s: %w", a, b, ErrNotLinkable)
	}
	if m.Find(a, b) != nil {
		return nil, fmt.Errorf("link %s -> %s: %w", a, b, ErrDuplicate)
	}

	l := newLink(m, a, b)
	m.links = append(m.links, l)
	pb.SetLinkContainer(l.ID())
	if init {
		l.Offset.Set(pb.Get() - pa.Get())
	}
	m.log.Debug("link added", "a", a, "b", b, "offset", l.Offset.Get())
	m.apply(l)
	return l, nil
}

// LinkGroup links every parm of group in container a to the parm of the
// same name in the same group of container b. It returns the number of
// links created; existing links are left alone.
func (m *Manager) LinkGroup(a, b parm.ID, group string) (int, error) {
	ca, _ := m.reg.Container(a).(grouped)
	cb, _ := m.reg.Container(b).(grouped)
	if ca == nil || cb == nil {
		return 0, fmt.Errorf("link group %s: %w", group, ErrNotFound)
	}
	if a == b {
		return 0, fmt.Errorf("link group %s: %w", group, ErrSelfLink)
	}
	n := 0
	for _, pa := range ca.GroupParms(group) {
		pb := cb.FindParmInGroup(group, pa.Name())
		if pb == nil {
			continue
		}
		if _, err := m.Add(pa.ID(), pb.ID(), false); err == nil {
			n++
		}
	}
	return n, nil
}

type grouped interface {
	GroupParms(group string) []*parm.Parm
	FindParmInGroup(group, name string) *parm.Parm
}

// Remove deletes the link with id.
func (m *Manager) Remove(id parm.ID) error {
	for i, l := range m.links {
		if l.ID() == id {
			m.drop(i)
			return nil
		}
	}
	return fmt.Errorf("link %s: %w", id, ErrNotFound)
}

// RemoveAll deletes every link. User parms are kept.
func (m *Manager) RemoveAll() {
	for len(m.links) > 0 {
		m.drop(len(m.links) - 1)
	}
}

func (m *Manager) drop(i int) {
	l := m.links[i]
	m.links = append(m.links[:i:i], m.links[i+1:]...)
	if pb := m.reg.Parm(l.parmB); pb != nil && pb.LinkContainerID() == l.ID() {
		pb.SetLinkContainer("")
		for _, o := range m.links {
			if o.parmB == l.parmB {
				pb.SetLinkContainer(o.ID())
				break
			}
		}
	}
	l.mgr = nil
	l.Destroy()
}

// Prune removes links whose ends no longer exist and returns how many
// went.
func (m *Manager) Prune() int {
	n := 0
	for i := len(m.links) - 1; i >= 0; i-- {
		l := m.links[i]
		if m.reg.Parm(l.parmA) != nil && m.reg.Parm(l.parmB) != nil {
			continue
		}
		m.log.Info("link pruned", "a", l.parmA, "b", l.parmB)
		m.drop(i)
		n++
	}
	return n
}

// Freeze stops propagation until Thaw.
func (m *Manager) Freeze() { m.frozen = true }

// Thaw resumes propagation.
func (m *Manager) Thaw() { m.frozen = false }

// ---------------------------------------------------------------------------
// Propagation
// ---------------------------------------------------------------------------

func (m *Manager) parmChanged(p *parm.Parm, kind parm.ChangeKind) {
	if m.frozen {
		return
	}
	links := m.From(p.ID())
	if len(links) == 0 {
		return
	}
	start := m.begin()
	m.updated[p.ID()] = true
	for _, l := range links {
		m.drive(l, p)
	}
	m.end(start)
}

// apply pushes a's current value through l alone.
func (m *Manager) apply(l *Link) {
	if m.frozen {
		return
	}
	a := m.reg.Parm(l.parmA)
	if a == nil {
		return
	}
	start := m.begin()
	m.updated[a.ID()] = true
	m.drive(l, a)
	m.end(start)
}

func (m *Manager) begin() bool {
	if m.updated != nil {
		return false
	}
	m.updated = make(map[parm.ID]bool)
	return true
}

func (m *Manager) end(start bool) {
	if start {
		m.updated = nil
	}
}

func (m *Manager) drive(l *Link, a *parm.Parm) {
	b := m.reg.Parm(l.parmB)
	if b == nil || m.updated[b.ID()] {
		return
	}
	if m.hook != nil {
		m.hook(l)
	}
	b.SetFromLink(l.Value(a.Get()))
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Encode appends the LinkMgr element to parent. Dead links are pruned
// first.
func (m *Manager) Encode(parent *xmldoc.Node) *xmldoc.Node {
	m.Prune()
	n := parent.AddChild(ElemLinkMgr)
	m.user.Encode(n)
	for _, l := range m.links {
		e := l.Encode(n)
		e.AddText("ParmA", string(l.parmA))
		e.AddText("ParmB", string(l.parmB))
	}
	return n
}

// Decode replaces the links and user parms with those in n. Parm
// references pass through rm; links whose ends are missing are dropped
// with a warning. Values are loaded without propagation.
func (m *Manager) Decode(n *xmldoc.Node, rm *parm.Remapper) []string {
	if n == nil {
		return nil
	}
	m.RemoveAll()
	warns := m.user.decode(n.Child("UserParms"), rm)

	for _, e := range n.ChildrenNamed("Link") {
		a := rm.Remap(parm.ID(xmldoc.Value(e, "ParmA", "")))
		b := rm.Remap(parm.ID(xmldoc.Value(e, "ParmB", "")))
		pa, pb := m.reg.Parm(a), m.reg.Parm(b)
		if pa == nil || pb == nil || a == b || m.Find(a, b) != nil {
			warns = append(warns, fmt.Sprintf("link %s -> %s dropped", a, b))
			continue
		}
		l := newLink(m, a, b)
		warns = append(warns, l.Decode(e, rm)...)
		m.links = append(m.links, l)
		pb.SetLinkContainer(l.ID())
	}
	return warns
}
