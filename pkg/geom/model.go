package geom

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/chazu/spar/pkg/parm"
	"github.com/deadsy/sdfx/sdf"
)

var (
	ErrNotFound     = errors.New("geom: not found")
	ErrCycle        = errors.New("geom: relationship would create a cycle")
	ErrNotAdoptable = errors.New("geom: type cannot change parents")
	ErrSelfParent   = errors.New("geom: node cannot be its own parent")
	ErrUnknownType  = errors.New("geom: unknown type")
	ErrDuplicate    = errors.New("geom: relationship already exists")
)

// Vehicle holds model-wide parms: the bounding box over every geom.
type Vehicle struct {
	parm.Base

	BBXLen, BBYLen, BBZLen parm.Parm
	BBXMin, BBYMin, BBZMin parm.Parm
}

func newVehicle(reg *parm.Registry) *Vehicle {
	v := &Vehicle{}
	v.Init(reg, v, "Vehicle")
	v.SetElementName("Vehicle")
	const big = 1.0e12
	v.BBXLen.Init("X_Len", GroupBBox, v, 0, 0, big)
	v.BBYLen.Init("Y_Len", GroupBBox, v, 0, 0, big)
	v.BBZLen.Init("Z_Len", GroupBBox, v, 0, 0, big)
	v.BBXMin.Init("X_Min", GroupBBox, v, 0, -big, big)
	v.BBYMin.Init("Y_Min", GroupBBox, v, 0, -big, big)
	v.BBZMin.Init("Z_Min", GroupBBox, v, 0, -big, big)
	return v
}

func setBBox(lx, ly, lz, mx, my, mz *parm.Parm, box sdf.Box3) {
	size := box.Max.Sub(box.Min)
	lx.Set(size.X)
	ly.Set(size.Y)
	lz.Set(size.Z)
	mx.Set(box.Min.X)
	my.Set(box.Min.Y)
	mz.Set(box.Min.Z)
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.log = l }
}

// WithObserver adds an update walk observer.
func WithObserver(o Observer) Option {
	return func(m *Model) { m.observers = append(m.observers, o) }
}

// WithImmediateUpdate makes device edits run the update walk before
// returning.
func WithImmediateUpdate(on bool) Option {
	return func(m *Model) { m.immediate = on }
}

// Model is the arena that owns every geometry node. Relationships between
// nodes are ids resolved here.
type Model struct {
	reg     *parm.Registry
	cat     *Catalog
	log     *slog.Logger
	Vehicle *Vehicle

	nodes map[parm.ID]*Geom
	top   []parm.ID
	seq   map[parm.ID]int
	next  int

	observers []Observer
	immediate bool
	updating  bool
	pending   bool

	// processing is the node a walk is recomputing. Its own writes do
	// not dirty it again.
	processing *Geom

	scaleBox  sdf.Box3
	haveScale bool
}

// NewModel returns an empty model resolving ids through reg and building
// nodes from cat.
func NewModel(reg *parm.Registry, cat *Catalog, opts ...Option) *Model {
	m := &Model{
		reg:   reg,
		cat:   cat,
		log:   slog.New(slog.DiscardHandler),
		nodes: make(map[parm.ID]*Geom),
		seq:   make(map[parm.ID]int),
	}
	for _, o := range opts {
		o(m)
	}
	m.Vehicle = newVehicle(reg)
	return m
}

// Registry returns the id table.
func (m *Model) Registry() *parm.Registry { return m.reg }

// Catalog returns the kind table.
func (m *Model) Catalog() *Catalog { return m.cat }

// Logger returns the model logger.
func (m *Model) Logger() *slog.Logger { return m.log }

// AddObserver registers o for subsequent walks.
func (m *Model) AddObserver(o Observer) { m.observers = append(m.observers, o) }

// Get returns the node with id, or nil.
func (m *Model) Get(id parm.ID) *Geom { return m.nodes[id] }

// Len returns the number of nodes.
func (m *Model) Len() int { return len(m.nodes) }

// TopLevel returns the root ids in display order.
func (m *Model) TopLevel() []parm.ID { return append([]parm.ID(nil), m.top...) }

// Geoms returns every node in creation order.
func (m *Model) Geoms() []*Geom {
	out := make([]*Geom, 0, len(m.nodes))
	for _, g := range m.nodes {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return m.seq[out[i].ID()] < m.seq[out[j].ID()] })
	return out
}

// FindByName returns the nodes named name in creation order.
func (m *Model) FindByName(name string) []*Geom {
	var out []*Geom
	for _, g := range m.Geoms() {
		if g.Name() == name {
			out = append(out, g)
		}
	}
	return out
}

// Pending reports whether deferred edits are waiting for an update walk.
func (m *Model) Pending() bool { return m.pending }

func (m *Model) insert(g *Geom, parentID, after parm.ID) {
	id := g.ID()
	m.nodes[id] = g
	m.seq[id] = m.next
	m.next++
	m.attach(g, parentID, after)
}

func (m *Model) attach(g *Geom, parentID, after parm.ID) {
	g.parentID = parentID
	g.SetParentContainer(parentID)
	if p := m.nodes[parentID]; p != nil {
		p.addChildID(g.ID(), after)
		return
	}
	g.parentID = ""
	g.SetParentContainer("")
	m.top = insertAfter(m.top, g.ID(), after)
}

func (m *Model) detach(g *Geom) {
	if p := m.nodes[g.parentID]; p != nil {
		p.removeChildID(g.ID())
	} else {
		m.top = removeID(m.top, g.ID())
	}
}

// Add creates a node of type typeName under parentID (empty for a root).
func (m *Model) Add(typeName string, parentID parm.ID) (*Geom, error) {
	k := m.cat.Lookup(typeName)
	if k == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}
	if parentID != "" && m.nodes[parentID] == nil {
		return nil, fmt.Errorf("geom: add %s: parent %s: %w", typeName, parentID, ErrNotFound)
	}
	g := newGeom(m, k, k.Name)
	m.insert(g, parentID, "")
	m.MarkDirty(g.ID(), DirtyAll)
	m.pending = true
	m.log.Debug("geom added", "id", g.ID(), "type", k.Name, "parent", parentID)
	return g, nil
}

// survivor returns the nearest ancestor of g not in gone.
func (m *Model) survivor(g *Geom, gone map[parm.ID]bool) parm.ID {
	for p := g.parent(); p != nil; p = p.parent() {
		if !gone[p.ID()] {
			return p.ID()
		}
	}
	return ""
}

// Delete removes the nodes in ids. Their surviving children move to the
// nearest surviving ancestor, or to the top level. Unknown ids are ignored.
func (m *Model) Delete(ids ...parm.ID) {
	gone := make(map[parm.ID]bool, len(ids))
	var victims []*Geom
	for _, id := range ids {
		if g := m.nodes[id]; g != nil && !gone[id] {
			gone[id] = true
			victims = append(victims, g)
		}
	}
	if len(victims) == 0 {
		return
	}

	for _, g := range victims {
		for _, cid := range g.Children() {
			if gone[cid] {
				continue
			}
			c := m.nodes[cid]
			g.removeChildID(cid)
			m.attach(c, m.survivor(g, gone), "")
			m.MarkDirty(cid, DirtyTransform)
		}
	}
	for _, g := range victims {
		m.detach(g)
	}
	for _, g := range victims {
		for _, other := range m.nodes {
			if containsID(other.stepChildIDs, g.ID()) {
				other.removeStepChildID(g.ID())
			}
		}
		delete(m.nodes, g.ID())
		delete(m.seq, g.ID())
		g.Destroy()
		m.log.Debug("geom deleted", "id", g.ID())
	}
	m.pending = true
}

// reachable reports whether to is reachable from from over child and
// step-child edges.
func (m *Model) reachable(from, to parm.ID) bool {
	seen := map[parm.ID]bool{from: true}
	work := []parm.ID{from}
	for len(work) > 0 {
		id := work[0]
		work = work[1:]
		if id == to {
			return true
		}
		g := m.nodes[id]
		if g == nil {
			continue
		}
		for _, next := range append(g.Children(), g.stepChildIDs...) {
			if !seen[next] {
				seen[next] = true
				work = append(work, next)
			}
		}
	}
	return false
}

// Reparent moves id under newParent (empty for the top level), after the
// sibling after (empty appends).
func (m *Model) Reparent(id, newParent, after parm.ID) error {
	g := m.nodes[id]
	if g == nil {
		return fmt.Errorf("geom: reparent %s: %w", id, ErrNotFound)
	}
	if newParent != "" && m.nodes[newParent] == nil {
		return fmt.Errorf("geom: reparent %s: parent %s: %w", id, newParent, ErrNotFound)
	}
	if id == newParent {
		return ErrSelfParent
	}
	if !g.kind.Adoptable {
		return fmt.Errorf("%w: %s", ErrNotAdoptable, g.kind.Name)
	}
	if newParent != "" && m.reachable(id, newParent) {
		return fmt.Errorf("geom: reparent %s under %s: %w", id, newParent, ErrCycle)
	}
	m.detach(g)
	m.attach(g, newParent, after)
	m.MarkDirty(id, DirtyTransform)
	m.pending = true
	return nil
}

// AddStepChild makes child depend on parent for updates without changing
// the display tree.
func (m *Model) AddStepChild(parentID, childID parm.ID) error {
	p, c := m.nodes[parentID], m.nodes[childID]
	if p == nil || c == nil {
		return fmt.Errorf("geom: step child %s of %s: %w", childID, parentID, ErrNotFound)
	}
	if parentID == childID {
		return ErrSelfParent
	}
	if containsID(p.stepChildIDs, childID) {
		return fmt.Errorf("geom: step child %s of %s: %w", childID, parentID, ErrDuplicate)
	}
	if m.reachable(childID, parentID) {
		return fmt.Errorf("geom: step child %s of %s: %w", childID, parentID, ErrCycle)
	}
	p.stepChildIDs = append(p.stepChildIDs, childID)
	m.MarkDirty(childID, DirtyTransform|DirtySurface)
	m.pending = true
	return nil
}

// RemoveStepChild drops the step relationship, if present.
func (m *Model) RemoveStepChild(parentID, childID parm.ID) {
	if p := m.nodes[parentID]; p != nil {
		p.removeStepChildID(childID)
	}
}

// ForceUpdate marks every node with flags and runs a full walk.
func (m *Model) ForceUpdate(flags Flags) int {
	for _, g := range m.nodes {
		g.flags |= flags
	}
	return m.Update(true)
}

func (m *Model) parmChanged(g *Geom, p *parm.Parm, kind parm.ChangeKind) {
	if g == m.processing {
		return
	}
	f := Classify(p.Group(), p.Name())
	if f == DirtyNone {
		return
	}
	if f.Has(DirtyTransform) {
		g.inherited = false
	}
	m.MarkDirty(g.ID(), f)
	m.pending = true
	if kind == parm.ChangeDevice && m.immediate && !m.updating {
		m.Update(true)
	}
}
