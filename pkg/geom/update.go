package geom

import (
	"sort"
	"time"

	"github.com/chazu/spar/pkg/kernel"
	"github.com/chazu/spar/pkg/parm"
	"github.com/chazu/spar/pkg/surf"
	"github.com/chazu/spar/pkg/tessellate"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Observer is told about every update walk.
type Observer interface {
	WalkStarted(full bool)
	// NodeProcessed reports the flags acted on for one node.
	NodeProcessed(id parm.ID, acted Flags)
	WalkFinished(full bool, nodes int, elapsed time.Duration)
}

// MarkDirty sets f on id and Transform on every node that depends on it.
// Step-children are also marked Surface.
func (m *Model) MarkDirty(id parm.ID, f Flags) {
	g := m.nodes[id]
	if g == nil || f == DirtyNone {
		return
	}
	g.flags |= f

	type edge struct {
		id   parm.ID
		step bool
	}
	seen := map[parm.ID]bool{id: true}
	var work []edge
	push := func(n *Geom) {
		for _, c := range n.childIDs {
			work = append(work, edge{c, false})
		}
		for _, c := range n.stepChildIDs {
			work = append(work, edge{c, true})
		}
	}
	push(g)
	for len(work) > 0 {
		e := work[0]
		work = work[1:]
		d := m.nodes[e.id]
		if d == nil {
			continue
		}
		if e.step {
			d.flags |= DirtySurface
		}
		if seen[e.id] {
			continue
		}
		seen[e.id] = true
		if !d.flags.Has(DirtyTransform) {
			d.inherited = true
		}
		d.flags |= DirtyTransform
		push(d)
	}
}

// MarkGlobalScale sets GlobalScale on every node.
func (m *Model) MarkGlobalScale() {
	for _, g := range m.nodes {
		g.flags |= DirtyGlobalScale
	}
	m.pending = true
}

// order returns every node parents first, ties in creation order.
func (m *Model) order() []*Geom {
	indeg := make(map[parm.ID]int, len(m.nodes))
	for id := range m.nodes {
		indeg[id] += 0
	}
	for _, g := range m.nodes {
		for _, c := range append(g.Children(), g.stepChildIDs...) {
			if _, ok := m.nodes[c]; ok {
				indeg[c]++
			}
		}
	}
	var ready []parm.ID
	for id, d := range indeg {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	bySeq := func(ids []parm.ID) {
		sort.Slice(ids, func(i, j int) bool { return m.seq[ids[i]] < m.seq[ids[j]] })
	}
	bySeq(ready)

	out := make([]*Geom, 0, len(m.nodes))
	done := make(map[parm.ID]bool, len(m.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		if done[id] {
			continue
		}
		done[id] = true
		g := m.nodes[id]
		out = append(out, g)
		var freed []parm.ID
		for _, c := range append(g.Children(), g.stepChildIDs...) {
			if _, ok := indeg[c]; !ok {
				continue
			}
			indeg[c]--
			if indeg[c] == 0 {
				freed = append(freed, c)
			}
		}
		ready = append(ready, freed...)
		bySeq(ready)
	}
	if len(out) < len(m.nodes) {
		var rest []parm.ID
		for id := range m.nodes {
			if !done[id] {
				rest = append(rest, id)
			}
		}
		bySeq(rest)
		m.log.Warn("geom: dependency cycle, updating remaining nodes in creation order", "count", len(rest))
		for _, id := range rest {
			out = append(out, m.nodes[id])
		}
	}
	return out
}

// maxPasses bounds the walks one update runs while links keep dirtying
// nodes that were already visited.
const maxPasses = 8

// Update walks every dirty node, walking again while link edits made
// during a walk leave nodes stale. A partial walk (full=false) leaves
// tessellation pending. It returns the number of nodes processed.
func (m *Model) Update(full bool) int {
	if m.updating {
		return 0
	}
	n := m.settle(full, nil)
	if m.refreshGlobalScale() {
		n += m.settle(full, nil)
	}
	m.updateVehicle()
	m.pending = m.stale(full, nil)
	return n
}

// RequestUpdate walks id and the nodes that depend on it. Scale-sensitive
// geoms are walked as well when the walk moved the bounds they follow.
func (m *Model) RequestUpdate(id parm.ID, full bool) int {
	if m.updating || m.nodes[id] == nil {
		return 0
	}
	n := m.settle(full, m.dependents(func(g *Geom) bool { return g.ID() == id }))
	if m.refreshGlobalScale() {
		n += m.settle(full, m.dependents(func(g *Geom) bool { return g.kind.ScaleSensitive }))
	}
	m.updateVehicle()
	m.pending = m.stale(full, nil)
	return n
}

// dependents returns the nodes reachable from any node matching root.
func (m *Model) dependents(root func(*Geom) bool) map[parm.ID]bool {
	scope := map[parm.ID]bool{}
	for _, r := range m.nodes {
		if !root(r) {
			continue
		}
		for _, g := range m.nodes {
			if m.reachable(r.ID(), g.ID()) {
				scope[g.ID()] = true
			}
		}
	}
	return scope
}

func (m *Model) settle(full bool, scope map[parm.ID]bool) int {
	n := 0
	for pass := 1; ; pass++ {
		n += m.walk(full, scope)
		if !m.stale(full, scope) {
			return n
		}
		if pass == maxPasses {
			m.log.Warn("geom: nodes still dirty after update", "passes", pass)
			return n
		}
	}
}

// stale reports whether a node in scope (every node when scope is nil)
// still has work a walk of the given depth would do.
func (m *Model) stale(full bool, scope map[parm.ID]bool) bool {
	mask := DirtyAll
	if !full {
		mask &^= DirtyTess
	}
	for id, g := range m.nodes {
		if scope != nil && !scope[id] {
			continue
		}
		if g.flags&mask != DirtyNone {
			return true
		}
	}
	return false
}

func (m *Model) walk(full bool, scope map[parm.ID]bool) int {
	if m.updating {
		return 0
	}
	m.updating = true
	defer func() { m.updating = false }()

	start := time.Now()
	for _, o := range m.observers {
		o.WalkStarted(full)
	}
	n := 0
	for _, g := range m.order() {
		if scope != nil && !scope[g.ID()] {
			continue
		}
		if g.flags == DirtyNone {
			continue
		}
		m.processing = g
		acted := g.process(full)
		m.processing = nil
		n++
		for _, o := range m.observers {
			o.NodeProcessed(g.ID(), acted)
		}
	}
	elapsed := time.Since(start)
	for _, o := range m.observers {
		o.WalkFinished(full, n, elapsed)
	}
	m.log.Debug("update walk", "full", full, "nodes", n, "elapsed", elapsed)
	return n
}

// process recomputes what g's flags say is stale and returns what was done.
func (g *Geom) process(full bool) Flags {
	f := g.flags
	var acted Flags

	if f.Has(DirtySurface) {
		g.rescale()
	}
	if f.Has(DirtyTransform) {
		g.updateXForm()
		acted |= DirtyTransform
	}
	if f.Has(DirtySurface) {
		g.regenerate()
		acted |= DirtySurface
	}
	if f.Any(DirtyTransform | DirtySurface | DirtyGlobalScale) {
		g.updateSymm()
		acted |= f & DirtyGlobalScale
		f |= DirtyTess
	}
	if f.Has(DirtyTess) {
		if full {
			g.tessellate()
			acted |= DirtyTess
		} else {
			g.meshes, g.lines = nil, nil
		}
	}
	acted |= f & (DirtyHighlight | DirtyAnnotation)

	g.flags = f &^ acted
	g.inherited = false
	return acted
}

func (g *Geom) rescale() {
	last := g.LastScale.Get()
	ratio := g.Scale.Get() / last
	if parm.Equal(ratio, 1) {
		return
	}
	if g.kind.Scale != nil {
		g.kind.Scale(g, ratio)
	}
	g.LastScale.Set(g.Scale.Get())
}

func (g *Geom) regenerate() {
	if g.kind.Regenerate == nil {
		if !g.kind.NoSurface {
			missingHook(g.kind.Name, "Regenerate")
		}
		g.main = nil
		return
	}
	g.main = g.kind.Regenerate(g)
}

func (g *Geom) symmOrigin() sdf.M44 {
	gen := g.SymAncestor.GetInt() - 1
	if g.SymAncestorOrigin.GetBool() {
		return g.ancestorAttach(gen)
	}
	return g.ancestorModel(gen)
}

func (g *Geom) updateSymm() {
	g.symm = BuildSymm(g.symmSpec(), g.main, g.modelMat, g.symmOrigin())
	g.surfs = ApplySymm(g.main, g.symm)
	box, ok := surf.BoundsAll(g.surfs)
	if !ok {
		o := g.modelMat.MulPosition(v3.Vec{})
		box = sdf.Box3{Min: o, Max: o}
	}
	g.bbox = box
	setBBox(&g.BBXLen, &g.BBYLen, &g.BBZLen, &g.BBXMin, &g.BBYMin, &g.BBZMin, box)
}

func (g *Geom) tessellate() {
	nu, nw := g.TessU.GetInt(), g.TessW.GetInt()
	local := make([]*kernel.Mesh, len(g.main))
	lines := make([][]tessellate.Polyline, len(g.main))
	for i, s := range g.main {
		mesh, err := tessellate.Surface(s, nu, nw)
		if err != nil {
			g.model.log.Warn("geom: tessellation failed", "id", g.ID(), "surface", i, "err", err)
			continue
		}
		local[i] = mesh
		lines[i] = tessellate.FeatureLines(s, nw-1)
	}
	g.meshes = make([]*kernel.Mesh, g.symm.Len())
	g.lines = make([][]tessellate.Polyline, g.symm.Len())
	for j, mi := range g.symm.MainIndex {
		if local[mi] == nil {
			continue
		}
		g.meshes[j] = tessellate.Transform(local[mi], g.symm.Transforms[j])
		g.meshes[j].Name = g.Name()
		g.lines[j] = tessellate.TransformLines(lines[mi], g.symm.Transforms[j])
	}
}

// scaleBounds is the bounds of every geom that does not size itself from
// the model.
func (m *Model) scaleBounds() (sdf.Box3, bool) {
	var box sdf.Box3
	have := false
	for _, g := range m.nodes {
		if g.kind.ScaleSensitive || len(g.surfs) == 0 {
			continue
		}
		if !have {
			box, have = g.bbox, true
			continue
		}
		box = surf.Union(box, g.bbox)
	}
	return box, have
}

// ScaleBounds returns the model bounds that scale-sensitive kinds size
// themselves from.
func (m *Model) ScaleBounds() sdf.Box3 { return m.scaleBox }

func boxEqual(a, b sdf.Box3) bool {
	return parm.Equal(a.Min.X, b.Min.X) && parm.Equal(a.Min.Y, b.Min.Y) && parm.Equal(a.Min.Z, b.Min.Z) &&
		parm.Equal(a.Max.X, b.Max.X) && parm.Equal(a.Max.Y, b.Max.Y) && parm.Equal(a.Max.Z, b.Max.Z)
}

// refreshGlobalScale marks scale-sensitive geoms when the bounds they
// depend on moved. It reports whether anything was marked.
func (m *Model) refreshGlobalScale() bool {
	box, have := m.scaleBounds()
	if have == m.haveScale && (!have || boxEqual(box, m.scaleBox)) {
		return false
	}
	m.scaleBox, m.haveScale = box, have
	marked := false
	for _, g := range m.nodes {
		if g.kind.ScaleSensitive {
			m.MarkDirty(g.ID(), DirtySurface|DirtyGlobalScale)
			marked = true
		}
	}
	return marked
}

func (m *Model) updateVehicle() {
	var box sdf.Box3
	have := false
	for _, g := range m.nodes {
		if len(g.surfs) == 0 {
			continue
		}
		if !have {
			box, have = g.bbox, true
			continue
		}
		box = surf.Union(box, g.bbox)
	}
	v := m.Vehicle
	setBBox(&v.BBXLen, &v.BBYLen, &v.BBZLen, &v.BBXMin, &v.BBYMin, &v.BBZMin, box)
}
