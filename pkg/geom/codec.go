package geom

import (
	"fmt"

	"github.com/chazu/spar/pkg/parm"
	"github.com/chazu/spar/pkg/xmldoc"
)

// DocVersion is written to the Version attribute of documents.
const DocVersion = 1

// Element names of the document layout.
const (
	ElemRoot     = "Spar"
	ElemGeoms    = "Geoms"
	ElemGeom     = "Geom"
	elemGeomBase = "GeomBase"
)

func idText(id parm.ID) string {
	if id == "" {
		return string(parm.None)
	}
	return string(id)
}

// encodeGeom appends one Geom element.
func (g *Geom) encode(parent *xmldoc.Node) *xmldoc.Node {
	n := parent.AddChild(ElemGeom)
	g.Base.Encode(n)
	b := n.AddChild(elemGeomBase)
	b.AddText("TypeName", g.kind.Name)
	b.AddInt("TypeID", g.kind.ID)
	fixed := 0
	if g.kind.Fixed {
		fixed = 1
	}
	b.AddInt("TypeFixed", fixed)
	b.AddText("ParentID", idText(g.parentID))
	cl := b.AddChild("Child_List")
	for _, c := range g.childIDs {
		cl.AddChild("Child").AddText("ID", string(c))
	}
	sl := b.AddChild("Step_Child_List")
	for _, c := range g.stepChildIDs {
		sl.AddChild("Step_Child").AddText("ID", string(c))
	}
	return n
}

// subtree returns ids and their descendants, parents first, without
// duplicates.
func (m *Model) subtree(ids []parm.ID) []parm.ID {
	seen := make(map[parm.ID]bool)
	var out []parm.ID
	var visit func(id parm.ID)
	visit = func(id parm.ID) {
		g := m.nodes[id]
		if g == nil || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
		for _, c := range g.childIDs {
			visit(c)
		}
	}
	for _, id := range ids {
		visit(id)
	}
	return out
}

// EncodeGeoms appends a Geoms element holding ids and their subtrees.
func (m *Model) EncodeGeoms(parent *xmldoc.Node, ids []parm.ID) *xmldoc.Node {
	n := parent.AddChild(ElemGeoms)
	for _, id := range m.subtree(ids) {
		m.nodes[id].encode(n)
	}
	return n
}

// Encode appends the Vehicle container and every node to parent.
func (m *Model) Encode(parent *xmldoc.Node) {
	m.Vehicle.Encode(parent)
	m.EncodeGeoms(parent, m.top)
}

// EncodeNode returns a standalone document holding id and its subtree.
func (m *Model) EncodeNode(id parm.ID) (*xmldoc.Node, error) {
	if m.nodes[id] == nil {
		return nil, fmt.Errorf("geom: encode %s: %w", id, ErrNotFound)
	}
	root := newDocument()
	m.EncodeGeoms(root, []parm.ID{id})
	return root, nil
}

func newDocument() *xmldoc.Node {
	root := xmldoc.New(ElemRoot)
	root.SetAttr("Version", fmt.Sprint(DocVersion))
	return root
}

type decoded struct {
	g        *Geom
	parentID parm.ID
	children []parm.ID
	steps    []parm.ID
}

// Decode reads the Geoms element of doc (either a document root or the
// Geoms element itself) into the model, remapping ids through rm (nil
// keeps document ids). References that do not resolve are dropped. It
// returns the ids of the decoded nodes whose parent is outside the
// document, and warnings for everything that was defaulted or dropped.
func (m *Model) Decode(doc *xmldoc.Node, rm *parm.Remapper) ([]parm.ID, []string) {
	var warns []string
	geoms := doc
	if doc != nil && doc.Name != ElemGeoms {
		geoms = doc.Child(ElemGeoms)
		if v := doc.Child("Vehicle"); v != nil {
			warns = append(warns, m.Vehicle.Decode(v, rm)...)
		}
	}

	var nodes []decoded
	for _, e := range geoms.ChildrenNamed(ElemGeom) {
		base := e.Child(elemGeomBase)
		typeName := xmldoc.Value(base, "TypeName", "")
		k := m.cat.Lookup(typeName)
		if k == nil {
			k = m.cat.LookupID(xmldoc.Value(base, "TypeID", -1))
		}
		if k == nil {
			warns = append(warns, fmt.Sprintf("geom type %q unknown, node skipped", typeName))
			continue
		}
		g := newGeom(m, k, k.Name)
		warns = append(warns, g.Base.Decode(e.Child("ParmContainer"), rm)...)
		d := decoded{g: g, parentID: rm.Remap(parm.ID(xmldoc.Value(base, "ParentID", "")))}
		for _, c := range base.Child("Child_List").ChildrenNamed("Child") {
			d.children = append(d.children, rm.Remap(parm.ID(xmldoc.Value(c, "ID", ""))))
		}
		for _, c := range base.Child("Step_Child_List").ChildrenNamed("Step_Child") {
			d.steps = append(d.steps, rm.Remap(parm.ID(xmldoc.Value(c, "ID", ""))))
		}
		nodes = append(nodes, d)
		m.nodes[g.ID()] = g
		m.seq[g.ID()] = m.next
		m.next++
	}

	// Link parents first so that child lists can be checked against them.
	inDoc := make(map[parm.ID]bool, len(nodes))
	for _, d := range nodes {
		inDoc[d.g.ID()] = true
	}
	var roots []parm.ID
	for _, d := range nodes {
		g := d.g
		switch {
		case d.parentID == "":
		case d.parentID == g.ID():
			warns = append(warns, fmt.Sprintf("%s: self parent dropped", g.Name()))
			d.parentID = ""
		case m.nodes[d.parentID] == nil:
			warns = append(warns, fmt.Sprintf("%s: parent %s not found, moved to top level", g.Name(), d.parentID))
			d.parentID = ""
		}
		g.parentID = d.parentID
		g.SetParentContainer(d.parentID)
		if !inDoc[d.parentID] {
			roots = append(roots, g.ID())
		}
	}
	for _, d := range nodes {
		for _, c := range d.children {
			if cg := m.nodes[c]; cg != nil && cg.parentID == d.g.ID() && !containsID(d.g.childIDs, c) {
				d.g.childIDs = append(d.g.childIDs, c)
			}
		}
		for _, c := range d.steps {
			if m.nodes[c] == nil || containsID(d.g.stepChildIDs, c) {
				warns = append(warns, fmt.Sprintf("%s: step child %s dropped", d.g.Name(), c))
				continue
			}
			d.g.stepChildIDs = append(d.g.stepChildIDs, c)
		}
	}
	for _, d := range nodes {
		g := d.g
		if g.parentID == "" {
			m.top = append(m.top, g.ID())
			continue
		}
		p := m.nodes[g.parentID]
		if !containsID(p.childIDs, g.ID()) {
			p.childIDs = append(p.childIDs, g.ID())
		}
	}
	for _, d := range nodes {
		if m.inCycle(d.g) {
			warns = append(warns, fmt.Sprintf("%s: parent chain is cyclic, moved to top level", d.g.Name()))
			m.detach(d.g)
			m.attach(d.g, "", "")
			roots = append(roots, d.g.ID())
		}
	}
	m.dropStepCycles(&warns)

	for _, d := range nodes {
		d.g.flags = DirtyAll
	}
	if len(nodes) > 0 {
		m.pending = true
	}
	return roots, warns
}

func (m *Model) inCycle(g *Geom) bool {
	seen := map[parm.ID]bool{g.ID(): true}
	for p := g.parent(); p != nil; p = p.parent() {
		if seen[p.ID()] {
			return true
		}
		seen[p.ID()] = true
	}
	return false
}

// dropStepCycles removes step edges that close a cycle.
func (m *Model) dropStepCycles(warns *[]string) {
	for _, id := range m.sortedIDs() {
		g := m.nodes[id]
		for _, c := range g.StepChildren() {
			g.removeStepChildID(c)
			if m.reachable(c, id) {
				*warns = append(*warns, fmt.Sprintf("%s: step child %s would form a cycle, dropped", g.Name(), c))
				continue
			}
			g.stepChildIDs = append(g.stepChildIDs, c)
		}
	}
}

// Copy returns a clipboard document holding ids and their subtrees.
// References to nodes outside the copied set are left out.
func (m *Model) Copy(ids ...parm.ID) *xmldoc.Node {
	root := newDocument()
	copied := make(map[parm.ID]bool)
	for _, id := range m.subtree(ids) {
		copied[id] = true
	}
	geoms := m.EncodeGeoms(root, ids)
	for _, e := range geoms.ChildrenNamed(ElemGeom) {
		base := e.Child(elemGeomBase)
		if p := base.Child("ParentID"); p != nil && !copied[parm.ID(p.Text)] {
			p.Text = string(parm.None)
		}
		if sl := base.Child("Step_Child_List"); sl != nil {
			kept := sl.Children[:0]
			for _, c := range sl.Children {
				if copied[parm.ID(xmldoc.Value(c, "ID", ""))] {
					kept = append(kept, c)
				}
			}
			sl.Children = kept
		}
	}
	return root
}

// Cut copies ids to a clipboard and deletes them with their subtrees.
func (m *Model) Cut(ids ...parm.ID) *xmldoc.Node {
	clip := m.Copy(ids...)
	m.Delete(m.subtree(ids)...)
	return clip
}

// Paste decodes a clipboard under parentID (empty for the top level) with
// every id replaced by a fresh one. salt must differ between pastes of the
// same clipboard. It returns the pasted roots.
func (m *Model) Paste(clip *xmldoc.Node, parentID parm.ID, salt string) ([]parm.ID, []string, error) {
	if parentID != "" && m.nodes[parentID] == nil {
		return nil, nil, fmt.Errorf("geom: paste under %s: %w", parentID, ErrNotFound)
	}
	rm := m.reg.NewRemapper(salt)
	roots, warns := m.Decode(clip, rm)
	if parentID != "" {
		for _, id := range roots {
			g := m.nodes[id]
			m.detach(g)
			m.attach(g, parentID, "")
		}
	}
	for _, id := range roots {
		m.MarkDirty(id, DirtyAll)
	}
	return roots, warns, nil
}

// ChangeType rebuilds id as a node of typeName. Parm values with matching
// group and name carry over, and the node keeps its id and relationships.
func (m *Model) ChangeType(id parm.ID, typeName string) (*Geom, error) {
	old := m.nodes[id]
	if old == nil {
		return nil, fmt.Errorf("geom: change type of %s: %w", id, ErrNotFound)
	}
	k := m.cat.Lookup(typeName)
	if k == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}
	ng := newGeom(m, k, old.Name())
	ng.CopyVals(old)
	ng.SwapIDs(old)

	ng.parentID = old.parentID
	ng.SetParentContainer(old.parentID)
	ng.childIDs = old.childIDs
	ng.stepChildIDs = old.stepChildIDs
	for _, a := range old.Attributes() {
		ng.SetAttribute(a.Name, a.Value)
	}
	m.nodes[id] = ng
	old.Destroy()

	m.MarkDirty(id, DirtyAll)
	m.pending = true
	return ng, nil
}
