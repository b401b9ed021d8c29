package parm

import (
	"fmt"

	"github.com/chazu/spar/pkg/xmldoc"
)

// Container owns an ordered, grouped set of parms and has a single upward
// notification hook.
//
// Concrete containers embed Base and call Base.Init with themselves as self,
// so that parm notifications reach the outermost type's ParmChanged.
type Container interface {
	ID() ID
	Name() string
	Registry() *Registry
	ParmChanged(p *Parm, kind ChangeKind)

	base() *Base
}

// Attribute is a free-form name/value pair attached to a container.
type Attribute struct {
	Name  string
	Value string
}

// Base is the embeddable Container implementation.
type Base struct {
	reg      *Registry
	self     Container
	id       ID
	name     string
	elem     string
	parentID ID
	parmIDs  []ID
	attrs    []Attribute
}

// Init registers the container under a fresh id. self must be the value
// that embeds b.
func (b *Base) Init(reg *Registry, self Container, name string) {
	b.reg = reg
	b.self = self
	b.name = name
	b.elem = "ParmContainer"
	b.id = reg.NewID()
	reg.addContainer(self)
}

func (b *Base) base() *Base { return b }

// ID returns the container id.
func (b *Base) ID() ID { return b.id }

// Name returns the display name.
func (b *Base) Name() string { return b.name }

// SetName changes the display name.
func (b *Base) SetName(name string) { b.name = name }

// Registry returns the registry the container is registered with.
func (b *Base) Registry() *Registry { return b.reg }

// ParentContainerID returns the container notifications are forwarded to.
func (b *Base) ParentContainerID() ID { return b.parentID }

// SetParentContainer sets the notification parent. An empty id detaches.
func (b *Base) SetParentContainer(id ID) { b.parentID = id }

// SetElementName changes the element name used by Encode.
func (b *Base) SetElementName(name string) { b.elem = name }

// ParmChanged forwards the notification to the parent container, if any.
func (b *Base) ParmChanged(p *Parm, kind ChangeKind) {
	if b.parentID == "" {
		return
	}
	if parent := b.reg.Container(b.parentID); parent != nil {
		parent.ParmChanged(p, kind)
	}
}

func (b *Base) addParmID(id ID) {
	b.parmIDs = append(b.parmIDs, id)
}

// Parms returns the owned parm ids in declaration order.
func (b *Base) Parms() []ID {
	return append([]ID(nil), b.parmIDs...)
}

// RemoveParm drops the parm from the container and frees its id.
func (b *Base) RemoveParm(id ID) {
	for i, pid := range b.parmIDs {
		if pid == id {
			b.parmIDs = append(b.parmIDs[:i], b.parmIDs[i+1:]...)
			b.reg.removeParm(id)
			return
		}
	}
}

func (b *Base) each(fn func(p *Parm) bool) {
	for _, id := range b.parmIDs {
		p := b.reg.Parm(id)
		if p == nil {
			continue
		}
		if !fn(p) {
			return
		}
	}
}

// FindParm returns the first parm named name, or nil.
func (b *Base) FindParm(name string) *Parm {
	var found *Parm
	b.each(func(p *Parm) bool {
		if p.name == name {
			found = p
			return false
		}
		return true
	})
	return found
}

// FindParmByIndex returns the idx-th parm of group, or nil.
func (b *Base) FindParmByIndex(group string, idx int) *Parm {
	var found *Parm
	n := 0
	b.each(func(p *Parm) bool {
		if p.group != group {
			return true
		}
		if n == idx {
			found = p
			return false
		}
		n++
		return true
	})
	return found
}

// FindParmInGroup returns the parm named name in group, or nil.
func (b *Base) FindParmInGroup(group, name string) *Parm {
	var found *Parm
	b.each(func(p *Parm) bool {
		if p.group == group && p.name == name {
			found = p
			return false
		}
		return true
	})
	return found
}

// GroupNames returns the distinct group names in order of first appearance.
func (b *Base) GroupNames() []string {
	seen := make(map[string]bool)
	var out []string
	b.each(func(p *Parm) bool {
		if !seen[p.group] {
			seen[p.group] = true
			out = append(out, p.group)
		}
		return true
	})
	return out
}

// GroupParms returns the parms of group in declaration order.
func (b *Base) GroupParms(group string) []*Parm {
	var out []*Parm
	b.each(func(p *Parm) bool {
		if p.group == group {
			out = append(out, p)
		}
		return true
	})
	return out
}

// SetAttribute attaches or replaces a metadata attribute.
func (b *Base) SetAttribute(name, value string) {
	for i := range b.attrs {
		if b.attrs[i].Name == name {
			b.attrs[i].Value = value
			return
		}
	}
	b.attrs = append(b.attrs, Attribute{Name: name, Value: value})
}

// Attribute returns a metadata attribute.
func (b *Base) Attribute(name string) (string, bool) {
	for _, a := range b.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Attributes returns a copy of the metadata collection.
func (b *Base) Attributes() []Attribute {
	return append([]Attribute(nil), b.attrs...)
}

// Destroy unregisters every owned parm and the container itself.
func (b *Base) Destroy() {
	for _, id := range b.parmIDs {
		b.reg.removeParm(id)
	}
	b.parmIDs = nil
	b.reg.removeContainer(b.id)
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Encode appends the container element to parent: id, name, then one child
// per group holding that group's parms.
func (b *Base) Encode(parent *xmldoc.Node) *xmldoc.Node {
	n := parent.AddChild(b.elem)
	n.AddText("ID", string(b.id))
	n.AddText("Name", b.name)
	for _, g := range b.GroupNames() {
		gn := n.AddChild(g)
		for _, p := range b.GroupParms(g) {
			p.Encode(gn)
		}
	}
	if len(b.attrs) > 0 {
		an := n.AddChild("Attributes")
		for _, a := range b.attrs {
			e := an.AddChild("Attribute")
			e.SetAttr("Name", a.Name)
			e.SetAttr("Value", a.Value)
		}
	}
	return n
}

// Decode reads a container element written by Encode. Parms missing from n
// keep their current values and extra elements are ignored. The returned
// warnings describe what was defaulted.
func (b *Base) Decode(n *xmldoc.Node, rm *Remapper) []string {
	var warns []string
	if n == nil {
		return []string{fmt.Sprintf("%s: container element missing", b.name)}
	}

	if docID := ID(xmldoc.Value(n, "ID", "")); docID != "" {
		if id := rm.Remap(docID); id != b.id {
			if err := b.reg.ChangeContainerID(b.self, id); err != nil {
				warns = append(warns, fmt.Sprintf("%s: %v", b.name, err))
			}
		}
	}
	b.name = xmldoc.Value(n, "Name", b.name)

	b.each(func(p *Parm) bool {
		e := n.Child(p.group).Child(p.name)
		if e == nil {
			warns = append(warns, fmt.Sprintf("%s: parm %s/%s missing, default kept", b.name, p.group, p.name))
			return true
		}
		if err := p.Decode(e, rm); err != nil {
			warns = append(warns, fmt.Sprintf("%s: %v", b.name, err))
		}
		return true
	})

	for _, e := range n.Child("Attributes").ChildrenNamed("Attribute") {
		b.SetAttribute(xmldoc.AttrValue(e, "Name", ""), xmldoc.AttrValue(e, "Value", ""))
	}
	return warns
}

// CopyVals copies values from every parm of other whose group and name
// match a parm of b. Identities are unchanged and no notifications fire.
func (b *Base) CopyVals(other Container) {
	ob := other.base()
	ob.each(func(src *Parm) bool {
		if dst := b.FindParmInGroup(src.group, src.name); dst != nil {
			dst.load(src.val)
		}
		return true
	})
}

// SwapIDs exchanges the identities of b and other in the registry.
func (b *Base) SwapIDs(other Container) {
	ob := other.base()
	b.reg.removeContainer(b.id)
	b.reg.removeContainer(ob.id)
	b.id, ob.id = ob.id, b.id
	b.reg.addContainer(b.self)
	b.reg.addContainer(ob.self)
}
