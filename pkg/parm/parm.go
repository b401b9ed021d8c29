package parm

import (
	"fmt"
	"math"

	"github.com/chazu/spar/pkg/xmldoc"
)

// Tolerance is the relative tolerance under which a commit is considered to
// leave the value unchanged.
const Tolerance = 1e-12

// ChangeKind tags a commit with the path the value arrived through.
type ChangeKind int

const (
	// ChangeSet is a programmatic edit. Listeners defer recomputation to the
	// next batched update.
	ChangeSet ChangeKind = iota
	// ChangeDevice is a direct interactive edit that wants an immediate update.
	ChangeDevice
	// ChangeLink is a value pushed from another parm through a link.
	ChangeLink
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeSet:
		return "set"
	case ChangeDevice:
		return "device"
	case ChangeLink:
		return "link"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// Parm is a named, bounded scalar owned by exactly one Container.
type Parm struct {
	id       ID
	name     string
	group    string
	descript string
	owner    Container

	val     float64
	lastVal float64
	lower   float64
	upper   float64

	active          bool
	linkable        bool
	linkContainerID ID

	// rule adjusts an already clamped value for a variant. ok=false rejects
	// the commit.
	rule func(v float64) (float64, bool)
}

// Init binds p to its owning container and registers it. It must be called
// exactly once, while the container is being constructed.
func (p *Parm) Init(name, group string, owner Container, val, lower, upper float64) {
	if p.owner != nil {
		panic(fmt.Sprintf("parm: %s/%s initialized twice", group, name))
	}
	p.name = name
	p.group = group
	p.owner = owner
	p.lower = lower
	p.upper = upper
	p.active = true
	p.linkable = true
	p.val = clamp(val, lower, upper)
	p.lastVal = p.val

	reg := owner.Registry()
	p.id = reg.NewID()
	reg.addParm(p)
	owner.base().addParmID(p.id)
}

// ID returns the registry id.
func (p *Parm) ID() ID { return p.id }

// Name returns the parm name, unique within its group.
func (p *Parm) Name() string { return p.name }

// Group returns the display group.
func (p *Parm) Group() string { return p.group }

// Description returns the help text.
func (p *Parm) Description() string { return p.descript }

// SetDescription replaces the help text.
func (p *Parm) SetDescription(s string) { p.descript = s }

// Container returns the owner.
func (p *Parm) Container() Container { return p.owner }

// Get returns the current value.
func (p *Parm) Get() float64 { return p.val }

// GetLastVal returns the value before the most recent commit.
func (p *Parm) GetLastVal() float64 { return p.lastVal }

// Lower returns the lower limit.
func (p *Parm) Lower() float64 { return p.lower }

// Upper returns the upper limit.
func (p *Parm) Upper() float64 { return p.upper }

// IsActive reports whether the parm is shown and editable.
func (p *Parm) IsActive() bool { return p.active }

// Activate marks the parm active.
func (p *Parm) Activate() { p.active = true }

// Deactivate marks the parm inactive.
func (p *Parm) Deactivate() { p.active = false }

// IsLinkable reports whether links and presets may target the parm.
func (p *Parm) IsLinkable() bool { return p.linkable }

// SetLinkable sets whether links and presets may target the parm.
func (p *Parm) SetLinkable(b bool) { p.linkable = b }

// LinkContainerID returns the id of the container driving the parm, if any.
func (p *Parm) LinkContainerID() ID { return p.linkContainerID }

// IsLinked reports whether a link container drives the parm.
func (p *Parm) IsLinked() bool { return p.linkContainerID != "" }

// SetLinkContainer records the container driving the parm. Empty clears it.
func (p *Parm) SetLinkContainer(id ID) { p.linkContainerID = id }

// ContainerID returns the owner id.
func (p *Parm) ContainerID() ID { return p.owner.ID() }

// Set commits v as a programmatic edit and returns the committed value.
func (p *Parm) Set(v float64) float64 {
	return p.commit(v, ChangeSet)
}

// SetFromLink commits a value pushed through a link.
func (p *Parm) SetFromLink(v float64) float64 {
	return p.commit(v, ChangeLink)
}

// SetFromDevice commits an interactive edit.
func (p *Parm) SetFromDevice(v float64) float64 {
	return p.commit(v, ChangeDevice)
}

// SetLowerLimit changes the lower bound. The current value is clamped
// silently.
func (p *Parm) SetLowerLimit(lower float64) {
	p.lower = lower
	if p.upper < lower {
		p.upper = lower
	}
	p.val = clamp(p.val, p.lower, p.upper)
}

// SetUpperLimit changes the upper bound. The current value is clamped
// silently.
func (p *Parm) SetUpperLimit(upper float64) {
	p.upper = upper
	if p.lower > upper {
		p.lower = upper
	}
	p.val = clamp(p.val, p.lower, p.upper)
}

// SetLowerUpperLimits changes both bounds at once.
func (p *Parm) SetLowerUpperLimits(lower, upper float64) {
	if lower > upper {
		lower, upper = upper, lower
	}
	p.lower, p.upper = lower, upper
	p.val = clamp(p.val, lower, upper)
}

// Constrain returns the value a commit of v would store, without storing it.
func (p *Parm) Constrain(v float64) (float64, bool) {
	if math.IsNaN(v) {
		return p.val, false
	}
	v = clamp(v, p.lower, p.upper)
	if p.rule != nil {
		return p.rule(v)
	}
	return v, true
}

func (p *Parm) commit(v float64, kind ChangeKind) float64 {
	nv, ok := p.Constrain(v)
	if !ok || Equal(nv, p.val) {
		return p.val
	}
	p.lastVal = p.val
	p.val = nv

	if p.owner == nil {
		return p.val
	}
	p.owner.Registry().notify(p, kind)
	p.owner.ParmChanged(p, kind)
	return p.val
}

// load stores v without notification. Used by decode and CopyVals.
func (p *Parm) load(v float64) {
	if nv, ok := p.Constrain(v); ok {
		p.val = nv
	}
	p.lastVal = p.val
}

// Equal reports whether a and b are equal within Tolerance.
func Equal(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= Tolerance*scale
}

func clamp(v, lower, upper float64) float64 {
	if v < lower {
		return lower
	}
	if v > upper {
		return upper
	}
	return v
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Encode appends p as an element named after the parm.
func (p *Parm) Encode(parent *xmldoc.Node) *xmldoc.Node {
	n := parent.AddChild(p.name)
	n.SetAttr("ID", string(p.id))
	n.SetFloatAttr("Value", p.val)
	n.SetFloatAttr("Min", p.lower)
	n.SetFloatAttr("Max", p.upper)
	return n
}

// Decode reads bounds and value from n. The document id is adopted through
// rm when it does not collide with a live parm; a collision keeps the
// current id and is reported.
func (p *Parm) Decode(n *xmldoc.Node, rm *Remapper) error {
	if n == nil {
		return nil
	}
	lower := xmldoc.AttrValue(n, "Min", p.lower)
	upper := xmldoc.AttrValue(n, "Max", p.upper)
	if lower <= upper {
		p.lower, p.upper = lower, upper
	}
	p.load(xmldoc.AttrValue(n, "Value", p.val))

	docID := ID(xmldoc.AttrValue(n, "ID", ""))
	if docID == "" {
		return nil
	}
	id := rm.Remap(docID)
	if id == p.id {
		return nil
	}
	if err := p.owner.Registry().ChangeParmID(p, id); err != nil {
		return fmt.Errorf("parm %s: %w", p.name, err)
	}
	return nil
}
