// Package preset keeps named snapshots of parm values. A Group names a set
// of parms; each of its Settings stores one value per parm, in the
// group's parm order, and can be applied back in a single update.
package preset

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/chazu/spar/pkg/parm"
	"github.com/chazu/spar/pkg/xmldoc"
)

// ElemVarPresets is the document element holding every group.
const ElemVarPresets = "VarPresets"

var (
	ErrNotFound  = errors.New("preset: not found")
	ErrDuplicate = errors.New("preset: duplicate name")
	ErrEmptyName = errors.New("preset: empty name")
)

// Setting is one stored value vector.
type Setting struct {
	id   parm.ID
	name string
	vals []float64
}

func (s *Setting) ID() parm.ID  { return s.id }
func (s *Setting) Name() string { return s.name }

// Values returns a copy of the stored values in group parm order.
func (s *Setting) Values() []float64 { return append([]float64(nil), s.vals...) }

// Group is a named list of parms with its settings.
type Group struct {
	id       parm.ID
	name     string
	parmIDs  []parm.ID
	settings []*Setting
}

func (g *Group) ID() parm.ID  { return g.id }
func (g *Group) Name() string { return g.name }

// ParmIDs returns the member parms in insertion order.
func (g *Group) ParmIDs() []parm.ID { return append([]parm.ID(nil), g.parmIDs...) }

// Settings returns the settings in insertion order.
func (g *Group) Settings() []*Setting { return append([]*Setting(nil), g.settings...) }

// Setting returns the setting named name, or nil.
func (g *Group) Setting(name string) *Setting {
	for _, s := range g.settings {
		if s.name == name {
			return s
		}
	}
	return nil
}

func (g *Group) index(id parm.ID) int {
	for i, pid := range g.parmIDs {
		if pid == id {
			return i
		}
	}
	return -1
}

// Updater runs one update walk. *geom.Model satisfies it.
type Updater interface {
	Update(full bool) int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithUpdater makes Apply finish with one full walk of u.
func WithUpdater(u Updater) Option {
	return func(m *Manager) { m.up = u }
}

// Manager owns every preset group of a registry.
type Manager struct {
	reg    *parm.Registry
	log    *slog.Logger
	up     Updater
	groups []*Group
}

// NewManager returns an empty manager.
func NewManager(reg *parm.Registry, opts ...Option) *Manager {
	m := &Manager{reg: reg, log: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Groups returns the groups in creation order.
func (m *Manager) Groups() []*Group { return append([]*Group(nil), m.groups...) }

// Group returns the group named name, or nil.
func (m *Manager) Group(name string) *Group {
	for _, g := range m.groups {
		if g.name == name {
			return g
		}
	}
	return nil
}

func (m *Manager) find(name string) (*Group, error) {
	if g := m.Group(name); g != nil {
		return g, nil
	}
	return nil, fmt.Errorf("preset: group %s: %w", name, ErrNotFound)
}

// AddGroup creates an empty group.
func (m *Manager) AddGroup(name string) (*Group, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if m.Group(name) != nil {
		return nil, fmt.Errorf("preset: group %s: %w", name, ErrDuplicate)
	}
	g := &Group{id: m.reg.NewID(), name: name}
	m.groups = append(m.groups, g)
	return g, nil
}

// RemoveGroup deletes the group named name.
func (m *Manager) RemoveGroup(name string) error {
	for i, g := range m.groups {
		if g.name == name {
			m.groups = append(m.groups[:i:i], m.groups[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("preset: group %s: %w", name, ErrNotFound)
}

// AddParm appends parm id to the group. Every existing setting records the
// parm's current value for it.
func (m *Manager) AddParm(group string, id parm.ID) error {
	g, err := m.find(group)
	if err != nil {
		return err
	}
	p := m.reg.Parm(id)
	if p == nil {
		return fmt.Errorf("preset: parm %s: %w", id, ErrNotFound)
	}
	if g.index(id) >= 0 {
		return fmt.Errorf("preset: group %s: parm %s: %w", group, id, ErrDuplicate)
	}
	g.parmIDs = append(g.parmIDs, id)
	for _, s := range g.settings {
		s.vals = append(s.vals, p.Get())
	}
	return nil
}

// RemoveParm drops parm id and its column from every setting.
func (m *Manager) RemoveParm(group string, id parm.ID) error {
	g, err := m.find(group)
	if err != nil {
		return err
	}
	i := g.index(id)
	if i < 0 {
		return fmt.Errorf("preset: group %s: parm %s: %w", group, id, ErrNotFound)
	}
	g.dropColumn(i)
	return nil
}

func (g *Group) dropColumn(i int) {
	g.parmIDs = append(g.parmIDs[:i:i], g.parmIDs[i+1:]...)
	for _, s := range g.settings {
		if i < len(s.vals) {
			s.vals = append(s.vals[:i:i], s.vals[i+1:]...)
		}
	}
}

// SaveSetting stores the current values of the group's parms under name,
// creating the setting if needed.
func (m *Manager) SaveSetting(group, name string) (*Setting, error) {
	g, err := m.find(group)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, ErrEmptyName
	}
	s := g.Setting(name)
	if s == nil {
		s = &Setting{id: m.reg.NewID(), name: name}
		g.settings = append(g.settings, s)
	}
	s.vals = make([]float64, len(g.parmIDs))
	for i, id := range g.parmIDs {
		if p := m.reg.Parm(id); p != nil {
			s.vals[i] = p.Get()
		}
	}
	return s, nil
}

// RemoveSetting deletes a setting.
func (m *Manager) RemoveSetting(group, name string) error {
	g, err := m.find(group)
	if err != nil {
		return err
	}
	for i, s := range g.settings {
		if s.name == name {
			g.settings = append(g.settings[:i:i], g.settings[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("preset: setting %s/%s: %w", group, name, ErrNotFound)
}

func (m *Manager) setting(group, name string) (*Group, *Setting, error) {
	g, err := m.find(group)
	if err != nil {
		return nil, nil, err
	}
	s := g.Setting(name)
	if s == nil {
		return nil, nil, fmt.Errorf("preset: setting %s/%s: %w", group, name, ErrNotFound)
	}
	return g, s, nil
}

// Apply commits every stored value of the setting and then runs one full
// walk. Parms that no longer exist are skipped. It returns how many parms
// were written.
func (m *Manager) Apply(group, name string) (int, error) {
	g, s, err := m.setting(group, name)
	if err != nil {
		return 0, err
	}
	n := 0
	for i, id := range g.parmIDs {
		p := m.reg.Parm(id)
		if p == nil || i >= len(s.vals) {
			continue
		}
		p.Set(s.vals[i])
		n++
	}
	if m.up != nil {
		m.up.Update(true)
	}
	m.log.Debug("preset applied", "group", group, "setting", name, "parms", n)
	return n, nil
}

// Matches reports whether every parm of the group currently holds the
// setting's value.
func (m *Manager) Matches(group, name string) bool {
	g, s, err := m.setting(group, name)
	if err != nil {
		return false
	}
	for i, id := range g.parmIDs {
		p := m.reg.Parm(id)
		if p == nil || i >= len(s.vals) || !parm.Equal(p.Get(), s.vals[i]) {
			return false
		}
	}
	return true
}

// Prune removes parms that no longer exist from every group and returns
// how many went.
func (m *Manager) Prune() int {
	n := 0
	for _, g := range m.groups {
		for i := len(g.parmIDs) - 1; i >= 0; i-- {
			if m.reg.Parm(g.parmIDs[i]) == nil {
				g.dropColumn(i)
				n++
			}
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Encode appends the VarPresets element to parent.
func (m *Manager) Encode(parent *xmldoc.Node) *xmldoc.Node {
	n := parent.AddChild(ElemVarPresets)
	for _, g := range m.groups {
		e := n.AddChild("SettingGroup")
		e.AddText("ID", string(g.id))
		e.AddText("Name", g.name)
		for _, id := range g.parmIDs {
			e.AddChild("Parm").AddText("ID", string(id))
		}
		for _, s := range g.settings {
			se := e.AddChild("Setting")
			se.AddText("ID", string(s.id))
			se.AddText("Name", s.name)
			se.AddText("ParmVals", formatVals(s.vals))
		}
	}
	return n
}

func formatVals(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = xmldoc.FormatFloat(v)
	}
	return strings.Join(parts, ",")
}

func parseVals(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Decode replaces the groups with those in n, remapping ids through rm.
// Parms that do not resolve are dropped together with their stored
// values; settings whose value count does not match are padded or cut.
func (m *Manager) Decode(n *xmldoc.Node, rm *parm.Remapper) []string {
	if n == nil {
		return nil
	}
	m.groups = nil
	var warns []string
	for _, e := range n.ChildrenNamed("SettingGroup") {
		name := xmldoc.Value(e, "Name", "")
		if name == "" || m.Group(name) != nil {
			warns = append(warns, fmt.Sprintf("preset: skipped group %q", name))
			continue
		}
		g := &Group{id: m.decodeID(xmldoc.Value(e, "ID", ""), rm), name: name}

		var keep []bool
		for _, pe := range e.ChildrenNamed("Parm") {
			id := rm.Remap(parm.ID(xmldoc.Value(pe, "ID", "")))
			ok := id != "" && m.reg.Parm(id) != nil
			keep = append(keep, ok)
			if ok {
				g.parmIDs = append(g.parmIDs, id)
				continue
			}
			warns = append(warns, fmt.Sprintf("preset: group %s: dropped missing parm %s", name, id))
		}

		for _, se := range e.ChildrenNamed("Setting") {
			sname := xmldoc.Value(se, "Name", "")
			vals, err := parseVals(xmldoc.Value(se, "ParmVals", ""))
			if err != nil {
				warns = append(warns, fmt.Sprintf("preset: setting %s/%s: %v", name, sname, err))
				continue
			}
			s := &Setting{id: m.decodeID(xmldoc.Value(se, "ID", ""), rm), name: sname}
			for i, ok := range keep {
				if !ok {
					continue
				}
				v := 0.0
				if i < len(vals) {
					v = vals[i]
				}
				s.vals = append(s.vals, v)
			}
			if len(vals) != len(keep) {
				warns = append(warns, fmt.Sprintf("preset: setting %s/%s: %d values for %d parms", name, sname, len(vals), len(keep)))
			}
			g.settings = append(g.settings, s)
		}
		m.groups = append(m.groups, g)
	}
	return warns
}

func (m *Manager) decodeID(s string, rm *parm.Remapper) parm.ID {
	if id := rm.Remap(parm.ID(s)); id != "" {
		return id
	}
	return m.reg.NewID()
}
