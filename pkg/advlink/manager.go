package advlink

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chazu/spar/pkg/parm"
	"github.com/chazu/spar/pkg/xmldoc"
)

// ElemAdvLinkMgr is the document element holding every advanced link.
const ElemAdvLinkMgr = "AdvLinkMgr"

// Sentinel errors.
var (
	ErrNotFound  = errors.New("advlink: not found")
	ErrDuplicate = errors.New("advlink: duplicate name")
	ErrBadName   = errors.New("advlink: invalid variable name")
)

// Outcomes reported to the evaluation hook.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultTimeout = "timeout"
)

// Var binds a script variable to a parm.
type Var struct {
	Name   string
	ParmID parm.ID
}

// AdvLink is one scripted link.
type AdvLink struct {
	name    string
	script  string
	inputs  []Var
	outputs []Var

	// Errors from the most recent evaluation.
	LastErrors []EvalError
}

// Name returns the link name.
func (l *AdvLink) Name() string { return l.name }

// Script returns the source.
func (l *AdvLink) Script() string { return l.script }

// Inputs returns the input bindings.
func (l *AdvLink) Inputs() []Var { return append([]Var(nil), l.inputs...) }

// Outputs returns the output bindings.
func (l *AdvLink) Outputs() []Var { return append([]Var(nil), l.outputs...) }

func (l *AdvLink) hasVar(name string) bool {
	for _, v := range l.inputs {
		if v.Name == name {
			return true
		}
	}
	for _, v := range l.outputs {
		if v.Name == name {
			return true
		}
	}
	return false
}

func (l *AdvLink) isInput(id parm.ID) bool {
	for _, v := range l.inputs {
		if v.ParmID == id {
			return true
		}
	}
	return false
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithTimeout bounds each evaluation.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// WithEvalHook installs fn, called after every evaluation with its outcome
// (ResultOK, ResultError or ResultTimeout) and duration.
func WithEvalHook(fn func(result string, elapsed time.Duration)) Option {
	return func(m *Manager) { m.hook = fn }
}

// Manager owns the advanced links of a registry and re-evaluates them when
// their inputs change.
type Manager struct {
	reg     *parm.Registry
	log     *slog.Logger
	engine  *Engine
	timeout time.Duration
	hook    func(string, time.Duration)
	cancel  func()

	links   []*AdvLink
	running map[string]bool
}

// NewManager subscribes to reg and returns an empty manager.
func NewManager(reg *parm.Registry, opts ...Option) *Manager {
	m := &Manager{
		reg:     reg,
		log:     slog.New(slog.DiscardHandler),
		running: make(map[string]bool),
	}
	for _, o := range opts {
		o(m)
	}
	m.engine = NewEngine(m.timeout)
	m.cancel = reg.Subscribe(m.parmChanged)
	return m
}

// Close unsubscribes from the registry.
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// Engine returns the evaluation engine.
func (m *Manager) Engine() *Engine { return m.engine }

// Links returns the links in creation order.
func (m *Manager) Links() []*AdvLink { return append([]*AdvLink(nil), m.links...) }

// Get returns the link named name, or nil.
func (m *Manager) Get(name string) *AdvLink {
	for _, l := range m.links {
		if l.name == name {
			return l
		}
	}
	return nil
}

// Add creates an empty link.
func (m *Manager) Add(name string) (*AdvLink, error) {
	if name == "" {
		return nil, fmt.Errorf("advlink: empty name: %w", ErrBadName)
	}
	if m.Get(name) != nil {
		return nil, fmt.Errorf("advlink %s: %w", name, ErrDuplicate)
	}
	l := &AdvLink{name: name}
	m.links = append(m.links, l)
	return l, nil
}

// Remove deletes the link named name.
func (m *Manager) Remove(name string) error {
	for i, l := range m.links {
		if l.name == name {
			m.links = append(m.links[:i:i], m.links[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("advlink %s: %w", name, ErrNotFound)
}

// IsInputParm reports whether any link reads id.
func (m *Manager) IsInputParm(id parm.ID) bool {
	for _, l := range m.links {
		if l.isInput(id) {
			return true
		}
	}
	return false
}

// AddInput binds variable name of l to parm id.
func (m *Manager) AddInput(l *AdvLink, id parm.ID, name string) error {
	v, err := m.checkVar(l, id, name)
	if err != nil {
		return err
	}
	l.inputs = append(l.inputs, v)
	return nil
}

// AddOutput binds variable name of l to parm id. The script must define
// it.
func (m *Manager) AddOutput(l *AdvLink, id parm.ID, name string) error {
	v, err := m.checkVar(l, id, name)
	if err != nil {
		return err
	}
	l.outputs = append(l.outputs, v)
	return nil
}

func (m *Manager) checkVar(l *AdvLink, id parm.ID, name string) (Var, error) {
	if !ValidName(name) {
		return Var{}, fmt.Errorf("advlink %s: %q: %w", l.name, name, ErrBadName)
	}
	if l.hasVar(name) {
		return Var{}, fmt.Errorf("advlink %s: variable %s: %w", l.name, name, ErrDuplicate)
	}
	if m.reg.Parm(id) == nil {
		return Var{}, fmt.Errorf("advlink %s: parm %s: %w", l.name, id, ErrNotFound)
	}
	return Var{Name: name, ParmID: id}, nil
}

// SetScript replaces the source of l and evaluates it once.
func (m *Manager) SetScript(l *AdvLink, src string) ([]EvalError, error) {
	l.script = src
	return m.Update(l)
}

// Update evaluates l now and commits its outputs through SetFromLink.
// Script errors are returned and kept in LastErrors; parms are left
// untouched when any occur.
func (m *Manager) Update(l *AdvLink) ([]EvalError, error) {
	if m.running[l.name] {
		return nil, nil
	}
	inputs := make([]Binding, 0, len(l.inputs))
	for _, v := range l.inputs {
		p := m.reg.Parm(v.ParmID)
		if p == nil {
			return nil, fmt.Errorf("advlink %s: input %s: %w", l.name, v.Name, ErrNotFound)
		}
		inputs = append(inputs, Binding{Name: v.Name, Value: p.Get()})
	}
	names := make([]string, len(l.outputs))
	for i, v := range l.outputs {
		names[i] = v.Name
	}

	start := time.Now()
	out, evalErrs, err := m.engine.Evaluate(l.script, inputs, names)
	elapsed := time.Since(start)
	switch {
	case errors.Is(err, ErrTimeout):
		m.report(ResultTimeout, elapsed)
	case err != nil || len(evalErrs) > 0:
		m.report(ResultError, elapsed)
	default:
		m.report(ResultOK, elapsed)
	}
	if err != nil {
		m.log.Warn("advanced link failed", "link", l.name, "err", err)
		return nil, fmt.Errorf("advlink %s: %w", l.name, err)
	}
	l.LastErrors = evalErrs
	if len(evalErrs) > 0 {
		m.log.Warn("advanced link script error", "link", l.name, "errors", len(evalErrs), "first", evalErrs[0].Error())
		return evalErrs, nil
	}

	m.running[l.name] = true
	defer delete(m.running, l.name)
	for _, v := range l.outputs {
		if p := m.reg.Parm(v.ParmID); p != nil {
			p.SetFromLink(out[v.Name])
		}
	}
	return nil, nil
}

func (m *Manager) report(result string, elapsed time.Duration) {
	if m.hook != nil {
		m.hook(result, elapsed)
	}
}

func (m *Manager) parmChanged(p *parm.Parm, kind parm.ChangeKind) {
	for _, l := range m.Links() {
		if m.running[l.name] || !l.isInput(p.ID()) {
			continue
		}
		if _, err := m.Update(l); err != nil {
			m.log.Warn("advanced link update", "link", l.name, "err", err)
		}
	}
}

// Prune removes bindings whose parms no longer exist and returns how many
// went.
func (m *Manager) Prune() int {
	n := 0
	keep := func(vs []Var) []Var {
		out := vs[:0]
		for _, v := range vs {
			if m.reg.Parm(v.ParmID) != nil {
				out = append(out, v)
				continue
			}
			n++
		}
		return out
	}
	for _, l := range m.links {
		l.inputs = keep(l.inputs)
		l.outputs = keep(l.outputs)
	}
	return n
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Encode appends the AdvLinkMgr element to parent.
func (m *Manager) Encode(parent *xmldoc.Node) *xmldoc.Node {
	n := parent.AddChild(ElemAdvLinkMgr)
	for _, l := range m.links {
		e := n.AddChild("AdvLink")
		e.SetAttr("Name", l.name)
		e.AddText("Script", l.script)
		encodeVars(e.AddChild("Inputs"), l.inputs)
		encodeVars(e.AddChild("Outputs"), l.outputs)
	}
	return n
}

func encodeVars(n *xmldoc.Node, vs []Var) {
	for _, v := range vs {
		e := n.AddChild("Var")
		e.SetAttr("Name", v.Name)
		e.SetAttr("ParmID", string(v.ParmID))
	}
}

// Decode replaces the links with those in n. Parm references pass
// through rm; bindings to missing parms are dropped with a warning.
// Scripts are not evaluated.
func (m *Manager) Decode(n *xmldoc.Node, rm *parm.Remapper) []string {
	if n == nil {
		return nil
	}
	m.links = nil
	var warns []string
	for _, e := range n.ChildrenNamed("AdvLink") {
		name := xmldoc.AttrValue(e, "Name", "")
		l, err := m.Add(name)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		l.script = xmldoc.Value(e, "Script", "")
		for _, v := range e.Child("Inputs").ChildrenNamed("Var") {
			if err := m.AddInput(l, rm.Remap(parm.ID(xmldoc.AttrValue(v, "ParmID", ""))), xmldoc.AttrValue(v, "Name", "")); err != nil {
				warns = append(warns, err.Error())
			}
		}
		for _, v := range e.Child("Outputs").ChildrenNamed("Var") {
			if err := m.AddOutput(l, rm.Remap(parm.ID(xmldoc.AttrValue(v, "ParmID", ""))), xmldoc.AttrValue(v, "Name", "")); err != nil {
				warns = append(warns, err.Error())
			}
		}
	}
	return warns
}
