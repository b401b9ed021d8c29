// Package project is the application context: one parm registry shared by
// the geometry model, the link managers and the presets, plus the undo
// stack for interactive edits and whole-document save and load.
package project

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/chazu/spar/pkg/advlink"
	"github.com/chazu/spar/pkg/geom"
	"github.com/chazu/spar/pkg/kinds"
	"github.com/chazu/spar/pkg/link"
	"github.com/chazu/spar/pkg/metrics"
	"github.com/chazu/spar/pkg/parm"
	"github.com/chazu/spar/pkg/preset"
	"github.com/chazu/spar/pkg/xmldoc"
)

var (
	ErrNotFound    = errors.New("project: not found")
	ErrBadDocument = errors.New("project: not a spar document")
)

// Option configures a Project.
type Option func(*Project)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(p *Project) { p.log = l }
}

// WithMetrics wires m into every component.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Project) { p.met = m }
}

// WithFullUpdate selects whether Update tessellates.
func WithFullUpdate(on bool) Option {
	return func(p *Project) { p.full = on }
}

// WithImmediateUpdate runs a walk after every device edit.
func WithImmediateUpdate(on bool) Option {
	return func(p *Project) { p.immediate = on }
}

// WithScriptTimeout bounds advanced link evaluation.
func WithScriptTimeout(d time.Duration) Option {
	return func(p *Project) { p.timeout = d }
}

// WithUndoDepth bounds the undo stack.
func WithUndoDepth(n int) Option {
	return func(p *Project) { p.undoDepth = n }
}

// WithTess overrides the tessellation of geoms created by Add. Zero keeps
// the kind default.
func WithTess(u, w int) Option {
	return func(p *Project) { p.tessU, p.tessW = u, w }
}

// Project ties the components together.
type Project struct {
	Registry *parm.Registry
	Model    *geom.Model
	Links    *link.Manager
	AdvLinks *advlink.Manager
	Presets  *preset.Manager

	log       *slog.Logger
	met       *metrics.Metrics
	undo      *parm.UndoStack
	cancel    func()
	full      bool
	immediate bool
	timeout   time.Duration
	undoDepth int
	tessU     int
	tessW     int
}

// New returns an empty project.
func New(opts ...Option) *Project {
	p := &Project{
		log:       slog.New(slog.DiscardHandler),
		full:      true,
		undoDepth: 100,
	}
	for _, o := range opts {
		o(p)
	}
	p.undo = parm.NewUndoStack(p.undoDepth)
	p.Registry = parm.NewRegistry()

	modelOpts := []geom.Option{geom.WithLogger(p.log), geom.WithImmediateUpdate(p.immediate)}
	linkOpts := []link.Option{link.WithLogger(p.log)}
	advOpts := []advlink.Option{advlink.WithLogger(p.log), advlink.WithTimeout(p.timeout)}
	if p.met != nil {
		modelOpts = append(modelOpts, geom.WithObserver(p.met))
		linkOpts = append(linkOpts, link.WithPropagateHook(p.met.LinkPropagated))
		advOpts = append(advOpts, advlink.WithEvalHook(p.met.ScriptEvaluated))
		p.cancel = p.Registry.Subscribe(p.met.ParmCommitted)
	}
	p.Model = geom.NewModel(p.Registry, kinds.NewCatalog(), modelOpts...)
	p.Links = link.NewManager(p.Registry, linkOpts...)
	p.AdvLinks = advlink.NewManager(p.Registry, advOpts...)
	p.Presets = preset.NewManager(p.Registry, preset.WithLogger(p.log), preset.WithUpdater(p.Model))
	return p
}

// Close detaches every listener from the registry.
func (p *Project) Close() {
	p.Links.Close()
	p.AdvLinks.Close()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Logger returns the project logger.
func (p *Project) Logger() *slog.Logger { return p.log }

// Add creates a geom and applies the configured tessellation.
func (p *Project) Add(typeName string, parent parm.ID) (*geom.Geom, error) {
	g, err := p.Model.Add(typeName, parent)
	if err != nil {
		return nil, err
	}
	if p.tessU > 0 {
		g.TessU.Set(float64(p.tessU))
	}
	if p.tessW > 0 {
		g.TessW.Set(float64(p.tessW))
	}
	return g, nil
}

// Update runs one walk in the configured mode.
func (p *Project) Update() int { return p.Model.Update(p.full) }

// Edit commits v to parm id as an interactive edit and records the prior
// value for Undo. It returns the committed value.
func (p *Project) Edit(id parm.ID, v float64) (float64, error) {
	pm := p.Registry.Parm(id)
	if pm == nil {
		return 0, fmt.Errorf("project: edit %s: %w", id, ErrNotFound)
	}
	p.undo.Push(parm.TakeSnapshot(pm))
	got := pm.SetFromDevice(v)
	// Edits of parms outside the tree reach geoms only through links.
	if p.immediate && p.Model.Pending() {
		p.Update()
	}
	p.log.Debug("parm edited", "parm", pm.Name(), "group", pm.Group(), "value", got)
	return got, nil
}

// Undo reverts the latest edit and brings the model up to date. It
// reports false when there was nothing to undo.
func (p *Project) Undo() bool {
	if !p.undo.Undo(p.Registry) {
		return false
	}
	if p.Model.Pending() {
		p.Update()
	}
	return true
}

// UndoDepth returns the number of edits that can be undone.
func (p *Project) UndoDepth() int { return p.undo.Len() }

// FindParm resolves a parm by owner, group and name. The owner is a geom
// name, "Vehicle", or "UserParms".
func (p *Project) FindParm(owner, group, name string) (*parm.Parm, error) {
	var found *parm.Parm
	switch owner {
	case "Vehicle":
		found = p.Model.Vehicle.FindParmInGroup(group, name)
	case "UserParms":
		found = p.Links.UserParms().FindParmInGroup(group, name)
	default:
		for _, g := range p.Model.FindByName(owner) {
			if found = g.FindParmInGroup(group, name); found != nil {
				break
			}
		}
	}
	if found == nil {
		return nil, fmt.Errorf("project: parm %s/%s/%s: %w", owner, group, name, ErrNotFound)
	}
	return found, nil
}

// Check validates the geometry tree.
func (p *Project) Check() []geom.ValidationError { return geom.Validate(p.Model) }

// ---------------------------------------------------------------------------
// Documents
// ---------------------------------------------------------------------------

// Encode returns the whole project as a document.
func (p *Project) Encode() *xmldoc.Node {
	root := xmldoc.New(geom.ElemRoot)
	root.SetAttr("Version", fmt.Sprint(geom.DocVersion))
	p.Model.Encode(root)
	p.Links.Encode(root)
	p.AdvLinks.Encode(root)
	p.Presets.Encode(root)
	return root
}

// Save writes the project document to w.
func (p *Project) Save(w io.Writer) error {
	if err := xmldoc.Write(w, p.Encode()); err != nil {
		return fmt.Errorf("project: save: %w", err)
	}
	return nil
}

// Marshal returns the encoded project document.
func (p *Project) Marshal() ([]byte, error) {
	data, err := xmldoc.Marshal(p.Encode())
	if err != nil {
		return nil, fmt.Errorf("project: marshal: %w", err)
	}
	return data, nil
}

// Decode reads doc into the project, which must be empty. Geoms are read
// first so that links and presets resolve against them. Everything that
// was defaulted or dropped is logged and returned.
func (p *Project) Decode(doc *xmldoc.Node) ([]string, error) {
	if doc == nil || doc.Name != geom.ElemRoot {
		return nil, ErrBadDocument
	}
	if v := xmldoc.AttrValue(doc, "Version", 0); v > geom.DocVersion {
		p.log.Warn("document is newer than this build", "version", v, "supported", geom.DocVersion)
	}

	_, warns := p.Model.Decode(doc, nil)
	warns = append(warns, p.Links.Decode(doc.Child(link.ElemLinkMgr), nil)...)
	warns = append(warns, p.AdvLinks.Decode(doc.Child(advlink.ElemAdvLinkMgr), nil)...)
	warns = append(warns, p.Presets.Decode(doc.Child(preset.ElemVarPresets), nil)...)
	for _, w := range warns {
		p.log.Warn("decode", "detail", w)
	}
	p.undo.Clear()
	p.Update()
	return warns, nil
}

// Load reads a project document from r.
func Load(r io.Reader, opts ...Option) (*Project, []string, error) {
	doc, err := xmldoc.Read(r)
	if err != nil {
		return nil, nil, fmt.Errorf("project: load: %w", err)
	}
	p := New(opts...)
	warns, err := p.Decode(doc)
	if err != nil {
		p.Close()
		return nil, nil, err
	}
	return p, warns, nil
}

// Unmarshal is Load over a byte slice.
func Unmarshal(data []byte, opts ...Option) (*Project, []string, error) {
	doc, err := xmldoc.Unmarshal(data)
	if err != nil {
		return nil, nil, fmt.Errorf("project: load: %w", err)
	}
	p := New(opts...)
	warns, err := p.Decode(doc)
	if err != nil {
		p.Close()
		return nil, nil, err
	}
	return p, warns, nil
}
