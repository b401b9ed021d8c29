package geom

import (
	"fmt"
	"sort"

	"github.com/chazu/spar/pkg/kernel"
	"github.com/chazu/spar/pkg/surf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Kind is the behavior table of one geometry type. A concrete kind is a
// data variant (whatever Init returns, stored in Geom.Data) plus these
// functions.
type Kind struct {
	Name string
	ID   int

	// Adoptable kinds may change parents after creation.
	Adoptable bool
	// Fixed kinds are built in rather than user-defined.
	Fixed bool
	// NoSurface kinds legitimately have no surfaces and no Regenerate hook.
	NoSurface bool
	// ScaleSensitive kinds are sized from the whole model and are rebuilt
	// when the model's scale-independent bounds change.
	ScaleSensitive bool

	// Init declares the kind's own parms on g and returns its state.
	Init func(g *Geom) any
	// Regenerate builds the main surfaces in local coordinates.
	Regenerate func(g *Geom) []surf.Surface

	// Optional hooks.
	Scale  func(g *Geom, factor float64)
	Center func(g *Geom) v3.Vec
	Solid  func(g *Geom, k kernel.Kernel) kernel.Solid
}

// Catalog maps type names to kinds. Each Model owns one.
type Catalog struct {
	kinds map[string]*Kind
	byID  map[int]*Kind
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{kinds: make(map[string]*Kind), byID: make(map[int]*Kind)}
}

// Register adds k. A surface kind without a Regenerate hook is a
// programming error and panics, as do duplicate names or ids.
func (c *Catalog) Register(k *Kind) {
	if k == nil || k.Name == "" {
		panic("geom: kind without a name")
	}
	if !k.NoSurface && k.Regenerate == nil {
		panic(fmt.Sprintf("geom: kind %s has no Regenerate hook", k.Name))
	}
	if _, dup := c.kinds[k.Name]; dup {
		panic(fmt.Sprintf("geom: kind %s registered twice", k.Name))
	}
	if _, dup := c.byID[k.ID]; dup {
		panic(fmt.Sprintf("geom: kind id %d registered twice", k.ID))
	}
	c.kinds[k.Name] = k
	c.byID[k.ID] = k
}

// Lookup returns the kind named name, or nil.
func (c *Catalog) Lookup(name string) *Kind {
	return c.kinds[name]
}

// LookupID returns the kind with id, or nil.
func (c *Catalog) LookupID(id int) *Kind {
	return c.byID[id]
}

// Names returns the registered type names sorted by id.
func (c *Catalog) Names() []string {
	ks := make([]*Kind, 0, len(c.kinds))
	for _, k := range c.kinds {
		ks = append(ks, k)
	}
	sort.Slice(ks, func(i, j int) bool { return ks[i].ID < ks[j].ID })
	names := make([]string, len(ks))
	for i, k := range ks {
		names[i] = k.Name
	}
	return names
}
