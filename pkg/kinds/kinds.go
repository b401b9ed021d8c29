// Package kinds holds the built-in geometry kinds. Each kind is a
// geom.Kind behavior table plus the state its Init hook declares on the
// node; the core never looks inside that state.
package kinds

import "github.com/chazu/spar/pkg/geom"

// Type ids, stable across documents.
const (
	TypeBlank  = 0
	TypePod    = 1
	TypeWing   = 2
	TypeGround = 3
)

// Lattice resolution used by the surface builders. Render tessellation is
// governed separately by each node's Tess_U and Tess_W parms.
const (
	latticeU = 33
	latticeW = 17
)

// Register adds every built-in kind to c.
func Register(c *geom.Catalog) {
	c.Register(Blank())
	c.Register(Pod())
	c.Register(Wing())
	c.Register(Ground())
}

// NewCatalog returns a catalog holding the built-in kinds.
func NewCatalog() *geom.Catalog {
	c := geom.NewCatalog()
	Register(c)
	return c
}

// Blank is a surfaceless placeholder, typically used as an assembly
// parent that children attach to.
func Blank() *geom.Kind {
	return &geom.Kind{
		Name:      "Blank",
		ID:        TypeBlank,
		Adoptable: true,
		Fixed:     true,
		NoSurface: true,
	}
}
