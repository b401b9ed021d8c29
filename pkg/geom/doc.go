// Package geom is the geometry node hierarchy: an arena of Geoms addressed
// by id, each a parameter container with placement, symmetry and
// tessellation parms, and the update walk that turns parameter edits into
// transforms, surfaces, symmetric replicas and render meshes.
//
// Parm commits mark dirty flags on the owning Geom and Transform on all of
// its descendants. Model.Update then visits dirty nodes parents-first and
// recomputes only what each node's flags call for.
package geom
