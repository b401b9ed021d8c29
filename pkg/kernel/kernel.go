// Package kernel defines the solid-modeling interface used for geometry
// previews. Surfaces are the primary representation of a geometry; a
// kernel turns a kind's coarse solid approximation into a watertight mesh
// for clearance checks and previews.
package kernel

import "github.com/deadsy/sdfx/sdf"

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract solid kernel.
type Kernel interface {
	// Primitives, centered on the origin. Cylinders run along Z.
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) Solid
	Sphere(radius float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees
	Transform(s Solid, m sdf.M44) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
