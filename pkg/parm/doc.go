// Package parm implements named, bounded scalar parameters, the containers
// that own them, and the registry that resolves ids to both.
//
// A Parm is created by its container (Init) and mutated only through Set,
// SetFromLink and SetFromDevice. Every committed change is clamped into the
// parm's bounds, is a no-op when the value is unchanged within Tolerance, and
// notifies registry listeners and then the owning container.
package parm
