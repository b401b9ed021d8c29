package geom

import (
	"fmt"
	"sort"

	"github.com/chazu/spar/pkg/parm"
)

// ValidationSeverity indicates whether a finding leaves the model
// inconsistent or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // structural violation
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   parm.ID // empty for model-level findings
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID, e.Message)
}

// HasErrors reports whether any finding is an error.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks the relationship structure of m. An empty result means
// the model is consistent. It never mutates m.
func Validate(m *Model) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateReferences(m)...)
	errs = append(errs, validateParents(m)...)
	errs = append(errs, validateDAG(m)...)
	errs = append(errs, validateTop(m)...)
	return errs
}

func (m *Model) sortedIDs() []parm.ID {
	ids := make([]parm.ID, 0, len(m.nodes))
	for id := range m.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return m.seq[ids[i]] < m.seq[ids[j]] })
	return ids
}

// validateReferences checks that every referenced id resolves.
func validateReferences(m *Model) []ValidationError {
	var errs []ValidationError
	for _, id := range m.sortedIDs() {
		g := m.nodes[id]
		if g.parentID != "" && m.nodes[g.parentID] == nil {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("parent reference %s does not exist", g.parentID),
				Severity: SeverityError,
			})
		}
		for _, c := range g.childIDs {
			if m.nodes[c] == nil {
				errs = append(errs, ValidationError{
					NodeID:   id,
					Message:  fmt.Sprintf("child reference %s does not exist", c),
					Severity: SeverityError,
				})
			}
		}
		for _, c := range g.stepChildIDs {
			if m.nodes[c] == nil {
				errs = append(errs, ValidationError{
					NodeID:   id,
					Message:  fmt.Sprintf("step child reference %s does not exist", c),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateParents checks that parent and child lists agree and that no
// node is listed twice.
func validateParents(m *Model) []ValidationError {
	var errs []ValidationError
	listedBy := make(map[parm.ID]parm.ID)
	for _, id := range m.sortedIDs() {
		g := m.nodes[id]
		seen := make(map[parm.ID]bool)
		for _, c := range g.childIDs {
			if seen[c] {
				errs = append(errs, ValidationError{
					NodeID:   id,
					Message:  fmt.Sprintf("child %s listed twice", c),
					Severity: SeverityError,
				})
				continue
			}
			seen[c] = true
			if other, ok := listedBy[c]; ok {
				errs = append(errs, ValidationError{
					NodeID:   c,
					Message:  fmt.Sprintf("listed as a child of both %s and %s", other, id),
					Severity: SeverityError,
				})
			}
			listedBy[c] = id
			if child := m.nodes[c]; child != nil && child.parentID != id {
				errs = append(errs, ValidationError{
					NodeID:   c,
					Message:  fmt.Sprintf("listed by %s but parent is %q", id, child.parentID),
					Severity: SeverityError,
				})
			}
		}
		if p := m.nodes[g.parentID]; p != nil && !containsID(p.childIDs, id) {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("parent %s does not list it as a child", g.parentID),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateDAG checks for cycles over child and step-child edges using DFS
// with 3-color marking.
func validateDAG(m *Model) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[parm.ID]int)
	var errs []ValidationError

	var visit func(id parm.ID) bool
	visit = func(id parm.ID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  "cycle detected: node is its own ancestor",
				Severity: SeverityError,
			})
			return true
		}
		color[id] = gray
		g := m.nodes[id]
		if g == nil {
			// Dangling; reported by validateReferences.
			color[id] = black
			return false
		}
		for _, c := range append(g.Children(), g.stepChildIDs...) {
			if visit(c) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for _, id := range m.sortedIDs() {
		if color[id] == white && visit(id) {
			break
		}
	}
	return errs
}

// validateTop checks the root list and warns about nodes reachable from no
// root.
func validateTop(m *Model) []ValidationError {
	var errs []ValidationError
	reached := make(map[parm.ID]bool)
	var queue []parm.ID
	for _, id := range m.top {
		g := m.nodes[id]
		if g == nil {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("top level reference %s does not exist", id),
				Severity: SeverityError,
			})
			continue
		}
		if g.parentID != "" {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("top level node has parent %s", g.parentID),
				Severity: SeverityError,
			})
		}
		if !reached[id] {
			reached[id] = true
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		g := m.nodes[queue[0]]
		queue = queue[1:]
		if g == nil {
			continue
		}
		for _, c := range g.childIDs {
			if !reached[c] {
				reached[c] = true
				queue = append(queue, c)
			}
		}
	}
	for _, id := range m.sortedIDs() {
		if !reached[id] {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("node %q is not reachable from the top level (orphan)", m.nodes[id].Name()),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
