package parm

// Snapshot captures one parm's state immediately before an interactive edit.
type Snapshot struct {
	ParmID     ID
	Before     float64
	LastBefore float64
}

// TakeSnapshot records p's current and last committed values.
func TakeSnapshot(p *Parm) Snapshot {
	return Snapshot{ParmID: p.id, Before: p.val, LastBefore: p.lastVal}
}

// Undo commits s.Before through Set, so the owning container is notified
// and re-dirtied as for any edit. It reports false when the parm is gone.
// GetLastVal afterwards returns the undone value, which is what delta
// consumers need to reverse their work.
func (s Snapshot) Undo(reg *Registry) bool {
	p := reg.Parm(s.ParmID)
	if p == nil {
		return false
	}
	p.Set(s.Before)
	return true
}

// UndoStack is a bounded LIFO of snapshots.
type UndoStack struct {
	depth int
	snaps []Snapshot
}

// NewUndoStack returns a stack that keeps at most depth snapshots.
func NewUndoStack(depth int) *UndoStack {
	if depth < 1 {
		depth = 1
	}
	return &UndoStack{depth: depth}
}

// Push records s, discarding the oldest snapshot when full.
func (u *UndoStack) Push(s Snapshot) {
	if len(u.snaps) == u.depth {
		u.snaps = append(u.snaps[:0], u.snaps[1:]...)
	}
	u.snaps = append(u.snaps, s)
}

// Pop removes and returns the most recent snapshot.
func (u *UndoStack) Pop() (Snapshot, bool) {
	if len(u.snaps) == 0 {
		return Snapshot{}, false
	}
	s := u.snaps[len(u.snaps)-1]
	u.snaps = u.snaps[:len(u.snaps)-1]
	return s, true
}

// Undo pops the latest snapshot and restores it. Snapshots whose parm has
// been deleted are skipped.
func (u *UndoStack) Undo(reg *Registry) bool {
	for {
		s, ok := u.Pop()
		if !ok {
			return false
		}
		if s.Undo(reg) {
			return true
		}
	}
}

// Len returns the number of stored snapshots.
func (u *UndoStack) Len() int { return len(u.snaps) }

// Clear drops every snapshot.
func (u *UndoStack) Clear() { u.snaps = nil }
