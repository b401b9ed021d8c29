package parm

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ID identifies a parm or container. The empty ID means none.
type ID string

// None is the legacy spelling of the empty id found in documents.
const None ID = "NONE"

// IDLength is the number of letters in a generated id.
const IDLength = 10

// maxIDAttempts bounds retry-on-collision during id generation.
const maxIDAttempts = 1000

// ErrDuplicateID is returned when an id change would collide with a live
// entity.
var ErrDuplicateID = errors.New("duplicate id")

// Listener observes every committed parm change in a registry.
type Listener func(p *Parm, kind ChangeKind)

type listenerEntry struct {
	key int
	fn  Listener
}

// Registry is the id table for one model: it resolves parm and container
// ids, generates unique ids and fans committed changes out to listeners.
// It is not safe for concurrent use.
type Registry struct {
	parms      map[ID]*Parm
	containers map[ID]Container
	listeners  []listenerEntry
	nextKey    int
	gen        func() ID
}

// Option configures a Registry.
type Option func(*Registry)

// WithIDGenerator replaces the random id source.
func WithIDGenerator(gen func() ID) Option {
	return func(r *Registry) { r.gen = gen }
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		parms:      make(map[ID]*Parm),
		containers: make(map[ID]Container),
		gen:        randomID,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func randomID() ID {
	u := uuid.New()
	return lettersFrom(u)
}

func lettersFrom(u uuid.UUID) ID {
	b := make([]byte, IDLength)
	for i := range b {
		b[i] = 'A' + u[i]%26
	}
	return ID(b)
}

// NewID returns an id not used by any live parm or container. Exhausting
// the retry budget is a programming error and panics.
func (r *Registry) NewID() ID {
	for i := 0; i < maxIDAttempts; i++ {
		id := r.gen()
		if id != "" && id != None && !r.Exists(id) {
			return id
		}
	}
	panic(fmt.Sprintf("parm: no unique id after %d attempts", maxIDAttempts))
}

// Exists reports whether id names a live parm or container.
func (r *Registry) Exists(id ID) bool {
	if _, ok := r.parms[id]; ok {
		return true
	}
	_, ok := r.containers[id]
	return ok
}

// Parm returns the parm with id, or nil.
func (r *Registry) Parm(id ID) *Parm {
	return r.parms[id]
}

// Container returns the container with id, or nil.
func (r *Registry) Container(id ID) Container {
	return r.containers[id]
}

// NumParms returns the number of live parms.
func (r *Registry) NumParms() int { return len(r.parms) }

// NumContainers returns the number of live containers.
func (r *Registry) NumContainers() int { return len(r.containers) }

// Get returns the value of parm id.
func (r *Registry) Get(id ID) (float64, bool) {
	p := r.parms[id]
	if p == nil {
		return 0, false
	}
	return p.Get(), true
}

// Set commits v to parm id as a programmatic edit.
func (r *Registry) Set(id ID, v float64) (float64, bool) {
	p := r.parms[id]
	if p == nil {
		return 0, false
	}
	return p.Set(v), true
}

// SetFromDevice commits v to parm id as an interactive edit.
func (r *Registry) SetFromDevice(id ID, v float64) (float64, bool) {
	p := r.parms[id]
	if p == nil {
		return 0, false
	}
	return p.SetFromDevice(v), true
}

func (r *Registry) addParm(p *Parm) {
	r.parms[p.id] = p
}

func (r *Registry) removeParm(id ID) {
	delete(r.parms, id)
}

func (r *Registry) addContainer(c Container) {
	r.containers[c.ID()] = c
}

func (r *Registry) removeContainer(id ID) {
	delete(r.containers, id)
}

// ChangeParmID re-registers p under id.
func (r *Registry) ChangeParmID(p *Parm, id ID) error {
	if id == p.id {
		return nil
	}
	if id == "" || r.Exists(id) {
		return fmt.Errorf("parm id %s: %w", id, ErrDuplicateID)
	}
	old := p.id
	delete(r.parms, old)
	p.id = id
	r.parms[id] = p
	if p.owner != nil {
		b := p.owner.base()
		for i, pid := range b.parmIDs {
			if pid == old {
				b.parmIDs[i] = id
			}
		}
	}
	return nil
}

// ChangeContainerID re-registers c under id.
func (r *Registry) ChangeContainerID(c Container, id ID) error {
	b := c.base()
	if id == b.id {
		return nil
	}
	if id == "" || r.Exists(id) {
		return fmt.Errorf("container id %s: %w", id, ErrDuplicateID)
	}
	delete(r.containers, b.id)
	b.id = id
	r.containers[id] = c
	return nil
}

// Subscribe registers fn for every committed change. Listeners run before
// the owning container is notified. The returned func unsubscribes.
func (r *Registry) Subscribe(fn Listener) (cancel func()) {
	r.nextKey++
	key := r.nextKey
	r.listeners = append(r.listeners, listenerEntry{key: key, fn: fn})
	return func() {
		for i, l := range r.listeners {
			if l.key == key {
				r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
				return
			}
		}
	}
}

func (r *Registry) notify(p *Parm, kind ChangeKind) {
	if len(r.listeners) == 0 {
		return
	}
	ls := append([]listenerEntry(nil), r.listeners...)
	for _, l := range ls {
		l.fn(p, kind)
	}
}

// ---------------------------------------------------------------------------
// Identity remap
// ---------------------------------------------------------------------------

var remapNamespace = uuid.MustParse("6f1c3d2a-8b4e-4c1a-9e57-2d8f0b6a4c31")

// Remapper maps document ids to fresh ids. The mapping is a pure function
// of the salt and the old id, so remapping a subtree gives the same result
// regardless of visit order. A nil Remapper is the identity.
type Remapper struct {
	reg  *Registry
	salt string
	memo map[ID]ID
	used map[ID]bool
}

// NewRemapper returns a remapper for salt. Callers pasting the same
// clipboard twice must use different salts.
func (r *Registry) NewRemapper(salt string) *Remapper {
	return &Remapper{
		reg:  r,
		salt: salt,
		memo: make(map[ID]ID),
		used: make(map[ID]bool),
	}
}

// Remap returns the fresh id for old. Empty and None map to empty.
func (m *Remapper) Remap(old ID) ID {
	if old == None {
		return ""
	}
	if m == nil || old == "" {
		return old
	}
	if id, ok := m.memo[old]; ok {
		return id
	}
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		key := fmt.Sprintf("%s/%s/%d", m.salt, old, attempt)
		id := lettersFrom(uuid.NewSHA1(remapNamespace, []byte(key)))
		if id == None || m.used[id] || m.reg.Exists(id) {
			continue
		}
		m.memo[old] = id
		m.used[id] = true
		return id
	}
	panic(fmt.Sprintf("parm: no unique remap for %s after %d attempts", old, maxIDAttempts))
}

// Mapping returns a copy of the old→new ids produced so far.
func (m *Remapper) Mapping() map[ID]ID {
	out := make(map[ID]ID, len(m.memo))
	for k, v := range m.memo {
		out[k] = v
	}
	return out
}
