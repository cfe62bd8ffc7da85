package relay

import (
	"sync"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/chat"
)

// Registry tracks the single live connection per identity and the set of
// operator connections. The identity map and the operator set are only ever
// edited together, under mu.
//
// A newer connection for an identity supersedes the older one: the older
// connection is dropped from the registry and closed.
type Registry struct {
	mu        sync.RWMutex
	conns     map[string]*Conn
	operators map[*Conn]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[string]*Conn),
		operators: make(map[*Conn]struct{}),
	}
}

// Register makes c the live connection for its identity and returns the
// connection it replaced, if any. The replaced connection is closed.
func (r *Registry) Register(c *Conn) *Conn {
	r.mu.Lock()
	prev := r.conns[c.Identity]
	if prev != nil {
		delete(r.operators, prev)
	}
	r.conns[c.Identity] = c
	if c.Role == chat.RoleOperator {
		r.operators[c] = struct{}{}
	}
	r.mu.Unlock()

	if prev != nil && prev != c {
		_ = prev.Close()
		return prev
	}
	return nil
}

// Unregister removes whatever connection is registered for identity and
// returns it. Unknown identities are a no-op.
func (r *Registry) Unregister(identity string) *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[identity]
	if !ok {
		return nil
	}
	delete(r.conns, identity)
	delete(r.operators, c)
	return c
}

// Release removes c only if it is still the live connection for its identity,
// so a superseded socket shutting down never evicts its replacement. Reports
// whether c was removed.
func (r *Registry) Release(c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.operators, c)
	if r.conns[c.Identity] != c {
		return false
	}
	delete(r.conns, c.Identity)
	return true
}

// Lookup returns the live connection for identity.
func (r *Registry) Lookup(identity string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[identity]
	return c, ok
}

// Operators returns a snapshot of the operator broadcast set.
func (r *Registry) Operators() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Conn, 0, len(r.operators))
	for c := range r.operators {
		out = append(out, c)
	}
	return out
}

// Count returns the number of live connections with the given role.
func (r *Registry) Count(role chat.Role) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if role == chat.RoleOperator {
		return len(r.operators)
	}
	return len(r.conns) - len(r.operators)
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

// CloseAll empties the registry and closes every connection it held.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	conns := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.conns = make(map[string]*Conn)
	r.operators = make(map[*Conn]struct{})
	r.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	return len(conns)
}
