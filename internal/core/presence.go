package core

import "sync"

// Registry tracks which users have live connections on this process.
// State lives only in memory; a restart starts empty, which implicitly marks
// every previously registered user offline.
type Registry struct {
	mu    sync.Mutex
	conns map[string]map[*Client]struct{}
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]map[*Client]struct{}),
	}
}

// Register adds a connection to its user's set, creating the set if absent.
// Returns true when this is the user's first live connection, i.e. the user
// transitioned to online.
func (r *Registry) Register(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		r.conns[c.UserID] = set
	}
	set[c] = struct{}{}

	return !ok
}

// Deregister removes a connection. When the set empties, the user's key is
// deleted (not left empty) and true is reported: the user transitioned to
// offline. Deregistering an unknown connection is a no-op.
func (r *Registry) Deregister(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[c.UserID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}

	delete(set, c)
	if len(set) == 0 {
		delete(r.conns, c.UserID)
		return true
	}

	return false
}

// ConnectionsFor returns a point-in-time copy of the user's live connections.
// Empty when the user is offline; never nil.
func (r *Registry) ConnectionsFor(userID string) []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.conns[userID]
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// IsOnline reports whether the user has at least one live connection here.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.conns[userID]
	return ok
}

// Broadcast enqueues an event to every registered connection, optionally
// excluding one. Iteration happens over a snapshot so a connection dropping
// mid-broadcast cannot corrupt it.
func (r *Registry) Broadcast(ev *Event, except *Client) {
	r.mu.Lock()
	clients := make([]*Client, 0, len(r.conns))
	for _, set := range r.conns {
		for c := range set {
			if c != except {
				clients = append(clients, c)
			}
		}
	}
	r.mu.Unlock()

	for _, c := range clients {
		c.Enqueue(ev)
	}
}
