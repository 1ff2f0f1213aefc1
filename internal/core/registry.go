package core

import "sync"

// Registry tracks which connection currently speaks for each user. One
// live connection per user: a new registration supersedes the previous
// one. All methods are safe for concurrent use and never block on
// client I/O.
type Registry struct {
	mu       sync.RWMutex
	byUser   map[string]*Client
	byClient map[*Client]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser:   make(map[string]*Client),
		byClient: make(map[*Client]string),
	}
}

// Register binds userID to c, displacing any previous connection for
// the same user. The displaced connection keeps its own lifecycle; only
// its registry entry goes away.
func (r *Registry) Register(userID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byUser[userID]; ok && old != c {
		delete(r.byClient, old)
	}
	r.byUser[userID] = c
	r.byClient[c] = userID
}

// Unregister removes c if it is still the current connection for its
// user. A delayed disconnect of a superseded connection is a no-op, so
// a reconnect racing the old connection's teardown is never evicted.
// Returns true when the user went offline.
func (r *Registry) Unregister(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byClient[c]
	if !ok {
		return false
	}
	delete(r.byClient, c)
	if r.byUser[userID] == c {
		delete(r.byUser, userID)
		return true
	}
	return false
}

// Lookup returns the current connection for userID.
func (r *Registry) Lookup(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byUser[userID]
	return c, ok
}

// IdentityOf returns the user a registered connection speaks for.
func (r *Registry) IdentityOf(c *Client) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.byClient[c]
	return userID, ok
}

// Size reports the number of connected users.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser)
}
