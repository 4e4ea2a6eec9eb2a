package hub

import (
	"sync"

	"github.com/opuofficial/chat-application-server/internal/event"
)

// Handle is one live, authenticated connection. The user binding is fixed
// for the handle's lifetime.
type Handle interface {
	ID() string
	UserID() string
	Send(ev event.WsEvent) bool
	Close()
}

// Registry is the process-wide map from user id to that user's live
// connection. It is the single source of truth for "is this user currently
// reachable"; handlers never touch it directly, only through Presence and
// Router.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]Handle
}

func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[string]Handle),
	}
}

// Register binds h.UserID() to h. A user has at most one registered handle:
// the latest connection wins, and any previously registered handle is
// returned so the caller can tear it down.
func (r *Registry) Register(h Handle) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	prior := r.handles[h.UserID()]
	r.handles[h.UserID()] = h
	if prior != nil && prior.ID() == h.ID() {
		return nil
	}
	return prior
}

// Deregister removes the user's handle only when it is still the one
// identified by handleID. Returns false when a newer connection has already
// replaced it, so a stale teardown cannot evict the live session.
func (r *Registry) Deregister(userID, handleID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.handles[userID]
	if !ok || current.ID() != handleID {
		return false
	}
	delete(r.handles, userID)
	return true
}

// Lookup returns the user's live handle, if any.
func (r *Registry) Lookup(userID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handles[userID]
	return h, ok
}

// Snapshot copies the registered handles so callers can iterate without
// holding the lock across sends.
func (r *Registry) Snapshot() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := make([]Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	return handles
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
