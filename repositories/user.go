package repositories

import (
	"sync"

	"chat-shell/contract"
	"chat-shell/domain"
)

type IUserRegistry interface {
	GetOrCreate(username string) *domain.User
	Lookup(username string) (*domain.User, bool)
	Rebind(username string, sink contract.LineSink) *domain.User
	Release(username string, sink contract.LineSink)
}

// UserRegistry owns the username -> User mapping for the process lifetime.
// Operations are total over any string username; users are created on first
// sight and never removed.
type UserRegistry struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewUserRegistry() *UserRegistry {
	return &UserRegistry{users: make(map[string]*domain.User)}
}

// GetOrCreate returns the existing User for the username, or registers a
// fresh one with a new id. Idempotent: the same username always resolves to
// the same User identity.
func (r *UserRegistry) GetOrCreate(username string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[username]; ok {
		return u
	}
	u := domain.NewUser(username)
	r.users[username] = u
	return u
}

// Lookup is a pure read with no side effect.
func (r *UserRegistry) Lookup(username string) (*domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[username]
	return u, ok
}

// Rebind resolves-or-creates the user and points it at the new connection's
// sink. The previous sink reference is dropped without notification; this is
// the explicit reconnect takeover.
func (r *UserRegistry) Rebind(username string, sink contract.LineSink) *domain.User {
	u := r.GetOrCreate(username)
	u.BindSink(sink)
	return u
}

// Release clears the user's sink if it is still the given one. Called when a
// connection closes; it never touches room membership, because disconnection
// is not an implicit leave.
func (r *UserRegistry) Release(username string, sink contract.LineSink) {
	u, ok := r.Lookup(username)
	if !ok {
		return
	}
	u.ReleaseSink(sink)
}
