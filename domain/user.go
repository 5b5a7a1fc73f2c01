// Package domain contains core concepts of the chat system.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"sync"

	"github.com/google/uuid"

	"chat-shell/contract"
)

// User is a registered principal. Identity (ID, Username) is assigned once at
// first registration and never changes; only the outbound sink is rebindable.
// A User outlives its connections: it is abandoned, never destroyed, when the
// remote side goes away.
type User struct {
	ID       uuid.UUID
	Username string

	mu   sync.RWMutex
	sink contract.LineSink
}

func NewUser(username string) *User {
	return &User{
		ID:       uuid.New(),
		Username: username,
	}
}

// BindSink points the user at a new live connection. Any previously bound
// sink is dropped without notification; this is how a reconnect under the
// same username silently takes over delivery.
func (u *User) BindSink(sink contract.LineSink) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sink = sink
}

// ReleaseSink clears the bound sink, but only if it is still the given one.
// A connection closing after the user already reconnected elsewhere must not
// clobber the newer binding.
func (u *User) ReleaseSink(sink contract.LineSink) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.sink == sink {
		u.sink = nil
	}
}

// Sink returns the current outbound write path, or nil when the user has no
// live connection.
func (u *User) Sink() contract.LineSink {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.sink
}
