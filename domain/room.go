package domain

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Room is a named set of present users plus an append-only transcript.
// Rooms are created on first join and never deleted; an empty room stays
// registered and re-joinable. Membership and transcript access are guarded
// by the room's own mutex.
type Room struct {
	ID   uuid.UUID
	Name string

	mu         sync.RWMutex
	members    map[string]*User
	transcript []TranscriptEntry
}

func NewRoom(name string) *Room {
	return &Room{
		ID:      uuid.New(),
		Name:    name,
		members: make(map[string]*User),
	}
}

// AddMember inserts the user into the member set. Membership is keyed by
// username, so a user is never double-counted; re-adding is a no-op.
func (r *Room) AddMember(u *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[u.Username] = u
}

// RemoveMember removes the user from the member set; absent users are a no-op.
func (r *Room) RemoveMember(u *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, u.Username)
}

// Contains reports whether the user is currently a member.
func (r *Room) Contains(u *User) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[u.Username]
	return ok
}

// Members returns a username-sorted snapshot of the current occupants.
func (r *Room) Members() []*User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*User, 0, len(r.members))
	for _, u := range r.members {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Broadcast writes "<sender>: <text>" to every member other than the sender.
// Delivery is best-effort: members without a live sink are silently skipped,
// and a write failure for one recipient does not affect the others. It
// returns the number of recipients actually written to.
func (r *Room) Broadcast(text string, sender *User) int {
	line := fmt.Sprintf("%s: %s", sender.Username, text)

	delivered := 0
	for _, member := range r.Members() {
		if member == sender {
			continue
		}
		sink := member.Sink()
		if sink == nil {
			continue
		}
		if err := sink.WriteLine(line); err == nil {
			delivered++
		}
	}
	return delivered
}

// Record appends an entry to the transcript. It is invoked for every message
// and notice regardless of whether any recipient was reachable.
func (r *Room) Record(text string, sender *User) TranscriptEntry {
	entry := TranscriptEntry{
		ID:        uuid.New(),
		Sender:    sender.Username,
		Text:      text,
		CreatedAt: time.Now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcript = append(r.transcript, entry)
	return entry
}

// Transcript returns a copy of the room history in insertion order.
func (r *Room) Transcript() []TranscriptEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TranscriptEntry, len(r.transcript))
	copy(out, r.transcript)
	return out
}
