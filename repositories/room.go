package repositories

import (
	"sync"

	"chat-shell/domain"
)

type IRoomRegistry interface {
	GetOrCreate(name string) *domain.Room
	List() []*domain.Room
	CurrentRoom(username string) (*domain.Room, bool)
	Move(user *domain.User, room *domain.Room) (*domain.Room, bool)
	Depart(user *domain.User) (*domain.Room, bool)
}

// RoomRegistry owns the name -> Room mapping plus the username -> current
// room index. Keeping the relation here, instead of a mutable pointer inside
// User, means a user's single-room invariant is enforced in one place.
type RoomRegistry struct {
	mu      sync.RWMutex
	rooms   map[string]*domain.Room
	order   []*domain.Room
	current map[string]*domain.Room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:   make(map[string]*domain.Room),
		current: make(map[string]*domain.Room),
	}
}

// GetOrCreate returns the existing Room for the name, or registers an empty
// one. Rooms are never deleted afterwards, even with zero members.
func (r *RoomRegistry) GetOrCreate(name string) *domain.Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[name]; ok {
		return room
	}
	room := domain.NewRoom(name)
	r.rooms[name] = room
	r.order = append(r.order, room)
	return room
}

// List returns a snapshot of every registered room in creation order.
func (r *RoomRegistry) List() []*domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Room, len(r.order))
	copy(out, r.order)
	return out
}

// CurrentRoom reports which room the user currently occupies, if any.
func (r *RoomRegistry) CurrentRoom(username string) (*domain.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.current[username]
	return room, ok
}

// Move places the user in room, removing them from their previous room
// first. Membership and the occupancy index change under one lock, so the
// user is never in two member sets at once, no matter how many live
// sessions dispatch for the same username. Returns the previous room when
// there was one.
func (r *RoomRegistry) Move(user *domain.User, room *domain.Room) (*domain.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.current[user.Username]
	if ok {
		prev.RemoveMember(user)
	}
	room.AddMember(user)
	r.current[user.Username] = room
	return prev, ok
}

// Depart removes the user from their current room and marks them roomless,
// atomically. Reports false when the user had no room.
func (r *RoomRegistry) Depart(user *domain.User) (*domain.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.current[user.Username]
	if !ok {
		return nil, false
	}
	room.RemoveMember(user)
	delete(r.current, user.Username)
	return room, true
}
