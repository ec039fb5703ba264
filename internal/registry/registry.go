// Package registry tracks which live connections on this instance are
// subscribed to which rooms. It is the only structure mutated concurrently
// by every connection task; all synchronization stays inside it.
package registry

import (
	"sync"

	"chat-core/pkg/logger"
)

// Conn is a live client connection the registry can deliver to. Send must
// not block: it reports false when the outbound buffer is full or the
// connection is gone, and the registry drops such connections rather than
// letting one slow consumer stall a room.
type Conn interface {
	ID() string
	UserID() int
	Send(data []byte) bool
}

type Registry struct {
	mu    sync.RWMutex
	rooms map[int]map[Conn]struct{}
}

func New() *Registry {
	return &Registry{rooms: make(map[int]map[Conn]struct{})}
}

// Subscribe adds the connection to the room's set. Authorization is the
// caller's job and happens once, before this call.
func (r *Registry) Subscribe(c Conn, roomID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.rooms[roomID]
	if !ok {
		set = make(map[Conn]struct{})
		r.rooms[roomID] = set
	}
	set[c] = struct{}{}
}

func (r *Registry) Unsubscribe(c Conn, roomID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(c, roomID)
}

// Drop removes the connection from every room it belonged to and returns
// those room ids, so the caller can announce the departures. After Drop no
// broadcast can reach the connection.
func (r *Registry) Drop(c Conn) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var roomIDs []int
	for roomID, set := range r.rooms {
		if _, ok := set[c]; ok {
			roomIDs = append(roomIDs, roomID)
			r.removeLocked(c, roomID)
		}
	}
	return roomIDs
}

// Contains reports whether the connection is currently subscribed to the room.
func (r *Registry) Contains(c Conn, roomID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[roomID][c]
	return ok
}

// Count returns the number of connections subscribed to the room.
func (r *Registry) Count(roomID int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

// BroadcastLocal delivers the payload to every connection subscribed to the
// room on this instance. Connections that cannot accept the payload are
// dropped from all rooms, not retried.
func (r *Registry) BroadcastLocal(roomID int, data []byte) {
	r.mu.RLock()
	var stalled []Conn
	for c := range r.rooms[roomID] {
		if !c.Send(data) {
			stalled = append(stalled, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range stalled {
		logger.Warn("Dropping slow connection %s (user %d) from room %d", c.ID(), c.UserID(), roomID)
		r.Drop(c)
	}
}

func (r *Registry) removeLocked(c Conn, roomID int) {
	set, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.rooms, roomID)
	}
}
