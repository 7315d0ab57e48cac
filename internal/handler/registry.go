package handler

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is the process-wide map of users with a live connection. It is
// owned by the websocket handler and exposed to the rest of the system only
// as a presence oracle.
//
// Replacement is last-write-wins: a second connection for the same user
// takes over the entry without coordinating shutdown of the first. Each
// registration carries a connection id so a replaced connection's teardown
// cannot evict its successor.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]uuid.UUID
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]uuid.UUID)}
}

// Register claims the entry for userID and returns the connection id that
// owns it.
func (r *Registry) Register(userID string) uuid.UUID {
	connID := uuid.New()
	r.mu.Lock()
	r.conns[userID] = connID
	r.mu.Unlock()
	return connID
}

// Deregister removes the entry only if connID still owns it.
func (r *Registry) Deregister(userID string, connID uuid.UUID) {
	r.mu.Lock()
	if current, ok := r.conns[userID]; ok && current == connID {
		delete(r.conns, userID)
	}
	r.mu.Unlock()
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	_, ok := r.conns[userID]
	r.mu.RUnlock()
	return ok
}
