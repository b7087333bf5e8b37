// Package session tracks which authenticated user currently owns which live
// connection. One identity maps to at most one active connection; a later
// handshake supersedes an earlier one.
package session

import (
	"log/slog"
	"sync"
)

// Conn is the slice of a live connection the registry needs: identity,
// best-effort delivery, and forced closure of superseded sessions.
type Conn interface {
	// SessionID is the unique transport-session identifier.
	SessionID() string
	// Send queues an event for delivery. It never blocks; delivery is
	// best-effort.
	Send(event string, payload any)
	// Close terminates the connection with a reason.
	Close(reason string)
}

// Registry maps an authenticated user identity to zero-or-one active
// connection. It is safe for concurrent use from many connection handlers;
// no I/O happens under its lock.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn // userID -> active connection
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Conn),
	}
}

// Register binds a user identity to a connection, superseding any prior
// registration for that identity. It returns the superseded connection (if
// any) so the caller can close it.
func (r *Registry) Register(userID string, c Conn) Conn {
	r.mu.Lock()
	prev := r.conns[userID]
	r.conns[userID] = c
	r.mu.Unlock()

	if prev != nil && prev.SessionID() != c.SessionID() {
		slog.Info("Session superseded", "userID", userID, "oldSession", prev.SessionID(), "newSession", c.SessionID())
		return prev
	}
	return nil
}

// Unregister removes the mapping for userID, but only if it still points at
// the given session. A stale disconnect must not clobber a newer session. It
// reports whether the entry was removed, so callers can tell a real
// disconnect from a superseded session's cleanup.
func (r *Registry) Unregister(userID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.conns[userID]; ok && current.SessionID() == sessionID {
		delete(r.conns, userID)
		return true
	}
	return false
}

// Lookup returns the session ID of the user's active connection.
func (r *Registry) Lookup(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[userID]
	if !ok {
		return "", false
	}
	return c.SessionID(), true
}

// Online reports whether the user has an active connection.
func (r *Registry) Online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.conns[userID]
	return ok
}

// Count returns the number of connected users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

// SendDirect delivers an event to the user's active connection. It returns
// false without error when the user has no registered session.
func (r *Registry) SendDirect(userID, event string, payload any) bool {
	r.mu.RLock()
	c, ok := r.conns[userID]
	r.mu.RUnlock()

	if !ok {
		return false
	}
	c.Send(event, payload)
	return true
}
