// Package room owns the dynamic multicast membership of chat rooms: the set
// of currently-joined connections a broadcast reaches. This is deliberately
// distinct from the authorization membership list in the persistent store,
// which the Gate consults.
package room

import (
	"log/slog"
	"sync"
)

// Conn is the slice of a live connection a room group needs.
type Conn interface {
	// SessionID is the unique transport-session identifier.
	SessionID() string
	// Send queues an event for delivery. It never blocks.
	Send(event string, payload any)
}

// Group is the multicast set of currently-joined connections for one room.
// It is reconstructed from join_room events and is never derived from the
// authorization membership list.
type Group struct {
	mu      sync.RWMutex
	members map[string]Conn // sessionID -> connection
}

func newGroup() *Group {
	return &Group{
		members: make(map[string]Conn),
	}
}

func (g *Group) add(c Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members[c.SessionID()] = c
}

// remove reports whether the connection was actually a member.
func (g *Group) remove(sessionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.members[sessionID]; !ok {
		return false
	}
	delete(g.members, sessionID)
	return true
}

func (g *Group) size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.members)
}

// snapshot copies the current member set so broadcasts never hold the lock
// while delivering.
func (g *Group) snapshot() []Conn {
	g.mu.RLock()
	defer g.mu.RUnlock()

	conns := make([]Conn, 0, len(g.members))
	for _, c := range g.members {
		conns = append(conns, c)
	}
	return conns
}

// Manager tracks the multicast group of every active room. Operations on
// different rooms proceed independently; the manager lock only guards the
// room index itself.
type Manager struct {
	mu     sync.RWMutex
	groups map[string]*Group
}

// NewManager creates an empty room manager.
func NewManager() *Manager {
	return &Manager{
		groups: make(map[string]*Group),
	}
}

// Join adds a connection to a room's multicast group, creating the group on
// first join. The add happens under the manager lock so it cannot land in a
// group a concurrent Leave is pruning from the index.
func (m *Manager) Join(roomID string, c Conn) {
	m.mu.Lock()
	g, ok := m.groups[roomID]
	if !ok {
		g = newGroup()
		m.groups[roomID] = g
	}
	g.add(c)
	m.mu.Unlock()

	slog.Debug("Connection joined room group", "roomID", roomID, "sessionID", c.SessionID())
}

// Leave removes a connection from a room's multicast group. Leaving a room
// the connection never joined (or already left) is a no-op; the return value
// tells callers whether a membership-change notice is warranted. Empty
// groups are pruned.
func (m *Manager) Leave(roomID string, c Conn) bool {
	m.mu.RLock()
	g, ok := m.groups[roomID]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	removed := g.remove(c.SessionID())
	if removed {
		m.prune(roomID, g)
	}
	return removed
}

// prune drops the room from the index once its group is empty. The identity
// check guards against deleting a group that was already pruned and
// recreated by a concurrent Join.
func (m *Manager) prune(roomID string, g *Group) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.groups[roomID] == g && g.size() == 0 {
		delete(m.groups, roomID)
	}
}

// LeaveAll removes the connection from every group it is joined to and
// returns the affected room IDs. Used on disconnect.
func (m *Manager) LeaveAll(c Conn) []string {
	m.mu.RLock()
	rooms := make(map[string]*Group, len(m.groups))
	for id, g := range m.groups {
		rooms[id] = g
	}
	m.mu.RUnlock()

	var left []string
	for id, g := range rooms {
		if g.remove(c.SessionID()) {
			left = append(left, id)
			m.prune(id, g)
		}
	}
	return left
}

// Contains reports whether the session is currently joined to the room.
func (m *Manager) Contains(roomID, sessionID string) bool {
	m.mu.RLock()
	g, ok := m.groups[roomID]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	_, joined := g.members[sessionID]
	return joined
}

// Size returns the number of connections currently joined to the room.
func (m *Manager) Size(roomID string) int {
	m.mu.RLock()
	g, ok := m.groups[roomID]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	return g.size()
}

// Broadcast sends an event to every connection currently joined to the room.
// Broadcasting to an unknown or empty room is not an error.
func (m *Manager) Broadcast(roomID, event string, payload any) {
	m.BroadcastExcept(roomID, "", event, payload)
}

// BroadcastExcept sends an event to every joined connection except the one
// with the given session ID.
func (m *Manager) BroadcastExcept(roomID, exceptSessionID, event string, payload any) {
	m.mu.RLock()
	g, ok := m.groups[roomID]
	m.mu.RUnlock()
	if !ok {
		return
	}

	for _, c := range g.snapshot() {
		if c.SessionID() == exceptSessionID {
			continue
		}
		c.Send(event, payload)
	}
}
