package presence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/protocol"
	"github.com/nfrund/parley/internal/room"
)

// fakeConn implements room.Conn.
type fakeConn struct {
	id   string
	mu   sync.Mutex
	sent []sentEvent
}

type sentEvent struct {
	event   string
	payload any
}

func (c *fakeConn) SessionID() string { return c.id }

func (c *fakeConn) Send(event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentEvent{event, payload})
}

func (c *fakeConn) events() []sentEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sentEvent, len(c.sent))
	copy(out, c.sent)
	return out
}

func TestBroadcaster_TypingExcludesTypist(t *testing.T) {
	rooms := room.NewManager()
	b := NewBroadcaster(rooms)

	typist := &fakeConn{id: "sess-a"}
	listener := &fakeConn{id: "sess-b"}
	rooms.Join("room-1", typist)
	rooms.Join("room-1", listener)

	b.Typing("room-1", typist, "bob", "bob", true)

	assert.Empty(t, typist.events())

	events := listener.events()
	require.Len(t, events, 1)
	assert.Equal(t, protocol.EventUserTyping, events[0].event)
	payload, ok := events[0].payload.(protocol.UserTypingPayload)
	require.True(t, ok)
	assert.Equal(t, "bob", payload.UserID)
	assert.True(t, payload.IsTyping)
}

func TestBroadcaster_JoinedAcksSelfNotifiesOthers(t *testing.T) {
	rooms := room.NewManager()
	b := NewBroadcaster(rooms)

	existing := &fakeConn{id: "sess-a"}
	joining := &fakeConn{id: "sess-b"}
	rooms.Join("room-1", existing)
	rooms.Join("room-1", joining)

	b.Joined("room-1", joining, domain.Profile{ID: "bob", Username: "bob"})

	// The joiner gets only the direct acknowledgment.
	joinerEvents := joining.events()
	require.Len(t, joinerEvents, 1)
	assert.Equal(t, protocol.EventRoomJoined, joinerEvents[0].event)

	// Everyone else gets the membership notice.
	otherEvents := existing.events()
	require.Len(t, otherEvents, 1)
	assert.Equal(t, protocol.EventUserJoined, otherEvents[0].event)
}

func TestBroadcaster_LeftNotifiesRemaining(t *testing.T) {
	rooms := room.NewManager()
	b := NewBroadcaster(rooms)

	remaining := &fakeConn{id: "sess-a"}
	leaver := &fakeConn{id: "sess-b"}
	rooms.Join("room-1", remaining)
	rooms.Join("room-1", leaver)
	rooms.Leave("room-1", leaver)

	b.Left("room-1", leaver, domain.Profile{ID: "bob", Username: "bob"})

	assert.Empty(t, leaver.events())

	events := remaining.events()
	require.Len(t, events, 1)
	assert.Equal(t, protocol.EventUserLeft, events[0].event)
}
