package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/message"
	"github.com/nfrund/parley/internal/protocol"
	"github.com/nfrund/parley/internal/pubsub"
	"github.com/nfrund/parley/internal/room"
	"github.com/nfrund/parley/internal/session"
)

type memberConn struct {
	sessionID string

	mu     sync.Mutex
	events []string
	bodies []any
}

func (c *memberConn) SessionID() string { return c.sessionID }

func (c *memberConn) Send(event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	c.bodies = append(c.bodies, payload)
}

func (c *memberConn) Close(string) {}

func (c *memberConn) received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

func TestService_SystemMessageReachesRoom(t *testing.T) {
	bridge := pubsub.NewWatermillBridge()
	defer bridge.Close()

	rooms := room.NewManager()
	svc := NewService(session.NewRegistry(), rooms, nil, nil, bridge, bridge)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Start(ctx))

	member := &memberConn{sessionID: "sess-1"}
	rooms.Join("room-1", member)

	outsider := &memberConn{sessionID: "sess-2"}
	rooms.Join("room-2", outsider)

	require.NoError(t, svc.SendSystemMessage(ctx, "room-1", "maintenance at midnight"))

	assert.Eventually(t, func() bool {
		return len(member.received()) == 1
	}, time.Second, 10*time.Millisecond)

	member.mu.Lock()
	event := member.events[0]
	body := member.bodies[0]
	member.mu.Unlock()

	assert.Equal(t, protocol.EventNewMessage, event)

	enriched, ok := body.(*domain.EnrichedEvent)
	require.True(t, ok)
	assert.Equal(t, "system", enriched.Sender.Username)
	assert.Equal(t, "maintenance at midnight", enriched.Content)
	assert.Empty(t, enriched.ID, "system messages are not persisted")

	assert.Empty(t, outsider.received())
}

func TestService_MalformedAnnouncementIsDropped(t *testing.T) {
	bridge := pubsub.NewWatermillBridge()
	defer bridge.Close()

	rooms := room.NewManager()
	svc := NewService(session.NewRegistry(), rooms, nil, nil, bridge, bridge)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Start(ctx))

	member := &memberConn{sessionID: "sess-1"}
	rooms.Join("room-1", member)

	require.NoError(t, bridge.Publish(ctx, pubsub.Message{
		Topic:   pubsub.TopicSystemMessage,
		Payload: []byte("{broken"),
	}))

	// Give the subscriber a beat; nothing should arrive.
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, member.received())
}

func TestService_OnlineAndDirectDelivery(t *testing.T) {
	registry := session.NewRegistry()
	svc := NewService(registry, room.NewManager(), nil, nil, nil, nil)

	assert.False(t, svc.IsUserOnline("user-a"))
	assert.False(t, svc.SendDirectMessage("user-a", "ping", nil))
	assert.Equal(t, 0, svc.Snapshot().ConnectedUsers)

	conn := &memberConn{sessionID: "sess-1"}
	registry.Register("user-a", conn)

	assert.True(t, svc.IsUserOnline("user-a"))
	assert.True(t, svc.SendDirectMessage("user-a", "ping", map[string]string{"k": "v"}))
	assert.Equal(t, []string{"ping"}, conn.received())
	assert.Equal(t, 1, svc.Snapshot().ConnectedUsers)
}

func TestService_SendSystemMessageWithoutPublisher(t *testing.T) {
	svc := NewService(session.NewRegistry(), room.NewManager(), nil, nil, nil, nil)
	assert.Error(t, svc.SendSystemMessage(context.Background(), "room-1", "hello"))
}

type staticParticipantStore struct {
	members map[string]bool
}

func (s *staticParticipantStore) GetParticipant(_ context.Context, roomID, userID string) (*domain.Participant, error) {
	if s.members[roomID+"|"+userID] {
		return &domain.Participant{RoomID: roomID, UserID: userID}, nil
	}
	return nil, domain.ErrNotFound
}

type staticMessageStore struct {
	events []*domain.ChatEvent
}

func (s *staticMessageStore) Insert(_ context.Context, event *domain.ChatEvent) (*domain.ChatEvent, error) {
	return event, nil
}

func (s *staticMessageStore) ListRecent(_ context.Context, _ string, _ int) ([]*domain.ChatEvent, error) {
	return s.events, nil
}

func TestService_RoomHistoryIsGated(t *testing.T) {
	participants := &staticParticipantStore{members: map[string]bool{"room-1|user-a": true}}
	gate := room.NewGate(participants)
	store := &staticMessageStore{events: []*domain.ChatEvent{{ID: "msg-1", RoomID: "room-1", Content: "hi"}}}
	pipeline := message.NewPipeline(gate, nil, store, nil, room.NewManager())

	svc := NewService(session.NewRegistry(), room.NewManager(), gate, pipeline, nil, nil)

	events, err := svc.RoomHistory(context.Background(), "user-a", "room-1", 50)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "hi", events[0].Content)

	_, err = svc.RoomHistory(context.Background(), "stranger", "room-1", 50)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestSystemAnnouncementEncoding(t *testing.T) {
	raw, err := json.Marshal(systemAnnouncement{RoomID: "room-1", Content: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"roomId":"room-1","content":"hi"}`, string(raw))
}
