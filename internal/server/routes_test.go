package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/parley/internal/chat"
	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/identity"
	"github.com/nfrund/parley/internal/message"
	"github.com/nfrund/parley/internal/pubsub"
	"github.com/nfrund/parley/internal/room"
	"github.com/nfrund/parley/internal/session"
	"github.com/nfrund/parley/internal/websocket"
)

type memberStore struct {
	members map[string]bool
}

func (s *memberStore) GetParticipant(_ context.Context, roomID, userID string) (*domain.Participant, error) {
	if s.members[roomID+"|"+userID] {
		return &domain.Participant{RoomID: roomID, UserID: userID}, nil
	}
	return nil, domain.ErrNotFound
}

type historyStore struct {
	events []*domain.ChatEvent
}

func (s *historyStore) Insert(_ context.Context, event *domain.ChatEvent) (*domain.ChatEvent, error) {
	return event, nil
}

func (s *historyStore) ListRecent(_ context.Context, _ string, _ int) ([]*domain.ChatEvent, error) {
	return s.events, nil
}

// newTestServer assembles the HTTP surface over in-memory collaborators.
func newTestServer(t *testing.T) (*Server, *identity.JWTVerifier) {
	t.Helper()

	verifier := identity.NewJWTVerifier("test-secret", "parley-test")

	participants := &memberStore{members: map[string]bool{"room-1|user-a": true}}
	gate := room.NewGate(participants)
	rooms := room.NewManager()
	store := &historyStore{events: []*domain.ChatEvent{
		{ID: "msg-1", RoomID: "room-1", SenderID: "user-a", Kind: domain.EventKindText, Content: "hello"},
	}}
	pipeline := message.NewPipeline(gate, nil, store, nil, rooms)

	bridge := pubsub.NewWatermillBridge()
	t.Cleanup(func() { bridge.Close() })

	srv := &Server{
		E:        echo.New(),
		Chat:     chat.NewService(session.NewRegistry(), rooms, gate, pipeline, bridge, bridge),
		verifier: verifier,
		ws:       websocket.NewController(websocket.Deps{Verifier: verifier}),
	}
	srv.RegisterRoutes()
	return srv, verifier
}

func bearerFor(t *testing.T, verifier *identity.JWTVerifier, userID string) string {
	t.Helper()

	token, err := verifier.Issue(userID, time.Minute)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.E.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStats(t *testing.T) {
	srv, verifier := newTestServer(t)

	t.Run("requires authentication", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		rec := httptest.NewRecorder()
		srv.E.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("returns connection counts", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		req.Header.Set("Authorization", bearerFor(t, verifier, "user-a"))
		rec := httptest.NewRecorder()
		srv.E.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"connectedUsers":0}`, rec.Body.String())
	})
}

func TestRoomHistoryEndpoint(t *testing.T) {
	srv, verifier := newTestServer(t)

	t.Run("member reads history", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/room-1/messages", nil)
		req.Header.Set("Authorization", bearerFor(t, verifier, "user-a"))
		rec := httptest.NewRecorder()
		srv.E.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "hello")
	})

	t.Run("non member is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/room-1/messages", nil)
		req.Header.Set("Authorization", bearerFor(t, verifier, "stranger"))
		rec := httptest.NewRecorder()
		srv.E.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("invalid limit is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/room-1/messages?limit=banana", nil)
		req.Header.Set("Authorization", bearerFor(t, verifier, "user-a"))
		rec := httptest.NewRecorder()
		srv.E.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSystemMessageEndpoint(t *testing.T) {
	srv, verifier := newTestServer(t)

	t.Run("queues an announcement", func(t *testing.T) {
		body := strings.NewReader(`{"content":"maintenance at midnight"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms/room-1/system", body)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set("Authorization", bearerFor(t, verifier, "user-a"))
		rec := httptest.NewRecorder()
		srv.E.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		body := strings.NewReader(`{}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms/room-1/system", body)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set("Authorization", bearerFor(t, verifier, "user-a"))
		rec := httptest.NewRecorder()
		srv.E.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestWebSocketRouteRejectsMissingCredential(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	srv.E.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
