// Package chat is the service facade over the messaging core. The HTTP layer
// talks to it instead of reaching into the registry, room manager, or
// pipeline directly.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/message"
	"github.com/nfrund/parley/internal/protocol"
	"github.com/nfrund/parley/internal/pubsub"
	"github.com/nfrund/parley/internal/room"
	"github.com/nfrund/parley/internal/session"
)

// systemSender is the synthetic identity stamped on announcements.
var systemSender = domain.Profile{ID: "system", Username: "system"}

// systemAnnouncement is the bus payload for TopicSystemMessage.
type systemAnnouncement struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
}

// Stats is a point-in-time snapshot of connection and room state.
type Stats struct {
	ConnectedUsers int `json:"connectedUsers"`
}

// Service exposes the operations the HTTP layer needs: history reads, online
// checks, direct delivery, and system announcements.
type Service struct {
	registry   *session.Registry
	rooms      *room.Manager
	gate       *room.Gate
	pipeline   *message.Pipeline
	publisher  pubsub.Publisher
	subscriber pubsub.Subscriber
	logger     *slog.Logger
}

// NewService wires the facade. Publisher and subscriber may share one bridge.
func NewService(registry *session.Registry, rooms *room.Manager, gate *room.Gate, pipeline *message.Pipeline, publisher pubsub.Publisher, subscriber pubsub.Subscriber) *Service {
	return &Service{
		registry:   registry,
		rooms:      rooms,
		gate:       gate,
		pipeline:   pipeline,
		publisher:  publisher,
		subscriber: subscriber,
		logger:     slog.Default().With("component", "chat-service"),
	}
}

// Start attaches the bus subscriptions. It returns once the subscriptions
// are registered; delivery runs until ctx is canceled.
func (s *Service) Start(ctx context.Context) error {
	if s.subscriber == nil {
		return nil
	}

	if err := s.subscriber.Subscribe(ctx, pubsub.TopicSystemMessage, s.handleSystemMessage); err != nil {
		return fmt.Errorf("failed to subscribe to system messages: %w", err)
	}
	if err := s.subscriber.Subscribe(ctx, pubsub.TopicClientConnected, s.logLifecycle("connected")); err != nil {
		return fmt.Errorf("failed to subscribe to lifecycle events: %w", err)
	}
	if err := s.subscriber.Subscribe(ctx, pubsub.TopicClientDisconnected, s.logLifecycle("disconnected")); err != nil {
		return fmt.Errorf("failed to subscribe to lifecycle events: %w", err)
	}
	return nil
}

// SendSystemMessage queues a system announcement for a room. The message is
// synthetic: it is broadcast to whoever is joined right now and never
// persisted, so it does not appear in history.
func (s *Service) SendSystemMessage(ctx context.Context, roomID, content string) error {
	if s.publisher == nil {
		return fmt.Errorf("no publisher configured")
	}

	payload, err := json.Marshal(systemAnnouncement{RoomID: roomID, Content: content})
	if err != nil {
		return fmt.Errorf("failed to encode announcement: %w", err)
	}

	return s.publisher.Publish(ctx, pubsub.Message{
		Topic:   pubsub.TopicSystemMessage,
		Payload: payload,
	})
}

// handleSystemMessage fans a queued announcement out to the room's current
// multicast group.
func (s *Service) handleSystemMessage(_ context.Context, msg pubsub.Message) error {
	var a systemAnnouncement
	if err := json.Unmarshal(msg.Payload, &a); err != nil {
		s.logger.Error("Dropping malformed system announcement", "error", err)
		return nil
	}

	s.rooms.Broadcast(a.RoomID, protocol.EventNewMessage, &domain.EnrichedEvent{
		ChatEvent: domain.ChatEvent{
			RoomID:    a.RoomID,
			SenderID:  systemSender.ID,
			Kind:      domain.EventKindText,
			Content:   a.Content,
			CreatedAt: time.Now().UTC(),
		},
		Sender: systemSender,
	})
	return nil
}

func (s *Service) logLifecycle(what string) pubsub.Handler {
	return func(_ context.Context, msg pubsub.Message) error {
		s.logger.Info("Client "+what, "userID", msg.UserID, "online", s.registry.Count())
		return nil
	}
}

// ConnectedUsers reports how many users currently hold a live connection.
func (s *Service) ConnectedUsers() int {
	return s.registry.Count()
}

// IsUserOnline reports whether the user has a live connection.
func (s *Service) IsUserOnline(userID string) bool {
	return s.registry.Online(userID)
}

// SendDirectMessage delivers a payload straight to a user's connection,
// bypassing rooms. It reports whether the user was online to receive it.
func (s *Service) SendDirectMessage(userID, event string, payload any) bool {
	return s.registry.SendDirect(userID, event, payload)
}

// RoomHistory returns up to limit persisted events for a room, oldest first.
// The reader must be an authorized participant: history reads pass the same
// gate as sends.
func (s *Service) RoomHistory(ctx context.Context, userID, roomID string, limit int) ([]*domain.ChatEvent, error) {
	if _, err := s.gate.Authorize(ctx, userID, roomID); err != nil {
		return nil, err
	}
	return s.pipeline.History(ctx, roomID, limit)
}

// Snapshot reports current connection counts for the stats endpoint.
func (s *Service) Snapshot() Stats {
	return Stats{ConnectedUsers: s.ConnectedUsers()}
}
