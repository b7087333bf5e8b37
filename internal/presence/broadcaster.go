// Package presence fans out ephemeral signals: typing indicators and
// membership-change notices. Nothing here is persisted or queued for offline
// delivery; a signal reaches whoever is joined right now and no one else.
package presence

import (
	"log/slog"

	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/protocol"
	"github.com/nfrund/parley/internal/room"
)

// Broadcaster publishes presence signals to room multicast groups.
type Broadcaster struct {
	rooms  *room.Manager
	logger *slog.Logger
}

// NewBroadcaster creates a presence broadcaster over the given room manager.
func NewBroadcaster(rooms *room.Manager) *Broadcaster {
	return &Broadcaster{
		rooms:  rooms,
		logger: slog.Default().With("component", "presence"),
	}
}

// Typing sends a typing signal to every connection in the room except the
// typist's own.
func (b *Broadcaster) Typing(roomID string, typist room.Conn, userID, username string, isTyping bool) {
	b.rooms.BroadcastExcept(roomID, typist.SessionID(), protocol.EventUserTyping, protocol.UserTypingPayload{
		RoomID:   roomID,
		UserID:   userID,
		Username: username,
		IsTyping: isTyping,
	})
}

// Joined announces a new member to the rest of the room and acknowledges the
// join to the joining connection alone.
func (b *Broadcaster) Joined(roomID string, c room.Conn, profile domain.Profile) {
	b.rooms.BroadcastExcept(roomID, c.SessionID(), protocol.EventUserJoined, protocol.MembershipPayload{
		RoomID:   roomID,
		UserID:   profile.ID,
		Username: profile.Username,
	})
	c.Send(protocol.EventRoomJoined, protocol.RoomJoinedPayload{RoomID: roomID})
	b.logger.Debug("User joined room", "roomID", roomID, "userID", profile.ID)
}

// Left announces a departure to the remaining members. The leaver receives
// nothing; it may already be gone.
func (b *Broadcaster) Left(roomID string, c room.Conn, profile domain.Profile) {
	b.rooms.BroadcastExcept(roomID, c.SessionID(), protocol.EventUserLeft, protocol.MembershipPayload{
		RoomID:   roomID,
		UserID:   profile.ID,
		Username: profile.Username,
	})
	b.logger.Debug("User left room", "roomID", roomID, "userID", profile.ID)
}
