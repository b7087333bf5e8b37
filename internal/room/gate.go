package room

import (
	"context"
	"log/slog"

	"github.com/nfrund/parley/internal/domain"
)

// Gate validates room authorization against the persistent store. It runs on
// the hot path: every room-scoped operation passes through Authorize before
// touching a multicast group or the message pipeline.
type Gate struct {
	participants domain.ParticipantStore
	logger       *slog.Logger
}

// NewGate creates a membership gate backed by the given participant store.
func NewGate(participants domain.ParticipantStore) *Gate {
	return &Gate{
		participants: participants,
		logger:       slog.Default().With("component", "room-gate"),
	}
}

// Authorize confirms the user is an authorized participant of the room.
// Absence and lookup failure both yield ErrNotAuthorized: the distinction
// between "no such room" and "not a member" is deliberately not surfaced, so
// clients cannot enumerate room existence.
func (g *Gate) Authorize(ctx context.Context, userID, roomID string) (*domain.Participant, error) {
	p, err := g.participants.GetParticipant(ctx, roomID, userID)
	if err != nil {
		g.logger.Debug("Authorization denied", "userID", userID, "roomID", roomID, "cause", err)
		return nil, domain.ErrNotAuthorized
	}
	return p, nil
}
