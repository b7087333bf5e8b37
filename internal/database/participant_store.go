package database

import (
	"context"
	"fmt"
	"time"

	"github.com/nfrund/parley/internal/domain"
	"github.com/surrealdb/surrealdb.go"
)

// participantRow mirrors the participant table schema.
type participantRow struct {
	Room     string    `json:"room"`
	User     string    `json:"user"`
	Role     string    `json:"role,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}

// SurrealParticipantStore implements domain.ParticipantStore on SurrealDB.
type SurrealParticipantStore struct {
	db *surrealdb.DB
}

// NewSurrealParticipantStore creates a new participant store.
func NewSurrealParticipantStore(db *surrealdb.DB) *SurrealParticipantStore {
	return &SurrealParticipantStore{db: db}
}

// GetParticipant returns the participant record for (room, user), or
// domain.ErrNotFound when the user is not a member of the room.
func (s *SurrealParticipantStore) GetParticipant(ctx context.Context, roomID, userID string) (*domain.Participant, error) {
	query := "SELECT * FROM participant WHERE room = $room AND user = $user"
	params := map[string]any{
		"room": roomID,
		"user": userID,
	}

	row, err := QueryOne[participantRow](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch participant: %w", err)
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}

	return &domain.Participant{
		RoomID:   row.Room,
		UserID:   row.User,
		Role:     row.Role,
		JoinedAt: row.JoinedAt,
	}, nil
}
