package database

import (
	"context"
	"fmt"
	"time"

	"github.com/nfrund/parley/internal/domain"
	"github.com/surrealdb/surrealdb.go"
)

// messageRow mirrors the message table schema.
type messageRow struct {
	ID        string    `json:"id,omitempty"`
	Room      string    `json:"room"`
	Sender    string    `json:"sender"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content,omitempty"`
	MediaRef  string    `json:"mediaRef,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r *messageRow) toDomain() *domain.ChatEvent {
	return &domain.ChatEvent{
		ID:        r.ID,
		RoomID:    r.Room,
		SenderID:  r.Sender,
		Kind:      domain.EventKind(r.Kind),
		Content:   r.Content,
		MediaRef:  r.MediaRef,
		CreatedAt: r.CreatedAt,
	}
}

// SurrealMessageStore implements domain.MessageStore on SurrealDB.
type SurrealMessageStore struct {
	db *surrealdb.DB
}

// NewSurrealMessageStore creates a new message store.
func NewSurrealMessageStore(db *surrealdb.DB) *SurrealMessageStore {
	return &SurrealMessageStore{db: db}
}

// Insert persists a chat event. The store assigns the record ID and the
// creation timestamp so clients cannot forge either.
func (s *SurrealMessageStore) Insert(ctx context.Context, event *domain.ChatEvent) (*domain.ChatEvent, error) {
	query := `CREATE message SET
		room = $room,
		sender = $sender,
		kind = $kind,
		content = $content,
		mediaRef = $mediaRef,
		createdAt = time::now()
	RETURN AFTER`
	params := map[string]any{
		"room":     event.RoomID,
		"sender":   event.SenderID,
		"kind":     string(event.Kind),
		"content":  event.Content,
		"mediaRef": event.MediaRef,
	}

	created, err := QueryOne[messageRow](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("message was not created: %w", domain.ErrPersistenceFailed)
	}

	return created.toDomain(), nil
}

// ListRecent returns up to limit events for a room, oldest first.
func (s *SurrealMessageStore) ListRecent(ctx context.Context, roomID string, limit int) ([]*domain.ChatEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := "SELECT * FROM message WHERE room = $room ORDER BY createdAt DESC LIMIT $limit"
	params := map[string]any{
		"room":  roomID,
		"limit": limit,
	}

	rows, err := Query[messageRow](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	events := make([]*domain.ChatEvent, len(rows))
	for i := range rows {
		events[i] = rows[i].toDomain()
	}

	// Reverse so callers receive oldest first.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}

	return events, nil
}
