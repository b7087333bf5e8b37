package database

import (
	"context"
	"fmt"
	"time"

	"github.com/nfrund/parley/internal/domain"
	"github.com/surrealdb/surrealdb.go"
)

// mediaRow mirrors the media table schema. Attachments are created and
// approved by an external pipeline; this core only reads them.
type mediaRow struct {
	Ref       string    `json:"ref"`
	Owner     string    `json:"owner"`
	URL       string    `json:"url"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SurrealMediaStore implements domain.MediaStore on SurrealDB.
type SurrealMediaStore struct {
	db *surrealdb.DB
}

// NewSurrealMediaStore creates a new media store.
func NewSurrealMediaStore(db *surrealdb.DB) *SurrealMediaStore {
	return &SurrealMediaStore{db: db}
}

// GetAttachment returns the attachment record for a media reference, or
// domain.ErrNotFound.
func (s *SurrealMediaStore) GetAttachment(ctx context.Context, id string) (*domain.MediaAttachment, error) {
	query := "SELECT * FROM media WHERE ref = $ref"
	params := map[string]any{
		"ref": id,
	}

	row, err := QueryOne[mediaRow](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch media attachment: %w", err)
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}

	return &domain.MediaAttachment{
		ID:        row.Ref,
		OwnerID:   row.Owner,
		URL:       row.URL,
		Status:    domain.MediaStatus(row.Status),
		ExpiresAt: row.ExpiresAt,
	}, nil
}
