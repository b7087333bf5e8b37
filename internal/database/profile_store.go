package database

import (
	"context"
	"fmt"

	"github.com/nfrund/parley/internal/domain"
	"github.com/surrealdb/surrealdb.go"
)

// profileRow mirrors the profile table schema. Profiles are keyed by the
// stable user identifier issued by the identity provider.
type profileRow struct {
	User        string `json:"user"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// SurrealProfileStore implements domain.ProfileStore on SurrealDB.
type SurrealProfileStore struct {
	db *surrealdb.DB
}

// NewSurrealProfileStore creates a new profile store.
func NewSurrealProfileStore(db *surrealdb.DB) *SurrealProfileStore {
	return &SurrealProfileStore{db: db}
}

// GetProfile returns the display profile for a user, or
// domain.ErrProfileNotFound when the identity has no profile record.
func (s *SurrealProfileStore) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	query := "SELECT * FROM profile WHERE user = $user"
	params := map[string]any{
		"user": userID,
	}

	row, err := QueryOne[profileRow](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, userID)
	}

	return &domain.Profile{
		ID:          row.User,
		Username:    row.Username,
		DisplayName: row.DisplayName,
		AvatarURL:   row.AvatarURL,
	}, nil
}
