package domain

import "context"

// The contracts below are the narrow surface this core depends on. They live
// in the domain because they are requirements OF the domain, not of any
// particular database or identity provider implementation.

// MessageStore persists chat events and serves the history read path.
type MessageStore interface {
	// Insert persists the event and returns the stored record with its
	// store-assigned ID and creation timestamp.
	Insert(ctx context.Context, event *ChatEvent) (*ChatEvent, error)

	// ListRecent returns up to limit events for a room, oldest first.
	ListRecent(ctx context.Context, roomID string, limit int) ([]*ChatEvent, error)
}

// MediaStore reads externally owned media attachment records.
type MediaStore interface {
	// GetAttachment returns the attachment or ErrNotFound.
	GetAttachment(ctx context.Context, id string) (*MediaAttachment, error)
}

// ParticipantStore reads room membership from the persistent store.
type ParticipantStore interface {
	// GetParticipant returns the participant record for (room, user) or
	// ErrNotFound.
	GetParticipant(ctx context.Context, roomID, userID string) (*Participant, error)
}

// ProfileStore reads user display profiles.
type ProfileStore interface {
	// GetProfile returns the profile for a user or ErrProfileNotFound.
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}

// IdentityVerifier validates a bearer credential with the external identity
// provider and returns the stable user identifier it names.
type IdentityVerifier interface {
	// Verify returns the user ID for a valid credential, or
	// ErrUnauthenticated for an invalid or expired one.
	Verify(ctx context.Context, credential string) (string, error)
}

// RateLimiter is consulted by the connection controller before processing an
// inbound event. Implementations decide the policy; a nil limiter means no
// limiting.
type RateLimiter interface {
	// Allow reports whether the user may perform another operation now.
	Allow(userID string) bool
}
