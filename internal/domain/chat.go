package domain

import "time"

// EventKind distinguishes the two kinds of persisted chat events.
type EventKind string

const (
	EventKindText  EventKind = "text"
	EventKindMedia EventKind = "media"
)

// Profile is the display snapshot of a user, resolved from the profile store.
type Profile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Participant records that a user is an authorized member of a room.
// Room membership is owned entirely by the persistent store; this core
// only reads it.
type Participant struct {
	RoomID   string    `json:"roomId"`
	UserID   string    `json:"userId"`
	Role     string    `json:"role,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}

// ChatEvent is the unit persisted and broadcast. A persisted ChatEvent is
// immutable; the store assigns ID and CreatedAt.
type ChatEvent struct {
	ID        string    `json:"id,omitempty"`
	RoomID    string    `json:"roomId"`
	SenderID  string    `json:"senderId"`
	Kind      EventKind `json:"kind"`
	Content   string    `json:"content,omitempty"`
	MediaRef  string    `json:"mediaRef,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// EnrichedEvent is a ChatEvent decorated for delivery. Enrichment is computed
// freshly per broadcast and never written back to the store.
type EnrichedEvent struct {
	ChatEvent
	Sender Profile          `json:"sender"`
	Media  *MediaAttachment `json:"media,omitempty"`
}

// MediaStatus is the approval state of an attachment.
type MediaStatus string

const (
	MediaStatusPending  MediaStatus = "pending"
	MediaStatusApproved MediaStatus = "approved"
	MediaStatusRejected MediaStatus = "rejected"
)

// MediaAttachment is an externally owned record. This core only reads it to
// verify eligibility; it never creates, approves, or expires one.
type MediaAttachment struct {
	ID        string      `json:"id"`
	OwnerID   string      `json:"ownerId"`
	URL       string      `json:"url"`
	Status    MediaStatus `json:"status"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// Expired reports whether the attachment's expiry is at or before now.
func (m *MediaAttachment) Expired(now time.Time) bool {
	return !m.ExpiresAt.After(now)
}
