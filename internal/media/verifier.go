// Package media decides whether an attachment reference may be bound to an
// outgoing message. Attachments are created, classified, and expired by an
// external pipeline; this verifier only reads them.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/room"
)

// Verifier checks that a media reference is eligible to be attached by a
// given sender in a given room.
type Verifier struct {
	gate   *room.Gate
	store  domain.MediaStore
	logger *slog.Logger

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewVerifier creates a verifier that delegates room authorization to the
// gate and attachment lookup to the media store.
func NewVerifier(gate *room.Gate, store domain.MediaStore) *Verifier {
	return &Verifier{
		gate:   gate,
		store:  store,
		logger: slog.Default().With("component", "media-verifier"),
		now:    time.Now,
	}
}

// Verify returns the attachment when every eligibility condition holds:
// the sender is an authorized participant of the room, the attachment
// exists, is owned by the sender, carries approved status, and expires
// strictly after now. Each rejection reason is a distinct sentinel error for
// logging and testing; callers coalesce them at the client boundary.
func (v *Verifier) Verify(ctx context.Context, senderID, roomID, mediaRef string) (*domain.MediaAttachment, error) {
	if _, err := v.gate.Authorize(ctx, senderID, roomID); err != nil {
		v.logger.Info("Media rejected: sender not a participant", "senderID", senderID, "roomID", roomID, "mediaRef", mediaRef)
		return nil, err
	}

	attachment, err := v.store.GetAttachment(ctx, mediaRef)
	if err != nil {
		v.logger.Info("Media rejected: attachment not found", "mediaRef", mediaRef, "error", err)
		return nil, fmt.Errorf("%w: %s", domain.ErrMediaNotFound, mediaRef)
	}

	if attachment.OwnerID != senderID {
		v.logger.Warn("Media rejected: ownership mismatch", "mediaRef", mediaRef, "senderID", senderID, "ownerID", attachment.OwnerID)
		return nil, domain.ErrMediaNotOwner
	}

	if attachment.Status != domain.MediaStatusApproved {
		v.logger.Info("Media rejected: not approved", "mediaRef", mediaRef, "status", attachment.Status)
		return nil, domain.ErrMediaNotApproved
	}

	if attachment.Expired(v.now()) {
		v.logger.Info("Media rejected: expired", "mediaRef", mediaRef, "expiresAt", attachment.ExpiresAt)
		return nil, domain.ErrMediaExpired
	}

	return attachment, nil
}
