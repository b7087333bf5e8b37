// Package message owns the write-then-broadcast contract: a chat event is
// validated, persisted, enriched, and only then fanned out to the room's
// multicast group. Broadcast happens if and only if persistence succeeded.
package message

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/media"
	"github.com/nfrund/parley/internal/protocol"
	"github.com/nfrund/parley/internal/room"
)

// Broadcaster is the fan-out surface the pipeline publishes to. Satisfied by
// room.Manager.
type Broadcaster interface {
	Broadcast(roomID, event string, payload any)
}

// Sender identifies the submitting user together with the profile snapshot
// captured at handshake time. The snapshot is the enrichment fallback when
// the live profile read fails.
type Sender struct {
	UserID  string
	Profile domain.Profile
}

// Input is one submission to the pipeline.
type Input struct {
	RoomID   string
	Kind     domain.EventKind
	Content  string
	MediaRef string
}

// Pipeline validates, persists, enriches, and broadcasts chat events.
type Pipeline struct {
	gate     *room.Gate
	verifier *media.Verifier
	messages domain.MessageStore
	profiles domain.ProfileStore
	rooms    Broadcaster
	logger   *slog.Logger
}

// NewPipeline wires the pipeline's collaborators.
func NewPipeline(gate *room.Gate, verifier *media.Verifier, messages domain.MessageStore, profiles domain.ProfileStore, rooms Broadcaster) *Pipeline {
	return &Pipeline{
		gate:     gate,
		verifier: verifier,
		messages: messages,
		profiles: profiles,
		rooms:    rooms,
		logger:   slog.Default().With("component", "message-pipeline"),
	}
}

// Submit runs the strictly ordered pipeline:
//
//  1. authorization (and media eligibility for media events) — nothing is
//     persisted on rejection;
//  2. persistence — no broadcast on failure;
//  3. best-effort sender enrichment — degrades to the handshake snapshot,
//     never blocks delivery;
//  4. broadcast to the room's current multicast group.
//
// Room ordering as observed by clients is the order persistence completes,
// not submission order; two racing sends on one room may swap.
func (p *Pipeline) Submit(ctx context.Context, sender Sender, in Input) (*domain.EnrichedEvent, error) {
	var attachment *domain.MediaAttachment

	switch in.Kind {
	case domain.EventKindMedia:
		// The verifier re-checks room authorization before the ownership,
		// approval, and expiry conditions.
		a, err := p.verifier.Verify(ctx, sender.UserID, in.RoomID, in.MediaRef)
		if err != nil {
			return nil, err
		}
		attachment = a
	default:
		// Only verified media events may carry an attachment reference. A
		// text event smuggling one in would persist it unverified.
		in.MediaRef = ""
		if _, err := p.gate.Authorize(ctx, sender.UserID, in.RoomID); err != nil {
			return nil, err
		}
	}

	persisted, err := p.messages.Insert(ctx, &domain.ChatEvent{
		RoomID:   in.RoomID,
		SenderID: sender.UserID,
		Kind:     in.Kind,
		Content:  in.Content,
		MediaRef: in.MediaRef,
	})
	if err != nil {
		p.logger.Error("Failed to persist chat event", "roomID", in.RoomID, "senderID", sender.UserID, "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistenceFailed, err)
	}

	enriched := &domain.EnrichedEvent{
		ChatEvent: *persisted,
		Sender:    p.resolveSender(ctx, sender),
		Media:     attachment,
	}

	p.rooms.Broadcast(in.RoomID, protocol.EventNewMessage, enriched)
	return enriched, nil
}

// resolveSender reads the sender's current profile, falling back to the
// handshake snapshot when the read fails. Enrichment is non-critical: it
// never fails the send.
func (p *Pipeline) resolveSender(ctx context.Context, sender Sender) domain.Profile {
	profile, err := p.profiles.GetProfile(ctx, sender.UserID)
	if err != nil {
		p.logger.Debug("Enrichment degraded, using cached profile snapshot", "userID", sender.UserID, "error", err)
		return sender.Profile
	}
	return *profile
}

// History returns up to limit events for a room, oldest first.
func (p *Pipeline) History(ctx context.Context, roomID string, limit int) ([]*domain.ChatEvent, error) {
	return p.messages.ListRecent(ctx, roomID, limit)
}
