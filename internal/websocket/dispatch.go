package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/message"
	"github.com/nfrund/parley/internal/protocol"
)

// errInvalidPayload marks boundary validation failures so they translate to
// a distinct client-facing message.
var errInvalidPayload = errors.New("invalid payload")

// handleFrame decodes one inbound frame and dispatches it. Every failure is
// contained here: logged, answered with a single error event to the
// originating connection, and never allowed to crash the connection or
// affect other handlers.
func (ct *Controller) handleFrame(client *Client, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			ct.logger.Error("Event handler panicked", "userID", client.userID, "panic", r)
			client.Send(protocol.EventError, protocol.ErrorPayload{Message: "internal error"})
		}
	}()

	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
		client.Send(protocol.EventError, protocol.ErrorPayload{Message: "invalid payload"})
		return
	}

	if ct.deps.Limiter != nil && !ct.deps.Limiter.Allow(client.userID) {
		client.Send(protocol.EventError, protocol.ErrorPayload{Message: "rate limit exceeded"})
		return
	}

	// Deliberately not the connection's context: a disconnect mid-flight must
	// not cancel an in-flight persist. The write completes and the broadcast
	// goes to whoever is still joined.
	ctx := context.Background()

	var err error
	switch env.Event {
	case protocol.EventJoinRoom:
		err = ct.handleJoin(ctx, client, env.Payload)
	case protocol.EventLeaveRoom:
		err = ct.handleLeave(ctx, client, env.Payload)
	case protocol.EventSendMessage:
		err = ct.handleSendMessage(ctx, client, env.Payload)
	case protocol.EventSendMedia:
		err = ct.handleSendMedia(ctx, client, env.Payload)
	case protocol.EventTypingStart:
		err = ct.handleTyping(client, env.Payload, true)
	case protocol.EventTypingStop:
		err = ct.handleTyping(client, env.Payload, false)
	default:
		err = fmt.Errorf("%w: unknown event %q", errInvalidPayload, env.Event)
	}

	if err != nil {
		ct.logger.Warn("Event handler failed", "event", env.Event, "userID", client.userID, "error", err)
		client.Send(protocol.EventError, protocol.ErrorPayload{Message: clientMessage(err)})
	}
}

// handleJoin authorizes the user against the persistent membership list and
// only then adds the connection to the room's multicast group.
func (ct *Controller) handleJoin(ctx context.Context, client *Client, raw json.RawMessage) error {
	p, err := protocol.Decode[protocol.JoinRoomPayload](raw, ct.validate)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidPayload, err)
	}

	if _, err := ct.deps.Gate.Authorize(ctx, client.userID, p.RoomID); err != nil {
		return err
	}

	ct.deps.Rooms.Join(p.RoomID, client)
	ct.deps.Presence.Joined(p.RoomID, client, client.profile)
	return nil
}

// handleLeave removes the connection from the multicast group. Leaving a
// room already left is a no-op: no broadcast, no error.
func (ct *Controller) handleLeave(_ context.Context, client *Client, raw json.RawMessage) error {
	p, err := protocol.Decode[protocol.LeaveRoomPayload](raw, ct.validate)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidPayload, err)
	}

	if ct.deps.Rooms.Leave(p.RoomID, client) {
		ct.deps.Presence.Left(p.RoomID, client, client.profile)
	}
	return nil
}

func (ct *Controller) handleSendMessage(ctx context.Context, client *Client, raw json.RawMessage) error {
	p, err := protocol.Decode[protocol.SendMessagePayload](raw, ct.validate)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidPayload, err)
	}

	_, err = ct.deps.Pipeline.Submit(ctx, message.Sender{UserID: client.userID, Profile: client.profile}, message.Input{
		RoomID:   p.RoomID,
		Kind:     domain.EventKind(p.MessageType),
		Content:  p.Content,
		MediaRef: p.MediaRef,
	})
	return err
}

func (ct *Controller) handleSendMedia(ctx context.Context, client *Client, raw json.RawMessage) error {
	p, err := protocol.Decode[protocol.SendMediaPayload](raw, ct.validate)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidPayload, err)
	}

	_, err = ct.deps.Pipeline.Submit(ctx, message.Sender{UserID: client.userID, Profile: client.profile}, message.Input{
		RoomID:   p.RoomID,
		Kind:     domain.EventKindMedia,
		Content:  p.Caption,
		MediaRef: p.MediaRef,
	})
	return err
}

// handleTyping fans a typing signal out to the rest of the room. A typist
// that is not currently joined produces nothing: typing signals are
// ephemeral and carry no error channel.
func (ct *Controller) handleTyping(client *Client, raw json.RawMessage, isTyping bool) error {
	p, err := protocol.Decode[protocol.TypingPayload](raw, ct.validate)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidPayload, err)
	}

	if !ct.deps.Rooms.Contains(p.RoomID, client.sessionID) {
		return nil
	}

	ct.deps.Presence.Typing(p.RoomID, client, client.userID, client.profile.Username, isTyping)
	return nil
}

// clientMessage is the single translation point from component errors to the
// generic client-facing error event.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, errInvalidPayload):
		return "invalid payload"
	case errors.Is(err, domain.ErrNotAuthorized):
		return "not authorized for this room"
	case isMediaRejection(err):
		return "media attachment not eligible"
	case errors.Is(err, domain.ErrPersistenceFailed):
		return "message could not be saved"
	default:
		return "internal error"
	}
}
