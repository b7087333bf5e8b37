// Package protocol defines the wire surface of the chat service: event names
// and the validated payload type for each event kind. Malformed payloads are
// rejected here, at the boundary, rather than propagating as missing fields.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Inbound event names (client to server).
const (
	EventJoinRoom    = "join_room"
	EventLeaveRoom   = "leave_room"
	EventSendMessage = "send_message"
	EventSendMedia   = "send_media"
	EventTypingStart = "typing_start"
	EventTypingStop  = "typing_stop"
)

// Outbound event names (server to client).
const (
	EventNewMessage = "new_message"
	EventUserJoined = "user_joined"
	EventUserLeft   = "user_left"
	EventUserTyping = "user_typing"
	EventRoomJoined = "room_joined"
	EventError      = "error"
)

// Envelope is the frame every WebSocket message travels in, both directions.
type Envelope struct {
	Event   string          `json:"event" validate:"required"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinRoomPayload accompanies join_room.
type JoinRoomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

// LeaveRoomPayload accompanies leave_room.
type LeaveRoomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

// SendMessagePayload accompanies send_message. A text message requires
// content and must not carry a media reference; a media message requires a
// media reference.
type SendMessagePayload struct {
	RoomID      string `json:"roomId" validate:"required"`
	Content     string `json:"content" validate:"required_if=MessageType text"`
	MessageType string `json:"messageType" validate:"required,oneof=text media"`
	MediaRef    string `json:"mediaRef" validate:"required_if=MessageType media,excluded_unless=MessageType media"`
}

// SendMediaPayload accompanies send_media.
type SendMediaPayload struct {
	RoomID   string `json:"roomId" validate:"required"`
	MediaRef string `json:"mediaRef" validate:"required"`
	Caption  string `json:"caption"`
}

// TypingPayload accompanies typing_start and typing_stop.
type TypingPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

// RoomJoinedPayload acknowledges a successful join to the joining connection
// only.
type RoomJoinedPayload struct {
	RoomID string `json:"roomId"`
}

// MembershipPayload notifies a room that a user joined or left its multicast
// group.
type MembershipPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// UserTypingPayload carries a typing signal to everyone in the room except
// the typist.
type UserTypingPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// ErrorPayload is the single client-facing error shape. Component errors are
// translated into it at the dispatch boundary.
type ErrorPayload struct {
	Message string `json:"message"`
}

// NewValidator returns the validator instance used for payload validation.
func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// Decode unmarshals and validates an event payload in one step.
func Decode[T any](raw json.RawMessage, validate *validator.Validate) (*T, error) {
	var payload T
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing payload")
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}
	if err := validate.Struct(&payload); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	return &payload, nil
}
