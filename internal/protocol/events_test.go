package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_JoinRoom(t *testing.T) {
	validate := NewValidator()

	payload, err := Decode[JoinRoomPayload](json.RawMessage(`{"roomId":"room-1"}`), validate)
	require.NoError(t, err)
	assert.Equal(t, "room-1", payload.RoomID)
}

func TestDecode_RejectsMissingFields(t *testing.T) {
	validate := NewValidator()

	tests := []struct {
		name string
		raw  string
	}{
		{"empty object", `{}`},
		{"empty roomId", `{"roomId":""}`},
		{"wrong field", `{"room":"room-1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode[JoinRoomPayload](json.RawMessage(tt.raw), validate)
			assert.Error(t, err)
		})
	}
}

func TestDecode_RejectsMalformedJSON(t *testing.T) {
	validate := NewValidator()

	_, err := Decode[JoinRoomPayload](json.RawMessage(`{not json`), validate)
	assert.Error(t, err)

	_, err = Decode[JoinRoomPayload](nil, validate)
	assert.Error(t, err)
}

func TestDecode_SendMessageVariants(t *testing.T) {
	validate := NewValidator()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"text with content", `{"roomId":"r1","content":"hi","messageType":"text"}`, false},
		{"text without content", `{"roomId":"r1","messageType":"text"}`, true},
		{"media with ref", `{"roomId":"r1","messageType":"media","mediaRef":"m-1"}`, false},
		{"media with caption", `{"roomId":"r1","content":"look","messageType":"media","mediaRef":"m-1"}`, false},
		{"media without ref", `{"roomId":"r1","messageType":"media"}`, true},
		{"text with media ref", `{"roomId":"r1","content":"hi","messageType":"text","mediaRef":"m-1"}`, true},
		{"unknown type", `{"roomId":"r1","content":"hi","messageType":"sticker"}`, true},
		{"missing type", `{"roomId":"r1","content":"hi"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode[SendMessagePayload](json.RawMessage(tt.raw), validate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnvelope_RoundTrip(t *testing.T) {
	env := Envelope{
		Event:   EventSendMessage,
		Payload: json.RawMessage(`{"roomId":"r1","content":"hi","messageType":"text"}`),
	}

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, EventSendMessage, decoded.Event)
	assert.JSONEq(t, string(env.Payload), string(decoded.Payload))
}
