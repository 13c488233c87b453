// Package server defines the wire events exchanged with clients and helpers
// shared across client and hub logic.
package server

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/citychat/citychat/internal/chat"
)

// Inbound event types accepted from clients.
const (
	eventJoinRoom    = "join_room"
	eventSendMessage = "send_message"
)

// Outbound event types emitted to clients.
const (
	eventJoinedRoom      = "joined_room"
	eventUserCountUpdate = "user_count_update"
	eventReceiveMessage  = "receive_message"
	eventError           = "error"
)

// inboundEvent is the envelope every client frame must decode to. The payload
// stays raw until the event type selects its shape.
type inboundEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// coordinatesPayload carries a join_room submission. Pointer fields
// distinguish a missing coordinate from a zero one, so absence is reported
// as a separate error from out-of-range values.
type coordinatesPayload struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}

type sendMessagePayload struct {
	Text string `json:"text"`
}

type outboundEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type joinedRoomData struct {
	Room string `json:"room"`
}

type userCountData struct {
	Count int `json:"count"`
}

type receiveMessageData struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

type errorData struct {
	Message string `json:"message"`
}

func encodeJoinedRoom(room chat.RoomID) []byte {
	return mustEncode(outboundEvent{Type: eventJoinedRoom, Data: joinedRoomData{Room: string(room)}})
}

func encodeUserCount(count int) []byte {
	return mustEncode(outboundEvent{Type: eventUserCountUpdate, Data: userCountData{Count: count}})
}

func encodeReceiveMessage(msg chat.Message) []byte {
	return mustEncode(outboundEvent{Type: eventReceiveMessage, Data: receiveMessageData{
		Text:      msg.Text,
		Timestamp: msg.SentAt.UTC().Format(time.RFC3339),
	}})
}

func encodeError(message string) []byte {
	return mustEncode(outboundEvent{Type: eventError, Data: errorData{Message: message}})
}

// mustEncode marshals an outbound event. Every outbound shape is a plain
// struct of strings and ints, so a marshal failure is a programming error.
func mustEncode(evt outboundEvent) []byte {
	raw, err := json.Marshal(evt)
	if err != nil {
		slog.Error("cannot encode outbound event", "type", evt.Type, "error", err)
		return []byte(`{"type":"error","data":{"message":"internal error"}}`)
	}
	return raw
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
