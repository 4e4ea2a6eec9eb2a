package event

import (
	"encoding/json"
	"time"
)

const (
	// client -> server
	EventSendMessage = "sendMessage"

	// server -> client
	EventMessageReceived   = "messageReceived"
	EventMessageSent       = "messageSent"
	EventUserStatusChanged = "userStatusChanged"
	EventError             = "error"
)

// Error codes carried by EventError payloads.
const (
	CodeValidationFailed = "validation_failed"
	CodeDeliveryFailed   = "delivery_failed"
	CodeUnknownEvent     = "unknown_event"
)

type WsEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SendMessagePayload is the inbound chat event. SenderID is optional; when
// present it must match the connection's authenticated identity.
type SendMessagePayload struct {
	RecipientID string `json:"recipientId"`
	Text        string `json:"text"`
	SenderID    string `json:"senderId,omitempty"`
}

// MessagePayload is emitted both as messageReceived (to the recipient) and
// messageSent (back to the sender). It always carries the persisted record,
// server-assigned id and timestamp included.
type MessagePayload struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Sender         string    `json:"sender"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`
}

type UserStatusPayload struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// New wraps a payload into an envelope. Payload types here marshal
// unconditionally, so the error from json.Marshal is dropped.
func New(name string, payload any) WsEvent {
	raw, _ := json.Marshal(payload)
	return WsEvent{Event: name, Payload: raw}
}
