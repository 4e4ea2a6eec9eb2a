package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a chat message in MongoDB. Messages are immutable once
// written; CreatedAt is assigned by the server at receipt time so ordering
// within a conversation follows server observation, not client clocks.
type Message struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID `json:"conversationId" bson:"conversation_id"`
	Sender         string             `json:"sender" bson:"sender"`
	Text           string             `json:"text" bson:"text"`
	CreatedAt      time.Time          `json:"createdAt" bson:"created_at"`
}

// Preview projects the message into the embedded form carried on its
// conversation.
func (m *Message) Preview() *MessagePreview {
	return &MessagePreview{
		MessageID: m.ID,
		Sender:    m.Sender,
		Text:      m.Text,
		SentAt:    m.CreatedAt,
	}
}
