package model

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation links exactly two participants. At most one conversation
// exists per unordered pair; PairKey carries the unique index that
// enforces it.
type Conversation struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Participants []string           `json:"participants" bson:"participants"`
	PairKey      string             `json:"-" bson:"pair_key"`
	LastMessage  *MessagePreview    `json:"lastMessage" bson:"last_message,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updated_at"`
}

// MessagePreview stores the most recent message alongside the conversation
// so listings don't need a second query.
type MessagePreview struct {
	MessageID primitive.ObjectID `json:"messageId" bson:"message_id"`
	Sender    string             `json:"sender" bson:"sender"`
	Text      string             `json:"text" bson:"text"`
	SentAt    time.Time          `json:"sentAt" bson:"sent_at"`
}

// ConversationView is the listing projection: the conversation from one
// participant's point of view, with the opponent resolved.
type ConversationView struct {
	ID          string          `json:"_id"`
	Recipient   *UserProfile    `json:"recipient"`
	LastMessage *MessagePreview `json:"lastMessage"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// PairKey normalizes an unordered participant pair into the unique key
// stored on the conversation. PairKey(a, b) == PairKey(b, a).
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

// Opponent returns the first participant different from userID.
func (c *Conversation) Opponent(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}
