package hub

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opuofficial/chat-application-server/internal/event"
	"github.com/opuofficial/chat-application-server/internal/model"
	"github.com/opuofficial/chat-application-server/internal/repo"
)

// Router persists and delivers chat messages. A message is durably stored
// before any delivery attempt; if the recipient has no live connection the
// stored record is all that happens, and the recipient picks it up from
// history later. The sender always gets an ack carrying the persisted
// record.
type Router struct {
	registry      *Registry
	conversations repo.ConversationRepository
	messages      repo.MessageRepository
	logger        *zap.Logger
}

func NewRouter(registry *Registry, conversations repo.ConversationRepository, messages repo.MessageRepository, logger *zap.Logger) *Router {
	return &Router{
		registry:      registry,
		conversations: conversations,
		messages:      messages,
		logger:        logger,
	}
}

// Route handles one sendMessage event from the sender's connection.
func (r *Router) Route(ctx context.Context, sender Handle, payload event.SendMessagePayload) {
	if payload.RecipientID == "" || payload.Text == "" {
		sender.Send(event.New(event.EventError, event.ErrorPayload{
			Code:    event.CodeValidationFailed,
			Message: "recipientId and text are required",
		}))
		return
	}

	// The sender identity is the connection's bound user; a declared
	// senderId that disagrees is a spoof attempt.
	if payload.SenderID != "" && payload.SenderID != sender.UserID() {
		r.logger.Warn("sender mismatch on message",
			zap.String("bound_user", sender.UserID()),
			zap.String("declared_sender", payload.SenderID),
		)
		sender.Send(event.New(event.EventError, event.ErrorPayload{
			Code:    event.CodeValidationFailed,
			Message: "sender does not match authenticated user",
		}))
		return
	}

	conversation, err := r.conversations.FindOrCreate(ctx, sender.UserID(), payload.RecipientID)
	if err != nil {
		r.logger.Error("failed to resolve conversation",
			zap.String("sender", sender.UserID()),
			zap.String("recipient", payload.RecipientID),
			zap.Error(err),
		)
		sender.Send(event.New(event.EventError, event.ErrorPayload{
			Code:    event.CodeDeliveryFailed,
			Message: "could not resolve conversation",
		}))
		return
	}

	msg := &model.Message{
		ConversationID: conversation.ID,
		Sender:         sender.UserID(),
		Text:           payload.Text,
		CreatedAt:      time.Now().UTC(),
	}

	if err := r.messages.InsertMessage(ctx, msg); err != nil {
		sender.Send(event.New(event.EventError, event.ErrorPayload{
			Code:    event.CodeDeliveryFailed,
			Message: "message could not be stored",
		}))
		return
	}

	// The message is durable at this point; a stale lastMessage pointer is
	// tolerated.
	if err := r.conversations.UpdateLastMessage(ctx, conversation.ID, msg.Preview()); err != nil {
		r.logger.Error("failed to update conversation last message",
			zap.String("conversation_id", conversation.ID.Hex()),
			zap.Error(err),
		)
	}

	out := event.MessagePayload{
		ID:             msg.ID.Hex(),
		ConversationID: conversation.ID.Hex(),
		Sender:         msg.Sender,
		Text:           msg.Text,
		CreatedAt:      msg.CreatedAt,
	}

	if recipient, ok := r.registry.Lookup(payload.RecipientID); ok {
		recipient.Send(event.New(event.EventMessageReceived, out))
	}

	sender.Send(event.New(event.EventMessageSent, out))
}
