package repo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/opuofficial/chat-application-server/internal/db"
	"github.com/opuofficial/chat-application-server/internal/model"
)

type MessageRepository interface {
	// InsertMessage durably stores msg, assigning its id when unset.
	// Transient Mongo failures are retried with backoff.
	InsertMessage(ctx context.Context, msg *model.Message) error
	// ListByConversation returns the conversation's messages ordered by
	// creation time ascending.
	ListByConversation(ctx context.Context, conversationID primitive.ObjectID) ([]model.Message, error)
}

type messageRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.Message]
	logger    *zap.Logger
}

func NewMessageRepository(con *mongo.Database, repo *db.Repository[model.Message], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		con:       con,
		mongoRepo: repo,
		logger:    logger,
	}
}

func (m *messageRepository) InsertMessage(ctx context.Context, msg *model.Message) error {
	if err := m.validateMessage(msg); err != nil {
		return err
	}

	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return err
			}
		}

		_, err := m.mongoRepo.Create(ctx, *msg)
		if err == nil {
			m.logger.Info("message inserted successfully",
				zap.String("message_id", msg.ID.Hex()),
				zap.String("conversation_id", msg.ConversationID.Hex()),
				zap.Int("attempt", attempt+1),
			)
			return nil
		}

		lastErr = err

		if !isRetryableError(err) {
			break
		}

		m.logger.Warn("insert attempt failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxRetries),
		)
	}

	m.logger.Error("failed to insert message after all retries",
		zap.Error(lastErr),
		zap.String("conversation_id", msg.ConversationID.Hex()),
	)

	return fmt.Errorf("insert message failed: %w", lastErr)
}

func (m *messageRepository) ListByConversation(ctx context.Context, conversationID primitive.ObjectID) ([]model.Message, error) {
	if conversationID.IsZero() {
		return nil, ErrInvalidConversation
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("conversation_id", conversationID).Build()
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return nil, err
			}
			m.logger.Warn("retrying message listing",
				zap.String("conversation_id", conversationID.Hex()),
				zap.Int("attempt", attempt+1),
			)
		}

		messages, err := m.mongoRepo.FindAll(ctx, filter, opts)
		if err == nil {
			m.logger.Debug("messages listed",
				zap.String("conversation_id", conversationID.Hex()),
				zap.Int("count", len(messages)),
			)
			return messages, nil
		}

		lastErr = err

		if !isRetryableError(err) {
			break
		}
	}

	m.logger.Error("failed to list messages",
		zap.Error(lastErr),
		zap.String("conversation_id", conversationID.Hex()),
	)

	return nil, fmt.Errorf("list messages failed: %w", lastErr)
}

func (m *messageRepository) validateMessage(msg *model.Message) error {
	if msg == nil {
		return ErrInvalidMessage
	}
	if msg.ConversationID.IsZero() {
		return ErrInvalidConversation
	}
	return nil
}
