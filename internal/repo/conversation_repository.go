package repo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/opuofficial/chat-application-server/internal/db"
	"github.com/opuofficial/chat-application-server/internal/model"
)

type ConversationRepository interface {
	// FindByParticipants returns the conversation for the unordered pair,
	// or nil when none exists.
	FindByParticipants(ctx context.Context, a, b string) (*model.Conversation, error)
	// FindOrCreate resolves the conversation for the unordered pair,
	// creating it when absent. Safe under concurrent first messages: the
	// unique pair_key index turns the losing insert into a re-fetch.
	FindOrCreate(ctx context.Context, a, b string) (*model.Conversation, error)
	UpdateLastMessage(ctx context.Context, conversationID primitive.ObjectID, preview *model.MessagePreview) error
	// ListForUser returns the user's conversations, most recently updated
	// first.
	ListForUser(ctx context.Context, userID string) ([]model.Conversation, error)
}

type conversationRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.Conversation]
	logger    *zap.Logger
}

func NewConversationRepository(con *mongo.Database, repo *db.Repository[model.Conversation], logger *zap.Logger) ConversationRepository {
	return &conversationRepository{
		con:       con,
		mongoRepo: repo,
		logger:    logger,
	}
}

func (r *conversationRepository) FindByParticipants(ctx context.Context, a, b string) (*model.Conversation, error) {
	if a == "" || b == "" {
		return nil, ErrInvalidUserID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("pair_key", model.PairKey(a, b)).Build()

	conversation, err := r.mongoRepo.FindOne(ctx, filter)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		r.logger.Error("failed to fetch conversation",
			zap.String("pair_key", model.PairKey(a, b)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to fetch conversation: %w", err)
	}

	return conversation, nil
}

func (r *conversationRepository) FindOrCreate(ctx context.Context, a, b string) (*model.Conversation, error) {
	conversation, err := r.FindByParticipants(ctx, a, b)
	if err != nil {
		return nil, err
	}
	if conversation != nil {
		return conversation, nil
	}

	writeCtx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	fresh := model.Conversation{
		ID:           primitive.NewObjectID(),
		Participants: []string{a, b},
		PairKey:      model.PairKey(a, b),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = r.mongoRepo.Create(writeCtx, fresh)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost the race for first creation; the winner's document is
			// the conversation.
			r.logger.Debug("conversation already created concurrently",
				zap.String("pair_key", fresh.PairKey),
			)
			return r.FindByParticipants(ctx, a, b)
		}
		r.logger.Error("failed to create conversation",
			zap.String("pair_key", fresh.PairKey),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	r.logger.Info("conversation created",
		zap.String("conversation_id", fresh.ID.Hex()),
		zap.String("pair_key", fresh.PairKey),
	)

	return &fresh, nil
}

func (r *conversationRepository) UpdateLastMessage(ctx context.Context, conversationID primitive.ObjectID, preview *model.MessagePreview) error {
	if conversationID.IsZero() {
		return ErrInvalidConversation
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("_id", conversationID).Build()
	update := bson.M{
		"last_message": preview,
		"updated_at":   preview.SentAt,
	}

	if _, err := r.mongoRepo.Update(ctx, filter, update); err != nil {
		r.logger.Error("failed to update last message",
			zap.String("conversation_id", conversationID.Hex()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to update last message: %w", err)
	}

	return nil
}

func (r *conversationRepository) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("participants", userID).Build()
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})

	conversations, err := r.mongoRepo.FindAll(ctx, filter, opts)
	if err != nil {
		r.logger.Error("failed to list conversations",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	return conversations, nil
}
