package repo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/opuofficial/chat-application-server/internal/db"
	"github.com/opuofficial/chat-application-server/internal/model"
)

type UserRepository interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	SetOnlineStatus(ctx context.Context, userID string, online bool, socketID string) error
	ResetPresence(ctx context.Context) (int64, error)
	SearchUsers(ctx context.Context, keyword string, excludeUserID string) ([]model.User, error)
}

type userRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.User]
	logger    *zap.Logger
}

func NewUserRepository(con *mongo.Database, repo *db.Repository[model.User], logger *zap.Logger) UserRepository {
	return &userRepository{
		con:       con,
		mongoRepo: repo,
		logger:    logger,
	}
}

func (r *userRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, ErrInvalidUserID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	result, err := r.mongoRepo.FindByID(ctx, id)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		r.logger.Error("failed to fetch user", zap.String("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return result, nil
}

// SetOnlineStatus writes the durable presence flag and connection
// identifier. socketID is empty when the user goes offline.
func (r *userRepository) SetOnlineStatus(ctx context.Context, userID string, online bool, socketID string) error {
	if userID == "" {
		return ErrInvalidUserID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	update := bson.M{
		"is_online":  online,
		"socket_id":  socketID,
		"updated_at": time.Now().UTC(),
	}

	result, err := r.mongoRepo.UpdateByID(ctx, userID, update)
	if err != nil {
		r.logger.Error("failed to update online status",
			zap.String("user_id", userID),
			zap.Bool("online", online),
			zap.Error(err),
		)
		return fmt.Errorf("failed to update online status: %w", err)
	}

	if result.MatchedCount == 0 {
		r.logger.Warn("online status update matched no user", zap.String("user_id", userID))
	}

	return nil
}

// ResetPresence clears every durable is_online flag. Runs once at startup:
// after a restart no live connection can exist, so any flag still set is a
// leftover from a crash.
func (r *userRepository) ResetPresence(ctx context.Context) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("is_online", true).Build()
	update := bson.M{
		"$set":   bson.M{"is_online": false, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"socket_id": ""},
	}

	result, err := r.mongoRepo.UpdateMany(ctx, filter, update)
	if err != nil {
		r.logger.Error("failed to reset presence flags", zap.Error(err))
		return 0, fmt.Errorf("failed to reset presence flags: %w", err)
	}

	if result.ModifiedCount > 0 {
		r.logger.Info("reconciled stale presence flags", zap.Int64("count", result.ModifiedCount))
	}

	return result.ModifiedCount, nil
}

// SearchUsers matches keyword against username and fullname,
// case-insensitive, excluding the calling user.
func (r *userRepository) SearchUsers(ctx context.Context, keyword string, excludeUserID string) ([]model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	nameMatch := db.NewFilter().Or(
		db.NewFilter().Contains("username", keyword).Build(),
		db.NewFilter().Contains("fullname", keyword).Build(),
	).Build()

	exclude := db.Empty()
	if oid, err := primitive.ObjectIDFromHex(excludeUserID); err == nil {
		exclude = db.NewFilter().Ne("_id", oid).Build()
	}

	filter := db.NewFilter().And(nameMatch, exclude).Build()

	users, err := r.mongoRepo.FindAll(ctx, filter)
	if err != nil {
		r.logger.Error("failed to search users", zap.String("keyword", keyword), zap.Error(err))
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	return users, nil
}
