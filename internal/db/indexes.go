package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the service depends on. The unique
// pair_key index is what makes lazy conversation creation race-safe:
// concurrent inserts for the same unordered pair collide here instead of
// producing two documents.
func EnsureIndexes(ctx context.Context, database *mongo.Database, conversations, messages string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := database.Collection(conversations).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "pair_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = database.Collection(messages).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversation_id", Value: 1},
			{Key: "created_at", Value: 1},
		},
	})
	return err
}
