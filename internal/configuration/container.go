package configuration

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/opuofficial/chat-application-server/internal/auth"
	"github.com/opuofficial/chat-application-server/internal/db"
	"github.com/opuofficial/chat-application-server/internal/handler"
	"github.com/opuofficial/chat-application-server/internal/hub"
	"github.com/opuofficial/chat-application-server/internal/model"
	"github.com/opuofficial/chat-application-server/internal/repo"
	"github.com/opuofficial/chat-application-server/internal/service"
)

type Container struct {
	UserHandler handler.UserHandler
	Hub         *hub.Hub
	Verifier    auth.Verifier
	Config      Config
	Logger      *zap.Logger

	// private - for cleanup
	mongoClient *mongo.Database
}

func BuildContainer() (*Container, error) {
	config, err := LoadConfig(ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	con, err := db.OpenConnection(config.ChatDatabase.Uri, config.ChatDatabase.Database)
	if err != nil {
		return nil, err
	}

	if err := db.EnsureIndexes(context.Background(),
		con,
		config.ChatDatabase.ConversationsCollection,
		config.ChatDatabase.MessagesCollection,
	); err != nil {
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	userMongoRepo := db.NewRepository[model.User](con, config.ChatDatabase.UsersCollection)
	conversationMongoRepo := db.NewRepository[model.Conversation](con, config.ChatDatabase.ConversationsCollection)
	messageMongoRepo := db.NewRepository[model.Message](con, config.ChatDatabase.MessagesCollection)

	userRepo := repo.NewUserRepository(con, userMongoRepo, logger)
	conversationRepo := repo.NewConversationRepository(con, conversationMongoRepo, logger)
	messageRepo := repo.NewMessageRepository(con, messageMongoRepo, logger)

	// After a restart no live connection can exist; reconcile stale
	// presence flags before the socket server starts accepting.
	if _, err := userRepo.ResetPresence(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to reset presence flags: %w", err)
	}

	verifier := auth.NewVerifier(config.Auth.JwtSecret)

	chatService := service.NewChatService(userRepo, conversationRepo, messageRepo, logger)
	userHandler := handler.NewUserHandler(chatService)

	Hub := hub.NewHub(verifier, userRepo, conversationRepo, messageRepo, config.Cors.AllowedOrigins, logger)

	return &Container{
		UserHandler: userHandler,
		Hub:         Hub,
		Verifier:    verifier,
		Config:      *config,
		Logger:      logger,
		mongoClient: con,
	}, nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	// Sync logger
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	return nil
}
