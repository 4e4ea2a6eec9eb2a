package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/opuofficial/chat-application-server/internal/model"
	"github.com/opuofficial/chat-application-server/internal/repo"
)

var ErrUserNotFound = errors.New("user not found")

// ChatService backs the REST read surface: conversation listing, message
// history, profiles and search.
type ChatService interface {
	ListConversations(ctx context.Context, userID string) ([]model.ConversationView, error)
	// GetHistory returns the full ordered history between the caller and
	// recipientID, creating the conversation lazily when none exists yet.
	GetHistory(ctx context.Context, userID, recipientID string) ([]model.Message, error)
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
	SearchUsers(ctx context.Context, keyword, currentUserID string) ([]model.UserProfile, error)
}

type chatService struct {
	users         repo.UserRepository
	conversations repo.ConversationRepository
	messages      repo.MessageRepository
	logger        *zap.Logger
}

func NewChatService(users repo.UserRepository, conversations repo.ConversationRepository, messages repo.MessageRepository, logger *zap.Logger) ChatService {
	return &chatService{
		users:         users,
		conversations: conversations,
		messages:      messages,
		logger:        logger,
	}
}

func (s *chatService) ListConversations(ctx context.Context, userID string) ([]model.ConversationView, error) {
	conversations, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]model.ConversationView, 0, len(conversations))
	for i := range conversations {
		c := &conversations[i]

		view := model.ConversationView{
			ID:          c.ID.Hex(),
			LastMessage: c.LastMessage,
			CreatedAt:   c.CreatedAt,
			UpdatedAt:   c.UpdatedAt,
		}

		opponentID := c.Opponent(userID)
		opponent, err := s.users.GetUser(ctx, opponentID)
		if err != nil {
			s.logger.Warn("failed to resolve conversation opponent",
				zap.String("conversation_id", view.ID),
				zap.String("opponent_id", opponentID),
				zap.Error(err),
			)
		}
		if opponent != nil {
			view.Recipient = &model.UserProfile{
				ID:             opponent.ID.Hex(),
				Fullname:       opponent.Fullname,
				ProfilePicture: opponent.ProfilePicture,
				IsOnline:       opponent.IsOnline,
			}
		}

		views = append(views, view)
	}

	return views, nil
}

func (s *chatService) GetHistory(ctx context.Context, userID, recipientID string) ([]model.Message, error) {
	conversation, err := s.conversations.FindOrCreate(ctx, userID, recipientID)
	if err != nil {
		return nil, err
	}

	messages, err := s.messages.ListByConversation(ctx, conversation.ID)
	if err != nil {
		return nil, err
	}

	return messages, nil
}

func (s *chatService) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return &model.UserProfile{
		ID:       user.ID.Hex(),
		Fullname: user.Fullname,
		IsOnline: user.IsOnline,
	}, nil
}

func (s *chatService) SearchUsers(ctx context.Context, keyword, currentUserID string) ([]model.UserProfile, error) {
	users, err := s.users.SearchUsers(ctx, keyword, currentUserID)
	if err != nil {
		return nil, err
	}

	profiles := make([]model.UserProfile, 0, len(users))
	for i := range users {
		u := &users[i]
		profiles = append(profiles, model.UserProfile{
			ID:             u.ID.Hex(),
			Fullname:       u.Fullname,
			Username:       u.Username,
			ProfilePicture: u.ProfilePicture,
			IsOnline:       u.IsOnline,
		})
	}

	return profiles, nil
}
