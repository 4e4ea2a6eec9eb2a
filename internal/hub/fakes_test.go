package hub

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/opuofficial/chat-application-server/internal/event"
	"github.com/opuofficial/chat-application-server/internal/model"
)

// fakeHandle records everything sent to it.
type fakeHandle struct {
	id     string
	userID string

	mu     sync.Mutex
	events []event.WsEvent
	closed bool
}

func newFakeHandle(id, userID string) *fakeHandle {
	return &fakeHandle{id: id, userID: userID}
}

func (f *fakeHandle) ID() string     { return f.id }
func (f *fakeHandle) UserID() string { return f.userID }

func (f *fakeHandle) Send(ev event.WsEvent) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.events = append(f.events, ev)
	return true
}

func (f *fakeHandle) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeHandle) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeHandle) eventsNamed(name string) []event.WsEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []event.WsEvent
	for _, ev := range f.events {
		if ev.Event == name {
			out = append(out, ev)
		}
	}
	return out
}

type statusCall struct {
	userID   string
	online   bool
	socketID string
}

// fakeUserRepo implements repo.UserRepository.
type fakeUserRepo struct {
	mu         sync.Mutex
	calls      []statusCall
	failWrites bool
}

func (f *fakeUserRepo) GetUser(ctx context.Context, id string) (*model.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) SetOnlineStatus(ctx context.Context, userID string, online bool, socketID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("storage unavailable")
	}
	f.calls = append(f.calls, statusCall{userID: userID, online: online, socketID: socketID})
	return nil
}

func (f *fakeUserRepo) ResetPresence(ctx context.Context) (int64, error) {
	return 0, nil
}

func (f *fakeUserRepo) SearchUsers(ctx context.Context, keyword, excludeUserID string) ([]model.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) statusCalls() []statusCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]statusCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// fakeConversationRepo implements repo.ConversationRepository with a
// pair-key map standing in for the unique index.
type fakeConversationRepo struct {
	mu         sync.Mutex
	byPair     map[string]*model.Conversation
	previews   map[string]*model.MessagePreview
	failCreate bool
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		byPair:   make(map[string]*model.Conversation),
		previews: make(map[string]*model.MessagePreview),
	}
}

func (f *fakeConversationRepo) FindByParticipants(ctx context.Context, a, b string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byPair[model.PairKey(a, b)], nil
}

func (f *fakeConversationRepo) FindOrCreate(ctx context.Context, a, b string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failCreate {
		return nil, errors.New("storage unavailable")
	}

	key := model.PairKey(a, b)
	if existing, ok := f.byPair[key]; ok {
		return existing, nil
	}

	now := time.Now().UTC()
	conversation := &model.Conversation{
		ID:           primitive.NewObjectID(),
		Participants: []string{a, b},
		PairKey:      key,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.byPair[key] = conversation
	return conversation, nil
}

func (f *fakeConversationRepo) UpdateLastMessage(ctx context.Context, conversationID primitive.ObjectID, preview *model.MessagePreview) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previews[conversationID.Hex()] = preview
	return nil
}

func (f *fakeConversationRepo) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Conversation
	for _, c := range f.byPair {
		for _, p := range c.Participants {
			if p == userID {
				out = append(out, *c)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byPair)
}

// fakeMessageRepo implements repo.MessageRepository.
type fakeMessageRepo struct {
	mu          sync.Mutex
	messages    []model.Message
	failInserts bool
}

func (f *fakeMessageRepo) InsertMessage(ctx context.Context, msg *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInserts {
		return errors.New("storage unavailable")
	}
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeMessageRepo) ListByConversation(ctx context.Context, conversationID primitive.ObjectID) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeMessageRepo) stored() []model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Message, len(f.messages))
	copy(out, f.messages)
	return out
}
