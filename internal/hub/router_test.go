package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opuofficial/chat-application-server/internal/event"
)

type routerFixture struct {
	router        *Router
	registry      *Registry
	conversations *fakeConversationRepo
	messages      *fakeMessageRepo
}

func newRouterFixture() *routerFixture {
	registry := NewRegistry()
	conversations := newFakeConversationRepo()
	messages := &fakeMessageRepo{}
	return &routerFixture{
		router:        NewRouter(registry, conversations, messages, zap.NewNop()),
		registry:      registry,
		conversations: conversations,
		messages:      messages,
	}
}

func decodeMessage(t *testing.T, ev event.WsEvent) event.MessagePayload {
	t.Helper()
	var payload event.MessagePayload
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	return payload
}

func decodeError(t *testing.T, ev event.WsEvent) event.ErrorPayload {
	t.Helper()
	var payload event.ErrorPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	return payload
}

func TestRouteDeliversToOnlineRecipient(t *testing.T) {
	fx := newRouterFixture()

	alice := newFakeHandle("conn-alice", "alice")
	bob := newFakeHandle("conn-bob", "bob")
	fx.registry.Register(alice)
	fx.registry.Register(bob)

	fx.router.Route(context.Background(), alice, event.SendMessagePayload{
		RecipientID: "bob",
		Text:        "hi",
	})

	received := bob.eventsNamed(event.EventMessageReceived)
	require.Len(t, received, 1)
	sent := alice.eventsNamed(event.EventMessageSent)
	require.Len(t, sent, 1)

	receivedPayload := decodeMessage(t, received[0])
	sentPayload := decodeMessage(t, sent[0])

	// Both sides carry the same persisted record with a server-assigned id.
	assert.Equal(t, sentPayload.ID, receivedPayload.ID)
	assert.NotEmpty(t, sentPayload.ID)
	assert.Equal(t, "alice", sentPayload.Sender)
	assert.Equal(t, "hi", sentPayload.Text)
	assert.False(t, sentPayload.CreatedAt.IsZero())

	stored := fx.messages.stored()
	require.Len(t, stored, 1)
	assert.Equal(t, stored[0].ID.Hex(), sentPayload.ID)
}

func TestRouteOfflineRecipientStoresWithoutDelivery(t *testing.T) {
	fx := newRouterFixture()

	alice := newFakeHandle("conn-alice", "alice")
	fx.registry.Register(alice)

	fx.router.Route(context.Background(), alice, event.SendMessagePayload{
		RecipientID: "bob",
		Text:        "hi",
	})

	// Conversation created, message persisted, sender ack'd; nothing
	// delivered anywhere else.
	assert.Equal(t, 1, fx.conversations.count())
	assert.Len(t, fx.messages.stored(), 1)
	assert.Len(t, alice.eventsNamed(event.EventMessageSent), 1)
	assert.Empty(t, alice.eventsNamed(event.EventMessageReceived))

	// Bob fetches history later and observes the stored message.
	conversation, err := fx.conversations.FindByParticipants(context.Background(), "bob", "alice")
	require.NoError(t, err)
	require.NotNil(t, conversation)
	history, err := fx.messages.ListByConversation(context.Background(), conversation.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hi", history[0].Text)
}

func TestRouteRejectsEmptyText(t *testing.T) {
	fx := newRouterFixture()
	alice := newFakeHandle("conn-alice", "alice")

	fx.router.Route(context.Background(), alice, event.SendMessagePayload{
		RecipientID: "bob",
		Text:        "",
	})

	errs := alice.eventsNamed(event.EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, event.CodeValidationFailed, decodeError(t, errs[0]).Code)
	assert.Empty(t, fx.messages.stored(), "validation failures must not persist")
	assert.Equal(t, 0, fx.conversations.count())
}

func TestRouteRejectsSpoofedSender(t *testing.T) {
	fx := newRouterFixture()
	alice := newFakeHandle("conn-alice", "alice")

	fx.router.Route(context.Background(), alice, event.SendMessagePayload{
		RecipientID: "bob",
		Text:        "hi",
		SenderID:    "mallory",
	})

	errs := alice.eventsNamed(event.EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, event.CodeValidationFailed, decodeError(t, errs[0]).Code)
	assert.Empty(t, fx.messages.stored())
}

func TestRouteStorageFailureSurfacesToSender(t *testing.T) {
	fx := newRouterFixture()
	fx.messages.failInserts = true

	alice := newFakeHandle("conn-alice", "alice")
	bob := newFakeHandle("conn-bob", "bob")
	fx.registry.Register(bob)

	fx.router.Route(context.Background(), alice, event.SendMessagePayload{
		RecipientID: "bob",
		Text:        "hi",
	})

	errs := alice.eventsNamed(event.EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, event.CodeDeliveryFailed, decodeError(t, errs[0]).Code)
	assert.Empty(t, alice.eventsNamed(event.EventMessageSent), "no ack on failed persistence")
	assert.Empty(t, bob.eventsNamed(event.EventMessageReceived))
}

func TestRouteUpdatesLastMessagePointer(t *testing.T) {
	fx := newRouterFixture()
	alice := newFakeHandle("conn-alice", "alice")

	fx.router.Route(context.Background(), alice, event.SendMessagePayload{
		RecipientID: "bob",
		Text:        "first",
	})
	fx.router.Route(context.Background(), alice, event.SendMessagePayload{
		RecipientID: "bob",
		Text:        "second",
	})

	conversation, err := fx.conversations.FindByParticipants(context.Background(), "alice", "bob")
	require.NoError(t, err)
	require.NotNil(t, conversation)

	preview := fx.conversations.previews[conversation.ID.Hex()]
	require.NotNil(t, preview)
	assert.Equal(t, "second", preview.Text)
}

func TestRouteSequentialMessagesKeepReceiptOrder(t *testing.T) {
	fx := newRouterFixture()
	alice := newFakeHandle("conn-alice", "alice")
	fx.registry.Register(alice)

	texts := []string{"one", "two", "three"}
	for _, text := range texts {
		fx.router.Route(context.Background(), alice, event.SendMessagePayload{
			RecipientID: "bob",
			Text:        text,
		})
	}

	acks := alice.eventsNamed(event.EventMessageSent)
	require.Len(t, acks, len(texts))
	for i, ack := range acks {
		assert.Equal(t, texts[i], decodeMessage(t, ack).Text)
	}

	stored := fx.messages.stored()
	require.Len(t, stored, len(texts))
	for i := 1; i < len(stored); i++ {
		assert.False(t, stored[i].CreatedAt.Before(stored[i-1].CreatedAt),
			"per-conversation timestamps must be monotonic")
	}
}

func TestConcurrentFirstMessagesCreateOneConversation(t *testing.T) {
	fx := newRouterFixture()

	alice := newFakeHandle("conn-alice", "alice")
	bob := newFakeHandle("conn-bob", "bob")
	fx.registry.Register(alice)
	fx.registry.Register(bob)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		fx.router.Route(context.Background(), alice, event.SendMessagePayload{RecipientID: "bob", Text: "hi"})
	}()
	go func() {
		defer wg.Done()
		fx.router.Route(context.Background(), bob, event.SendMessagePayload{RecipientID: "alice", Text: "hey"})
	}()
	wg.Wait()

	assert.Equal(t, 1, fx.conversations.count(), "unordered pair resolves to one conversation")
	assert.Len(t, fx.messages.stored(), 2)
}
