package hub

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/opuofficial/chat-application-server/internal/auth"
	"github.com/opuofficial/chat-application-server/internal/event"
	"github.com/opuofficial/chat-application-server/internal/repo"
)

// Hub owns the connection lifecycle: it authenticates incoming sockets,
// runs presence transitions through a single loop, and dispatches chat
// events to the router.
type Hub struct {
	registry *Registry
	presence *Presence
	router   *Router
	verifier auth.Verifier
	logger   *zap.Logger

	register   chan *Client
	unregister chan *Client

	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(
	verifier auth.Verifier,
	users repo.UserRepository,
	conversations repo.ConversationRepository,
	messages repo.MessageRepository,
	allowedOrigins []string,
	logger *zap.Logger,
) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	registry := NewRegistry()
	h := &Hub{
		registry:   registry,
		presence:   NewPresence(registry, users, logger),
		router:     NewRouter(registry, conversations, messages, logger),
		verifier:   verifier,
		logger:     logger,
		register:   make(chan *Client, 1024),
		unregister: make(chan *Client, 1024),
		ctx:        ctx,
		cancel:     cancel,
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	go h.run()

	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if origin == a {
				return true
			}
		}
		return false
	}
}

// ServeWS admits one connection attempt. The token is verified before the
// upgrade; a bad credential is refused with 401 and never reaches presence
// or routing.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	userID, err := h.verifier.Verify(token)
	if err != nil {
		h.logger.Info("connection refused", zap.Error(err))
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	RegisterClient(userID, conn, h)
}

// run serializes registration and teardown, so a user's connect and
// disconnect transitions are applied in arrival order.
func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.register:
			h.presence.MarkOnline(context.Background(), c)
		case c := <-h.unregister:
			h.presence.MarkOffline(context.Background(), c)
		}
	}
}

// handleEvent runs on the client's read pump, keeping events from one
// connection strictly sequential. The context is deliberately independent
// of the connection: a disconnect must not cancel persistence already in
// flight.
func (h *Hub) handleEvent(ev event.WsEvent, c Handle) {
	switch ev.Event {
	case event.EventSendMessage:
		var payload event.SendMessagePayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			h.logger.Warn("malformed sendMessage payload",
				zap.String("client_id", c.ID()),
				zap.Error(err),
			)
			c.Send(event.New(event.EventError, event.ErrorPayload{
				Code:    event.CodeValidationFailed,
				Message: "malformed sendMessage payload",
			}))
			return
		}
		h.router.Route(context.Background(), c, payload)
	default:
		h.logger.Warn("unknown event type",
			zap.String("event", ev.Event),
			zap.String("client_id", c.ID()),
		)
		c.Send(event.New(event.EventError, event.ErrorPayload{
			Code:    event.CodeUnknownEvent,
			Message: "unknown event: " + ev.Event,
		}))
	}
}

// Registry exposes the connection registry for monitoring.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Stop shuts the hub down and closes every live connection.
func (h *Hub) Stop() {
	h.cancel()

	for _, handle := range h.registry.Snapshot() {
		handle.Close()
	}
}
