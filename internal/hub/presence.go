package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/opuofficial/chat-application-server/internal/event"
	"github.com/opuofficial/chat-application-server/internal/repo"
)

// Presence owns the online/offline transitions: the durable flag, the
// registry entry, and the status broadcast to everyone else. The durable
// write happens before the broadcast, so a status query racing with the
// event observes consistent storage.
type Presence struct {
	registry *Registry
	users    repo.UserRepository
	logger   *zap.Logger
}

func NewPresence(registry *Registry, users repo.UserRepository, logger *zap.Logger) *Presence {
	return &Presence{
		registry: registry,
		users:    users,
		logger:   logger,
	}
}

// MarkOnline records the user as online and reachable through h. A storage
// failure degrades presence to registry-only rather than refusing the
// connection. Any previous connection for the user is evicted and closed.
func (p *Presence) MarkOnline(ctx context.Context, h Handle) {
	if err := p.users.SetOnlineStatus(ctx, h.UserID(), true, h.ID()); err != nil {
		p.logger.Error("presence write failed, registry updated anyway",
			zap.String("user_id", h.UserID()),
			zap.Error(err),
		)
	}

	if prior := p.registry.Register(h); prior != nil {
		p.logger.Info("replacing previous connection for user",
			zap.String("user_id", h.UserID()),
			zap.String("evicted_client_id", prior.ID()),
		)
		prior.Close()
	}

	p.broadcastStatus(h.UserID(), true)
}

// MarkOffline is the teardown half. It is a no-op when the handle has
// already been superseded by a newer connection, which makes teardown
// idempotent per handle and keeps an evicted connection's late disconnect
// from knocking the live session offline.
func (p *Presence) MarkOffline(ctx context.Context, h Handle) {
	if !p.registry.Deregister(h.UserID(), h.ID()) {
		p.logger.Debug("skipping offline transition for superseded handle",
			zap.String("user_id", h.UserID()),
			zap.String("client_id", h.ID()),
		)
		return
	}

	if err := p.users.SetOnlineStatus(ctx, h.UserID(), false, ""); err != nil {
		p.logger.Error("presence write failed on disconnect",
			zap.String("user_id", h.UserID()),
			zap.Error(err),
		)
	}

	p.broadcastStatus(h.UserID(), false)
}

// broadcastStatus notifies every registered connection except the user the
// transition belongs to. Iterates a snapshot so concurrent registry
// mutation cannot race the traversal.
func (p *Presence) broadcastStatus(userID string, online bool) {
	ev := event.New(event.EventUserStatusChanged, event.UserStatusPayload{
		UserID:   userID,
		IsOnline: online,
	})

	for _, other := range p.registry.Snapshot() {
		if other.UserID() == userID {
			continue
		}
		other.Send(ev)
	}
}
