package hub

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/opuofficial/chat-application-server/internal/event"
)

var (
	// tuning parameters
	writeWait         = 10 * time.Second    // time allowed to write a message to the peer
	pongWait          = 20 * time.Second    // time allowed to read the next pong message from the peer
	pingInterval      = (pongWait * 9) / 10 // send pings to peer with this period
	maxMessageSize    = 64 * 1024           // max inbound message size (64KB)
	sendBufSize       = 256                 // per-connection outbound buffer size
	sendTimeout       = 2 * time.Second     // timeout for enqueuing outbound messages
	registerTimeout   = 5 * time.Second     // timeout for client registration
	unregisterTimeout = 5 * time.Second     // timeout for client unregistration
)

// Client is the live connection handle for one open websocket. It is bound
// to a single authenticated user id at creation and never rebound.
type Client struct {
	id     string
	userID string
	conn   *websocket.Conn
	hub    *Hub
	egress chan event.WsEvent
	logger *zap.Logger

	cancel         context.CancelFunc
	ctx            context.Context
	once           sync.Once
	connClosed     chan struct{}
	connClosedOnce sync.Once
	closed         bool
	closedMu       sync.RWMutex
}

// RegisterClient creates a client for an already-authenticated connection
// and hands it to the hub. Returns nil if the hub could not take it in time.
func RegisterClient(userID string, conn *websocket.Conn, h *Hub) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	client := &Client{
		id:         uuid.New().String(),
		userID:     userID,
		conn:       conn,
		hub:        h,
		egress:     make(chan event.WsEvent, sendBufSize),
		logger:     h.logger,
		cancel:     cancel,
		ctx:        ctx,
		connClosed: make(chan struct{}),
	}

	select {
	case h.register <- client:
		go client.readMessages()
		go client.writeMessages()
		h.logger.Info("client registered",
			zap.String("client_id", client.id),
			zap.String("user_id", userID),
		)
		return client
	case <-time.After(registerTimeout):
		h.logger.Error("failed to register client: timeout", zap.String("user_id", userID))
		cancel()
		conn.Close()
		return nil
	}
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.userID }

// readMessages is the per-connection read pump. Events are dispatched
// synchronously, so one connection's events are processed strictly in
// order while other connections run concurrently.
func (c *Client) readMessages() {
	defer func() {
		select {
		case c.hub.unregister <- c:
			// teardown queued
		case <-time.After(unregisterTimeout):
			c.logger.Error("failed to unregister client: timeout", zap.String("client_id", c.id))
		}
		c.Close()
	}()

	c.conn.SetReadLimit(int64(maxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(c.pongHandler)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			var ev event.WsEvent

			if err := c.conn.ReadJSON(&ev); err != nil {
				if websocket.IsCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					c.logger.Info("client disconnected", zap.String("client_id", c.id))
					return
				}

				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseInternalServerErr,
					websocket.CloseProtocolError,
				) {
					c.logger.Warn("unexpected close", zap.String("client_id", c.id), zap.Error(err))
				}

				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					c.logger.Info("client timed out, closing connection", zap.String("client_id", c.id))
					return
				}

				c.logger.Warn("error reading from client", zap.String("client_id", c.id), zap.Error(err))
				return
			}

			c.hub.handleEvent(ev, c)
		}
	}
}

func (c *Client) writeMessages() {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()

		c.connClosedOnce.Do(func() {
			close(c.connClosed)
		})
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-c.egress:
			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, nil); err != nil {
					c.logger.Debug("connection closed", zap.Error(err))
				}
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.Warn("write error", zap.String("client_id", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("ping error", zap.String("client_id", c.id), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) pongHandler(string) error {
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// Send enqueues an event for the peer. Returns false when the client is
// closed or its egress stayed full past the send timeout; a full egress
// disconnects the client rather than blocking the caller.
func (c *Client) Send(ev event.WsEvent) bool {
	if c.IsClosed() {
		return false
	}

	select {
	case c.egress <- ev:
		return true
	case <-c.ctx.Done():
		return false
	case <-time.After(sendTimeout):
		c.logger.Warn("egress full, disconnecting client", zap.String("client_id", c.id))
		select {
		case c.hub.unregister <- c:
		case <-time.After(unregisterTimeout):
			c.logger.Error("failed to unregister client: timeout", zap.String("client_id", c.id))
		}
		return false
	}
}

// Close tears the connection down. Safe to call from multiple goroutines;
// only the first call has any effect.
func (c *Client) Close() {
	c.once.Do(func() {
		c.closedMu.Lock()
		c.closed = true
		c.closedMu.Unlock()

		c.cancel()
		close(c.egress)

		// Wait for the write pump to close conn, or force close after a
		// safety timeout.
		go func() {
			select {
			case <-c.connClosed:
			case <-time.After(5 * time.Second):
				_ = c.conn.Close()
				c.logger.Warn("safety timeout: force closed connection", zap.String("client_id", c.id))
			}
		}()
	})
}

// IsClosed returns true if the client has been closed
func (c *Client) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}
