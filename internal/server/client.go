// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/citychat/citychat/internal/chat"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Client couples one WebSocket connection to its chat session. The read pump
// decodes inbound events and drives the session; the write pump is the single
// writer to the connection.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	session *chat.Session
	addr    string
	closed  bool
	limiter *tokenBucket
	log     *slog.Logger

	// ctx bounds the session's in-flight geocode lookup; cancel fires on
	// disconnect so a lookup for a gone client stops early.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient creates a Client for an upgraded connection. The send channel is
// buffered so a slow reader does not stall broadcasts to other members.
func NewClient(conn *websocket.Conn, hub *Hub, session *chat.Session, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		conn:    conn,
		send:    make(chan []byte, 256),
		hub:     hub,
		session: session,
		addr:    addr,
		limiter: newTokenBucket(cfg.RateLimitBurst, cfg.RateLimitRefill),
		log:     slog.With("addr", addr, "session", string(session.ID())),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SessionID returns the id of the session this client drives.
func (c *Client) SessionID() chat.SessionID {
	return c.session.ID()
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("message exceeded maximum size")
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Debug("client disconnected", "error", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Debug("connection closed", "error", err)
	default:
		c.log.Warn("websocket read error", "error", err)
	}
}

func (c *Client) readPump() {
	defer c.teardown()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.limiter.allow() {
			c.log.Warn("rate limit exceeded; discarding message")
			continue
		}

		c.handleEvent(raw)
	}
}

func (c *Client) handleEvent(raw []byte) {
	var evt inboundEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		c.log.Warn("malformed event", "error", err)
		c.replyError("malformed event")
		return
	}

	switch evt.Type {
	case eventJoinRoom:
		c.handleJoinRoom(evt.Data)
	case eventSendMessage:
		c.handleSendMessage(evt.Data)
	default:
		c.log.Warn("unknown event type", "type", evt.Type)
		c.replyError("unknown event type")
	}
}

func (c *Client) handleJoinRoom(data json.RawMessage) {
	var payload coordinatesPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.replyError(chat.ErrCoordinatesRequired.Error())
		return
	}
	if err := validate.Struct(payload); err != nil {
		c.replyError(chat.ErrCoordinatesRequired.Error())
		return
	}

	err := c.session.SubmitCoordinates(c.ctx, *payload.Latitude, *payload.Longitude)
	if err != nil {
		c.replyError(err.Error())
	}
}

func (c *Client) handleSendMessage(data json.RawMessage) {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.replyError("malformed payload")
		return
	}

	msg, recipients, err := c.session.SendMessage(payload.Text)
	if err != nil {
		c.replyError(err.Error())
		return
	}
	c.hub.Deliver(recipients, encodeReceiveMessage(msg))
}

// replyError reports a client-input error back to the originating session
// only; input errors are never broadcast.
func (c *Client) replyError(message string) {
	c.hub.Deliver([]chat.SessionID{c.session.ID()}, encodeError(message))
}

// teardown drives the session to Disconnected exactly once, emits the
// updated member count to the remaining room members, and unregisters the
// client. Safe to run even when the close happened mid-geocode or mid-send.
func (c *Client) teardown() {
	c.cancel()

	room, remaining, count := c.session.Disconnect()
	if room != "" && len(remaining) > 0 {
		c.hub.Deliver(remaining, encodeUserCount(count))
	}

	// During shutdown the hub loop has already exited; don't block on it.
	select {
	case c.hub.unregister <- c:
	case <-c.hub.ctx.Done():
	}

	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Debug("closing connection", "error", err)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Debug("closing connection in write pump", "error", err)
		}
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.Warn("setting write deadline", "error", err)
				return
			}
			if !ok {
				c.writeClose()
				return
			}
			if !c.writePayload(payload) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

func (c *Client) writeClose() {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Debug("writing close message", "error", err)
		}
	}
}

// writePayload writes one event and drains whatever queued up behind it, one
// frame per event so clients can decode each independently.
func (c *Client) writePayload(payload []byte) bool {
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.log.Debug("writing message", "error", err)
		return false
	}

	for i := len(c.send); i > 0; i-- {
		queued, ok := <-c.send
		if !ok {
			c.writeClose()
			return false
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, queued); err != nil {
			c.log.Debug("writing queued message", "error", err)
			return false
		}
	}
	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("setting write deadline for ping", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Debug("writing ping", "error", err)
		return false
	}
	return true
}
