// Package server coordinates client registration, targeted event delivery,
// and connection cleanup for the CityChat WebSocket service via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/citychat/citychat/internal/chat"
)

// Hub owns the mapping from session id to connected client and is the only
// component that writes into client send channels. It implements
// chat.Notifier so sessions can push asynchronous outcomes (geocode results,
// count changes) without knowing anything about the transport.
type Hub struct {
	clients    map[chat.SessionID]*Client
	register   chan *Client
	unregister chan *Client
	manager    *chat.Manager
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	log        *slog.Logger
}

// NewHub creates an initialized Hub. BindManager must be called before the
// first client registers so disconnected sessions get released.
func NewHub(log *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[chat.SessionID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		log:        log,
	}
}

// BindManager wires the session manager the hub releases sessions through.
// Split from NewHub because the manager needs the hub as its Notifier.
func (h *Hub) BindManager(m *chat.Manager) {
	h.manager = m
}

// Register returns the channel new clients are handed to the hub on.
func (h *Hub) Register() chan<- *Client {
	return h.register
}

// Run is the hub's main event loop. It must run on its own goroutine; it
// exits only when the hub context is cancelled through Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.closeAllClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("received nil client registration; skipping")
				continue
			}
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client.SessionID()] = client
	total := len(h.clients)
	h.mutex.Unlock()

	h.log.Info("client registered", "addr", client.addr, "clients", total)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) handleUnregister(client *Client) {
	id := client.SessionID()

	h.mutex.Lock()
	current, ok := h.clients[id]
	if !ok || current != client {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, id)
	client.closed = true
	total := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock.
	close(client.send)

	if h.manager != nil {
		h.manager.Remove(id)
	}
	h.log.Info("client unregistered", "addr", client.addr, "clients", total)
}

// Deliver pushes a payload to each of the given sessions. Sessions without a
// reachable client (already disconnected, or with a full send buffer) are
// skipped; delivery is best effort by design.
func (h *Hub) Deliver(ids []chat.SessionID, payload []byte) {
	for _, id := range ids {
		if !h.safeSend(id, payload) {
			h.log.Debug("dropping event for unreachable session", "session", string(id))
		}
	}
}

func (h *Hub) safeSend(id chat.SessionID, payload []byte) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	client, ok := h.clients[id]
	if !ok || client.closed {
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// JoinedRoom implements chat.Notifier.
func (h *Hub) JoinedRoom(to chat.SessionID, room chat.RoomID, _ int) {
	h.Deliver([]chat.SessionID{to}, encodeJoinedRoom(room))
}

// CountChanged implements chat.Notifier.
func (h *Hub) CountChanged(to []chat.SessionID, count int) {
	h.Deliver(to, encodeUserCount(count))
}

// SessionError implements chat.Notifier.
func (h *Hub) SessionError(to chat.SessionID, err error) {
	h.Deliver([]chat.SessionID{to}, encodeError(err.Error()))
}

func (h *Hub) closeAllClients() {
	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn == nil {
			continue
		}
		if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
			h.log.Warn("closing client connection", "addr", client.addr, "error", err)
		}
	}

	h.log.Info("closed client connections", "count", len(clients))
}

// Shutdown stops the hub and waits for the client pump goroutines to finish
// or for the timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached; some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
