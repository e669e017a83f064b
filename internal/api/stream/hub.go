// Package stream pushes roster changes and upload progress to connected dashboards
// over websockets. Messages flow one way, server to browser.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

const (
	broadcastBuffer = 256
	clientBuffer    = 64
)

// Message is the frame sent to every client.
type Message struct {
	Type string    `json:"type"`
	Data any       `json:"data"`
	At   time.Time `json:"at"`
}

// Hub fans messages out to the connected clients. A client that cannot keep up is
// disconnected rather than allowed to stall the others.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx ends, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			slog.Info("event stream connected", "client_id", c.id, "clients", total)

		case c := <-h.unregister:
			h.drop(c)

		case msg := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for c := range h.clients {
				clients = append(clients, c)
			}
			h.mu.RUnlock()

			for _, c := range clients {
				select {
				case c.send <- msg:
				default:
					slog.Warn("event stream client too slow, disconnecting", "client_id", c.id)
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
		slog.Info("event stream disconnected", "client_id", c.id, "clients", len(h.clients))
	}
}

func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish encodes data as a typed message and broadcasts it. It never blocks; when
// the buffer is full the message is dropped.
func (h *Hub) Publish(kind string, data any) {
	b, err := json.Marshal(Message{Type: kind, Data: data, At: time.Now().UTC()})
	if err != nil {
		slog.Error("encode stream message", "type", kind, "error", err)
		return
	}
	select {
	case h.broadcast <- b:
	default:
		slog.Warn("event stream broadcast dropped", "type", kind, "reason", "buffer_full")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
