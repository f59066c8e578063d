// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package websocket

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/broadcastmap/internal/logging"
	"github.com/tomtom215/broadcastmap/internal/metrics"
	"github.com/tomtom215/broadcastmap/internal/models"
)

// Frame types.
const (
	MessageTypeBroadcast = "broadcast"
	MessageTypeViewport  = "viewport"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"
)

// publishQueue is how many new broadcasts may wait for the run loop.
const publishQueue = 256

// Message is a frame in either direction.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// MarshalMessage encodes a frame.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// envelope carries a frame and, for broadcasts, the point it is pinned to.
// Frames without a point go to every client.
type envelope struct {
	message   Message
	lat, lng  float64
	geotagged bool
}

// Hub owns the client set. Only the run loop mutates it; mu guards reads
// from other goroutines.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	broadcast chan envelope
	done      chan struct{}
	stopOnce  sync.Once

	mu      sync.RWMutex
	clients map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan envelope, publishQueue),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext serves register, unregister and publish events until ctx
// ends, then closes every client and returns ctx.Err(). Pending membership
// changes are handled before the next broadcast, so a frame never goes to a
// client that has already left.
func (h *Hub) RunWithContext(ctx context.Context) error {
	defer h.stop(ctx)

	for {
		select {
		case c := <-h.Register:
			h.addClient(c)
			continue
		case c := <-h.Unregister:
			h.removeClient(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-h.Register:
			h.addClient(c)
		case c := <-h.Unregister:
			h.removeClient(c)
		case env := <-h.broadcast:
			h.broadcastToClients(env)
		}
	}
}

// Done is closed once the run loop has exited.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishBroadcast queues msg for clients whose viewport contains it. It
// never blocks: with the queue full the live copy is dropped and the stored
// message is unaffected.
func (h *Hub) PublishBroadcast(msg *models.BroadcastMessage) {
	env := envelope{
		message:   Message{Type: MessageTypeBroadcast, Data: msg},
		lat:       msg.Latitude,
		lng:       msg.Longitude,
		geotagged: true,
	}
	select {
	case h.broadcast <- env:
	default:
		metrics.WSMessagesDropped.Inc()
		logging.Warn().Str("message_id", msg.ID).Msg("Live feed queue full, frame dropped")
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(n))
	logging.Debug().Int("clients", n).Msg("Live feed client connected")
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	h.dropLocked(c)
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(n))
	logging.Debug().Int("clients", n).Msg("Live feed client disconnected")
}

// dropLocked removes c and closes its send channel once. Caller holds mu.
func (h *Hub) dropLocked(c *Client) bool {
	if !h.clients[c] {
		return false
	}
	delete(h.clients, c)
	close(c.send)
	return true
}

// orderedLocked returns clients by ID so fan-out order is stable. Caller
// holds mu.
func (h *Hub) orderedLocked() []*Client {
	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *Client) int { return cmp.Compare(a.id, b.id) })
	return out
}

// broadcastToClients hands env to every interested client. A client whose
// send buffer is full is disconnected rather than allowed to stall the hub.
func (h *Hub) broadcastToClients(env envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	slow := 0
	for _, c := range h.orderedLocked() {
		if env.geotagged && !c.wants(env.lat, env.lng) {
			continue
		}
		select {
		case c.send <- env.message:
		default:
			metrics.WSMessagesDropped.Inc()
			h.dropLocked(c)
			slow++
		}
	}
	if slow > 0 {
		metrics.WSConnections.Set(float64(len(h.clients)))
		logging.Warn().Int("dropped_clients", slow).Msg("Disconnected slow live feed clients")
	}
}

func (h *Hub) stop(ctx context.Context) {
	h.mu.Lock()
	closed := 0
	for _, c := range h.orderedLocked() {
		if h.dropLocked(c) {
			closed++
		}
	}
	h.mu.Unlock()

	metrics.WSConnections.Set(0)
	h.stopOnce.Do(func() { close(h.done) })

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", stopReason(ctx)).
		Int("clients_closed", closed).
		Msg("Live feed hub stopped")
}

// stopReason labels the shutdown log; a deadline here usually means the
// supervisor gave up waiting on something.
func stopReason(ctx context.Context) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "deadline"
	}
	return "canceled"
}
