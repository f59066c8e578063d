// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/broadcastmap/internal/geo"
	"github.com/tomtom215/broadcastmap/internal/logging"
	"github.com/tomtom215/broadcastmap/internal/metrics"
	"github.com/tomtom215/broadcastmap/internal/validation"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// Clients only send small control frames.
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

// clientIDCounter gives clients a stable broadcast order.
var clientIDCounter atomic.Uint64

// inbound is a frame sent by the browser.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type viewportData struct {
	BBox string `json:"bbox"`
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan Message
	// control carries direct replies from readPump. The hub closes send, so
	// readPump never writes to it.
	control chan Message

	mu       sync.RWMutex
	viewport *geo.BoundingBox
}

// NewClient creates a client. A nil viewport subscribes to the whole map.
func NewClient(hub *Hub, conn *websocket.Conn, viewport *geo.BoundingBox) *Client {
	return &Client{
		id:       clientIDCounter.Add(1),
		hub:      hub,
		conn:     conn,
		send:     make(chan Message, sendBuffer),
		control:  make(chan Message, 8),
		viewport: viewport,
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// Viewport returns a copy of the current viewport, or nil for the whole map.
func (c *Client) Viewport() *geo.BoundingBox {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.viewport == nil {
		return nil
	}
	vp := *c.viewport
	return &vp
}

// SetViewport replaces the viewport. nil subscribes to the whole map.
func (c *Client) SetViewport(vp *geo.BoundingBox) {
	c.mu.Lock()
	c.viewport = vp
	c.mu.Unlock()
}

func (c *Client) wants(lat, lng float64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewport == nil || c.viewport.Contains(lat, lng)
}

// reply queues a direct answer without blocking the read loop.
func (c *Client) reply(msg Message) {
	select {
	case c.control <- msg:
	default:
	}
}

// readPump handles control frames from the browser until the connection
// fails, then unregisters the client.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.Unregister <- c:
		case <-c.hub.Done():
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Msg("unexpected websocket close error")
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(Message{Type: MessageTypeError, Data: map[string]string{"error": "Invalid message"}})
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg inbound) {
	switch msg.Type {
	case MessageTypePing:
		c.reply(Message{Type: MessageTypePong})
	case MessageTypeViewport:
		var vd viewportData
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &vd); err != nil {
				c.reply(Message{Type: MessageTypeError, Data: map[string]string{"error": "Invalid viewport"}})
				return
			}
		}
		if vd.BBox == "" {
			c.SetViewport(nil)
			return
		}
		box, err := validation.ValidateBoundingBox(vd.BBox)
		if err != nil {
			c.reply(Message{Type: MessageTypeError, Data: map[string]string{"error": err.Error()}})
			return
		}
		c.SetViewport(&box)
	}
}

// writePump writes queued messages and keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.write(message); err != nil {
				return
			}
			if message.Type == MessageTypeBroadcast {
				metrics.WSMessagesSent.Inc()
			}

		case message := <-c.control:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.write(message); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(message Message) error {
	frame, err := MarshalMessage(message)
	if err != nil {
		logging.Error().Err(err).Str("type", message.Type).Msg("failed to encode websocket message")
		return nil
	}
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// Start begins reading and writing for the client
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
