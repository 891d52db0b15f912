package http

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// timeEvent is pushed to every socket watching the device whose balance
// changed.
type timeEvent struct {
	Type          string `json:"type"`
	DeviceID      string `json:"deviceId"`
	AvailableTime int    `json:"availableTime"`
	Formatted     string `json:"formatted"`
}

type outbound struct {
	deviceID string
	payload  []byte
}

// Hub fans balance-change events out to connected websocket clients. Each
// client watches a single device.
type Hub struct {
	logger     *zap.Logger
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run owns the client set until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("websocket client connected",
				zap.String("device_id", client.deviceID),
			)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Debug("websocket client disconnected",
					zap.String("device_id", client.deviceID),
				)
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				if client.deviceID != msg.deviceID {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					// Slow client: drop it rather than block the hub.
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// BroadcastTime queues a balance-change event for the device's watchers.
// Safe to call from ledger listeners; never blocks the mutating call.
func (h *Hub) BroadcastTime(deviceID string, available int, formatted string) {
	payload, err := json.Marshal(timeEvent{
		Type:          "time",
		DeviceID:      deviceID,
		AvailableTime: available,
		Formatted:     formatted,
	})
	if err != nil {
		return
	}

	select {
	case h.broadcast <- outbound{deviceID: deviceID, payload: payload}:
	default:
		h.logger.Warn("time broadcast dropped, hub congested",
			zap.String("device_id", deviceID),
		)
	}
}

// Client is one websocket connection watching a device.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	deviceID string
}

func (c *Client) writePump() {
	defer func() { _ = c.conn.Close() }()

	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	// Inbound messages are not part of the protocol; reading only serves to
	// detect the close.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
