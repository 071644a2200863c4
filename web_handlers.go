package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	. "github.com/elijahnyp/shutter_control/util"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/elijahnyp/shutter_control/control"
	"github.com/elijahnyp/shutter_control/state"
)

const apiTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the monitor port is not exposed beyond the LAN
	},
}

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Data interface{} `json:"data"`
	Type string      `json:"type"`
}

// BusMessage is an outbound message as seen by websocket clients.
type BusMessage struct {
	Payload  json.RawMessage `json:"payload"`
	Topic    string          `json:"topic"`
	Retained bool            `json:"retained"`
}

// SystemStatus is the /api/status document.
type SystemStatus struct {
	Rooms     []state.RoomState `json:"rooms"`
	Connected bool              `json:"connected"`
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	conn *websocket.Conn
	send chan WebSocketMessage
	hub  *WSHub
}

// WSHub maintains the set of active clients and broadcasts messages
type WSHub struct {
	clients    map[*WSClient]bool
	broadcast  chan WebSocketMessage
	register   chan *WSClient
	unregister chan *WSClient
	done       chan struct{}
}

// NewHub creates a new WebSocket hub
func NewHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WebSocketMessage, 64),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then disconnects every client.
func (h *WSHub) Run(ctx context.Context) {
	defer close(h.done)
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
			Logger.Info().Msg("Client connected to WebSocket")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				Logger.Info().Msg("Client disconnected from WebSocket")
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// BroadcastUpdate sends an update to all connected clients
func (h *WSHub) BroadcastUpdate(messageType string, data interface{}) {
	select {
	case h.broadcast <- WebSocketMessage{Type: messageType, Data: data}:
	default:
		// Channel is full, skip this update
	}
}

// OnPublish forwards an outbound bus message to the clients.
func (h *WSHub) OnPublish(job PublishJob) {
	payload := json.RawMessage(job.Payload)
	if !json.Valid(job.Payload) {
		payload, _ = json.Marshal(string(job.Payload))
	}
	h.BroadcastUpdate("publish", BusMessage{
		Payload:  payload,
		Topic:    job.Topic,
		Retained: job.Retained,
	})
}

// readPump pumps messages from the websocket connection to the hub
func (c *WSClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		if err := c.conn.Close(); err != nil {
			Logger.Debug().Err(err).Msg("Error closing WebSocket connection")
		}
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *WSClient) writePump() {
	defer func() {
		if err := c.conn.Close(); err != nil {
			Logger.Debug().Err(err).Msg("Error closing WebSocket connection")
		}
	}()

	for message := range c.send {
		if err := c.conn.WriteJSON(message); err != nil {
			return
		}
	}
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		Logger.Debug().Err(err).Msg("Error writing close message")
	}
}

// ServeWebSocket handles websocket requests from the peer
func (h *WSHub) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSClient{
		conn: conn,
		send: make(chan WebSocketMessage, 256),
		hub:  h,
	}

	select {
	case client.hub.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// inspector reads room state; the coordinator is one.
type inspector interface {
	Inspect(ctx context.Context) ([]state.RoomState, error)
	InspectRoom(ctx context.Context, id string) (state.RoomState, error)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Logger.Error().Err(err).Msg("Error encoding response")
	}
}

// Healthcheck answers 200 while the bus is connected.
func Healthcheck(w http.ResponseWriter, r *http.Request) {
	if Client == nil || !Client.IsConnected() {
		http.Error(w, "mqtt disconnected", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// APIStatus returns every live room.
func APIStatus(src inspector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), apiTimeout)
		defer cancel()
		rooms, err := src.Inspect(ctx)
		if err != nil {
			Logger.Warn().Err(err).Msg("status unavailable")
			http.Error(w, "status unavailable", http.StatusServiceUnavailable)
			return
		}
		if rooms == nil {
			rooms = []state.RoomState{}
		}
		writeJSON(w, http.StatusOK, SystemStatus{
			Rooms:     rooms,
			Connected: Client != nil && Client.IsConnected(),
		})
	}
}

// APIRoom returns the room named by the {id} path variable.
func APIRoom(src inspector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), apiTimeout)
		defer cancel()
		room, err := src.InspectRoom(ctx, mux.Vars(r)["id"])
		switch {
		case errors.Is(err, control.ErrUnknownRoom):
			http.Error(w, "Unknown room", http.StatusNotFound)
		case err != nil:
			Logger.Warn().Err(err).Msg("room status unavailable")
			http.Error(w, "status unavailable", http.StatusServiceUnavailable)
		default:
			writeJSON(w, http.StatusOK, room)
		}
	}
}

// registerRoutes wires the monitor endpoints.
func registerRoutes(monitor *MonitorServer, src inspector, hub *WSHub) {
	monitor.AddHandler("/healthcheck", Healthcheck)
	monitor.AddHandler("/api/status", APIStatus(src))
	monitor.AddHandler("/api/room/{id}", APIRoom(src))
	monitor.AddHandler("/ws", hub.ServeWebSocket)
}
