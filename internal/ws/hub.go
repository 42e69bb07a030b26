// Package ws is the realtime event channel between the backend and its
// listeners: door controllers pushing heartbeats and dashboards receiving
// status, alert, and connectivity events.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oondels/emergency-gate-monitoring/internal/engine"
)

// Envelope frames every message on the socket in either direction.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// HeartbeatSink consumes controller heartbeats.
type HeartbeatSink interface {
	RecordHeartbeat(door string, at time.Time)
}

// StatusSource answers the status and history queries listeners send over
// the socket.
type StatusSource interface {
	Statuses(ctx context.Context) (map[string]engine.StatusView, error)
	Openings(ctx context.Context) (map[string][]time.Time, error)
}

// Controllers and dashboards connect from other hosts; the original stack
// served them with a wildcard CORS policy, which the upgrader mirrors.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Hub owns the connected client set. All mutation goes through its run
// loop, so no lock guards the set. Broadcast delivery is best-effort: a
// client that cannot keep up is dropped rather than back-pressuring the
// rest of the system.
type Hub struct {
	monitor HeartbeatSink
	queries StatusSource

	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHub creates a hub routing inbound events to the given collaborators.
func NewHub(monitor HeartbeatSink, queries StatusSource) *Hub {
	return &Hub{
		monitor:    monitor,
		queries:    queries,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start launches the hub loop.
func (h *Hub) Start() {
	go h.run()
}

// Stop closes every connection and waits for the loop to exit.
func (h *Hub) Stop() {
	select {
	case <-h.doneCh:
		return
	default:
	}
	close(h.stopCh)
	<-h.doneCh
}

func (h *Hub) run() {
	defer close(h.doneCh)

	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			h.drop(client)
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer; there is no delivery guarantee.
					h.drop(client)
				}
			}
		case <-h.stopCh:
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
}

// Broadcast sends an event to every connected listener. It satisfies the
// Broadcaster contract of both the engine and the liveness monitor.
func (h *Hub) Broadcast(event string, payload any) {
	message, err := marshalEnvelope(event, payload)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- message:
	case <-h.stopCh:
	}
}

// HandleUpgrade upgrades an HTTP request to a websocket connection and
// attaches it to the hub.
func (h *Hub) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := newClient(h, conn)
	select {
	case h.register <- client:
	case <-h.stopCh:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func marshalEnvelope(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
