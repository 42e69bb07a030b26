package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	queryTimeout   = 5 * time.Second
	sendBuffer     = 16
)

// Inbound event names.
const (
	eventHeartbeat    = "heartbeat"
	eventDoorStatus   = "door_status"
	eventLastOpenings = "last_openings"
)

// Client is one websocket connection. The read pump routes inbound events;
// the write pump owns all writes to the connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stopCh:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.route(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) route(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("ws: discarding malformed frame: %v", err)
		return
	}

	switch env.Event {
	case eventHeartbeat:
		c.handleHeartbeat(env.Data)
	case eventDoorStatus:
		c.handleDoorStatus()
	case eventLastOpenings:
		c.handleLastOpenings()
	default:
		// Unknown events are ignored, not errors.
	}
}

// handleHeartbeat accepts the controllers' one-key map ({"<door>": ...})
// and records a beat for that door.
func (c *Client) handleHeartbeat(data json.RawMessage) {
	var beat map[string]json.RawMessage
	if err := json.Unmarshal(data, &beat); err != nil {
		log.Printf("ws: discarding malformed heartbeat: %v", err)
		return
	}
	for door := range beat {
		c.hub.monitor.RecordHeartbeat(door, time.Now())
	}
}

func (c *Client) handleDoorStatus() {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	statuses, err := c.hub.queries.Statuses(ctx)
	if err != nil {
		log.Printf("ws: door_status query failed: %v", err)
		return
	}
	c.reply(eventDoorStatus, statuses)
}

func (c *Client) handleLastOpenings() {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	openings, err := c.hub.queries.Openings(ctx)
	if err != nil {
		log.Printf("ws: last_openings query failed: %v", err)
		return
	}
	c.reply(eventLastOpenings, openings)
}

// reply sends an event to this client only.
func (c *Client) reply(event string, payload any) {
	message, err := marshalEnvelope(event, payload)
	if err != nil {
		return
	}
	select {
	case c.send <- message:
	default:
		// Client is saturated; the next query can be retried.
	}
}
