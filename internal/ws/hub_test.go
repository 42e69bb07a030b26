package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oondels/emergency-gate-monitoring/internal/engine"
)

type recordingSink struct {
	mu    sync.Mutex
	beats []string
}

func (s *recordingSink) RecordHeartbeat(door string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beats = append(s.beats, door)
}

func (s *recordingSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.beats...)
}

type staticSource struct {
	statuses map[string]engine.StatusView
	openings map[string][]time.Time
	err      error
}

func (s *staticSource) Statuses(ctx context.Context) (map[string]engine.StatusView, error) {
	return s.statuses, s.err
}

func (s *staticSource) Openings(ctx context.Context) (map[string][]time.Time, error) {
	return s.openings, s.err
}

// attachClient registers a client without a real network connection. Tests
// drive route() directly and read replies from the send channel.
func attachClient(t *testing.T, h *Hub) *Client {
	t.Helper()
	client := &Client{hub: h, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- client:
	case <-time.After(time.Second):
		t.Fatal("hub did not accept client registration")
	}
	return client
}

func recv(t *testing.T, client *Client) Envelope {
	t.Helper()
	select {
	case raw := <-client.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no message delivered to client")
		return Envelope{}
	}
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	h := NewHub(&recordingSink{}, &staticSource{})
	h.Start()
	defer h.Stop()

	first := attachClient(t, h)
	second := attachClient(t, h)

	h.Broadcast("connection_lost", map[string]string{"door": "1"})

	for _, client := range []*Client{first, second} {
		env := recv(t, client)
		assert.Equal(t, "connection_lost", env.Event)
		assert.JSONEq(t, `{"door": "1"}`, string(env.Data))
	}
}

func TestHub_DropsSlowConsumer(t *testing.T) {
	h := NewHub(&recordingSink{}, &staticSource{})
	h.Start()
	defer h.Stop()

	slow := attachClient(t, h)

	// Saturate the client's buffer and push one message past it. The hub
	// must close the send channel instead of waiting.
	for i := 0; i < sendBuffer+1; i++ {
		h.Broadcast("door_report", map[string]int{"n": i})
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-slow.send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("slow client was never dropped")
		}
	}
}

func TestClient_RouteHeartbeat(t *testing.T) {
	sink := &recordingSink{}
	h := NewHub(sink, &staticSource{})
	client := &Client{hub: h, send: make(chan []byte, sendBuffer)}

	client.route([]byte(`{"event": "heartbeat", "data": {"2": "ok"}}`))

	assert.Equal(t, []string{"2"}, sink.snapshot())
}

func TestClient_RouteDoorStatusRepliesToSender(t *testing.T) {
	recordedAt := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	source := &staticSource{
		statuses: map[string]engine.StatusView{
			"1": {Status: true, Date: recordedAt},
		},
	}
	h := NewHub(&recordingSink{}, source)
	client := &Client{hub: h, send: make(chan []byte, sendBuffer)}

	client.route([]byte(`{"event": "door_status"}`))

	env := recv(t, client)
	assert.Equal(t, "door_status", env.Event)

	var statuses map[string]engine.StatusView
	require.NoError(t, json.Unmarshal(env.Data, &statuses))
	assert.True(t, statuses["1"].Status)
	assert.True(t, statuses["1"].Date.Equal(recordedAt))
}

func TestClient_RouteLastOpenings(t *testing.T) {
	source := &staticSource{
		openings: map[string][]time.Time{
			"1": {time.Date(2024, time.March, 1, 10, 5, 0, 0, time.UTC)},
			"2": {},
		},
	}
	h := NewHub(&recordingSink{}, source)
	client := &Client{hub: h, send: make(chan []byte, sendBuffer)}

	client.route([]byte(`{"event": "last_openings"}`))

	env := recv(t, client)
	assert.Equal(t, "last_openings", env.Event)

	var openings map[string][]time.Time
	require.NoError(t, json.Unmarshal(env.Data, &openings))
	assert.Len(t, openings["1"], 1)
	assert.Empty(t, openings["2"])
}

func TestClient_RouteIgnoresGarbage(t *testing.T) {
	sink := &recordingSink{}
	h := NewHub(sink, &staticSource{})
	client := &Client{hub: h, send: make(chan []byte, sendBuffer)}

	client.route([]byte(`not json`))
	client.route([]byte(`{"event": "unknown_event"}`))
	client.route([]byte(`{"event": "heartbeat", "data": "not a map"}`))

	assert.Empty(t, sink.snapshot())
	assert.Empty(t, client.send)
}

func TestHub_StopClosesClients(t *testing.T) {
	h := NewHub(&recordingSink{}, &staticSource{})
	h.Start()

	client := attachClient(t, h)
	h.Stop()

	select {
	case _, ok := <-client.send:
		assert.False(t, ok, "send channel should be closed on shutdown")
	case <-time.After(time.Second):
		t.Fatal("client send channel was not closed")
	}

	// A second Stop must be a no-op.
	h.Stop()
}
