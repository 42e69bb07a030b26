package liveness

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBus struct {
	mu     sync.Mutex
	events []Event
}

func (b *recordingBus) Broadcast(event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	door := ""
	if p, ok := payload.(DoorPayload); ok {
		door = p.Door
	}
	b.events = append(b.events, Event{Name: event, Door: door})
}

func (b *recordingBus) snapshot() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	timeout := 150 * time.Second

	lastBeat := map[string]time.Time{
		"1": now.Add(-10 * time.Second),  // fresh
		"2": now.Add(-151 * time.Second), // stale
		"3": now.Add(-150 * time.Second), // exactly at the window edge
	}

	events := evaluate(lastBeat, now, timeout)
	require.Len(t, events, 3)

	assert.Equal(t, Event{Name: EventDoorConnection, Door: "1"}, events[0])
	assert.Equal(t, Event{Name: EventConnectionLost, Door: "2"}, events[1])
	// A gap of exactly the window is still alive; loss requires exceeding it.
	assert.Equal(t, Event{Name: EventDoorConnection, Door: "3"}, events[2])
}

func TestEvaluate_ColdStartIsAlive(t *testing.T) {
	start := time.Now()
	lastBeat := map[string]time.Time{"1": start, "2": start}

	events := evaluate(lastBeat, start.Add(time.Second), 150*time.Second)
	for _, ev := range events {
		assert.Equal(t, EventDoorConnection, ev.Name)
	}
}

func TestMonitor_BroadcastsLossAfterMissedWindow(t *testing.T) {
	bus := &recordingBus{}
	m := NewMonitor([]string{"1", "2"}, 30*time.Millisecond)

	// A heartbeat far in the future keeps door 1 alive for the whole test.
	m.RecordHeartbeat("1", time.Now().Add(time.Hour))

	m.Start(bus)
	defer m.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		lostTwo := false
		aliveOne := false
		for _, ev := range bus.snapshot() {
			if ev.Name == EventConnectionLost && ev.Door == "2" {
				lostTwo = true
			}
			if ev.Name == EventDoorConnection && ev.Door == "1" {
				aliveOne = true
			}
			// Door 1 must never be reported lost.
			assert.False(t, ev.Name == EventConnectionLost && ev.Door == "1")
		}
		if lostTwo && aliveOne {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for connectivity events")
}

func TestMonitor_StopIsIdempotent(t *testing.T) {
	m := NewMonitor([]string{"1"}, 10*time.Millisecond)
	m.Start(&recordingBus{})
	m.Stop()
	m.Stop()
}
