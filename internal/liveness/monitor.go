// Package liveness watches door-controller heartbeats and announces
// connectivity over the event bus.
package liveness

import (
	"log"
	"sort"
	"time"
)

// Event names pushed to listeners on every evaluation pass.
const (
	// EventConnectionLost names a door whose controller missed the
	// heartbeat window.
	EventConnectionLost = "connection_lost"
	// EventDoorConnection confirms a door whose controller is still
	// heartbeating.
	EventDoorConnection = "door_connection"
)

// Broadcaster pushes a named event to all connected listeners.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// DoorPayload is the wire shape of a connectivity event.
type DoorPayload struct {
	Door string `json:"door"`
}

type beat struct {
	door string
	at   time.Time
}

// Monitor is a single-owner watchdog over per-door heartbeat times. One
// goroutine holds the state; heartbeats arrive over a channel and a single
// ticker with period equal to the timeout window drives evaluation, no
// matter how many listeners are connected. Liveness is transient: a
// restarted process treats every door as alive until one full window has
// elapsed without a heartbeat.
type Monitor struct {
	timeout time.Duration
	doors   []string

	beats  chan beat
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewMonitor configures a watchdog over the given doors.
func NewMonitor(doors []string, timeout time.Duration) *Monitor {
	if timeout <= 0 {
		timeout = 150 * time.Second
	}
	return &Monitor{
		timeout: timeout,
		doors:   doors,
		beats:   make(chan beat, 64),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// RecordHeartbeat notes a heartbeat for a door. It never blocks: the
// watchdog only needs the latest beat per door, so a beat dropped under
// backpressure is indistinguishable from one overwritten a moment later.
func (m *Monitor) RecordHeartbeat(door string, at time.Time) {
	select {
	case m.beats <- beat{door: door, at: at}:
	default:
	}
}

// Start launches the watchdog loop, announcing connectivity on the given
// bus. The bus is supplied here rather than at construction because the
// event hub in turn consumes the monitor's heartbeats.
func (m *Monitor) Start(bus Broadcaster) {
	go m.run(bus)
}

// Stop requests the watchdog loop to terminate and waits for it.
func (m *Monitor) Stop() {
	select {
	case <-m.doneCh:
		return
	default:
	}
	close(m.stopCh)
	<-m.doneCh
}

func (m *Monitor) run(bus Broadcaster) {
	defer close(m.doneCh)

	// Cold start: every configured door counts as alive from now.
	lastBeat := make(map[string]time.Time, len(m.doors))
	start := time.Now()
	for _, door := range m.doors {
		lastBeat[door] = start
	}

	ticker := time.NewTicker(m.timeout)
	defer ticker.Stop()

	for {
		select {
		case b := <-m.beats:
			lastBeat[b.door] = b.at
		case now := <-ticker.C:
			for _, ev := range evaluate(lastBeat, now, m.timeout) {
				if ev.Name == EventConnectionLost {
					log.Printf("connection with door %s lost", ev.Door)
				}
				bus.Broadcast(ev.Name, DoorPayload{Door: ev.Door})
			}
		case <-m.stopCh:
			return
		}
	}
}

// Event is one connectivity announcement produced by an evaluation pass.
type Event struct {
	Name string
	Door string
}

// evaluate compares every door's last heartbeat against the timeout window
// at the given instant. It is a pure step over the state the run loop owns.
func evaluate(lastBeat map[string]time.Time, now time.Time, timeout time.Duration) []Event {
	doors := make([]string, 0, len(lastBeat))
	for door := range lastBeat {
		doors = append(doors, door)
	}
	sort.Strings(doors)

	events := make([]Event, 0, len(doors))
	for _, door := range doors {
		if now.Sub(lastBeat[door]) > timeout {
			events = append(events, Event{Name: EventConnectionLost, Door: door})
		} else {
			events = append(events, Event{Name: EventDoorConnection, Door: door})
		}
	}
	return events
}
