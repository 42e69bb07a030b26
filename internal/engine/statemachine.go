package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/oondels/emergency-gate-monitoring/internal/store"
)

// StateMachine applies live status reports to the door timeline with
// edge-triggered side effects: a record is appended only when the reported
// state differs from the latest persisted state, and an alert is dispatched
// only on the closed-to-open edge.
type StateMachine struct {
	store    store.Store
	bus      Broadcaster
	notifier Notifier
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStateMachine creates a state machine over the given collaborators.
func NewStateMachine(s store.Store, bus Broadcaster, notifier Notifier) *StateMachine {
	return &StateMachine{
		store:    s,
		bus:      bus,
		notifier: notifier,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

// doorLock returns the mutex serializing read-decide-append for one door.
// Concurrent reports for different doors stay independent.
func (m *StateMachine) doorLock(doorID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[doorID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[doorID] = lock
	}
	return lock
}

// Apply processes one live status report. The raw report is broadcast to
// all listeners before any persistence and is never rolled back; the
// timeline and alert side effects follow only on a genuine transition.
func (m *StateMachine) Apply(ctx context.Context, doorID string, reportedOpen bool) error {
	m.bus.Broadcast(EventDoorReport, ReportPayload{
		Door:   doorID,
		Status: reportedOpen,
		Date:   m.now(),
	})

	lock := m.doorLock(doorID)
	lock.Lock()
	defer lock.Unlock()

	latest, err := m.store.Latest(ctx, doorID)
	if errors.Is(err, store.ErrNoStatus) {
		return ErrDoorNotFound
	}
	if err != nil {
		return fmt.Errorf("read latest state for door %s: %w", doorID, err)
	}

	switch {
	case !latest.Open && reportedOpen:
		at := m.now()
		if err := m.store.Append(ctx, doorID, true, at); err != nil {
			return fmt.Errorf("persist open edge for door %s: %w", doorID, err)
		}
		m.notifier.Notify(doorID, at)
	case latest.Open && !reportedOpen:
		if err := m.store.Append(ctx, doorID, false, m.now()); err != nil {
			return fmt.Errorf("persist close edge for door %s: %w", doorID, err)
		}
	default:
		// Repeated same-state report. The timeline only grows on edges.
		log.Printf("door %s: report open=%v matches current state, nothing to persist", doorID, reportedOpen)
	}
	return nil
}
