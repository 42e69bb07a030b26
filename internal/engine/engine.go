// Package engine contains the door state machine and the offline-batch
// reconciler. Both write the same append-only timeline; the state machine
// additionally drives live broadcast and alerting.
package engine

import (
	"errors"
	"time"
)

// ErrDoorNotFound is returned when a report names a door that has never
// been provisioned (no baseline timeline record exists).
var ErrDoorNotFound = errors.New("door not found")

// Broadcaster pushes a named event to every connected listener. Delivery is
// best-effort; the engine never learns whether anyone received it.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// Notifier dispatches a door-opened alert. Implementations must not block
// and must swallow their own failures.
type Notifier interface {
	Notify(doorID string, at time.Time)
}

// EventDoorReport is broadcast for every incoming live status report,
// whether or not it changes the timeline.
const EventDoorReport = "door_report"

// ReportPayload is the wire shape of a door_report broadcast.
type ReportPayload struct {
	Door   string    `json:"door"`
	Status bool      `json:"status"`
	Date   time.Time `json:"date"`
}
