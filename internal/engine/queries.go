package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oondels/emergency-gate-monitoring/internal/store"
)

// DefaultOpeningsLimit caps how many recent openings a history query returns.
const DefaultOpeningsLimit = 5

// StatusView is the per-door payload of a status query.
type StatusView struct {
	Status bool      `json:"status"`
	Date   time.Time `json:"date"`
}

// Queries serves the read side shared by the websocket channel and the
// REST endpoints: latest status and recent openings per provisioned door.
type Queries struct {
	store store.Store
	doors []string
}

// NewQueries creates a query service over the provisioned door set.
func NewQueries(s store.Store, doors []string) *Queries {
	return &Queries{store: s, doors: doors}
}

// Doors returns the provisioned door identifiers.
func (q *Queries) Doors() []string {
	return q.doors
}

// Statuses returns the latest persisted state per door. Doors that have no
// timeline yet are omitted rather than failing the whole query.
func (q *Queries) Statuses(ctx context.Context) (map[string]StatusView, error) {
	result := make(map[string]StatusView, len(q.doors))
	for _, doorID := range q.doors {
		latest, err := q.store.Latest(ctx, doorID)
		if errors.Is(err, store.ErrNoStatus) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("status for door %s: %w", doorID, err)
		}
		result[doorID] = StatusView{Status: latest.Open, Date: latest.RecordedAt}
	}
	return result, nil
}

// Openings returns up to DefaultOpeningsLimit most recent open-events per
// door, most recent first.
func (q *Queries) Openings(ctx context.Context) (map[string][]time.Time, error) {
	result := make(map[string][]time.Time, len(q.doors))
	for _, doorID := range q.doors {
		times, err := q.store.LastOpenings(ctx, doorID, DefaultOpeningsLimit)
		if err != nil {
			return nil, fmt.Errorf("openings for door %s: %w", doorID, err)
		}
		result[doorID] = times
	}
	return result, nil
}

// OpeningsForDoor returns the recent open-events for one provisioned door.
func (q *Queries) OpeningsForDoor(ctx context.Context, doorID string) ([]time.Time, error) {
	if !q.knownDoor(doorID) {
		return nil, ErrDoorNotFound
	}
	times, err := q.store.LastOpenings(ctx, doorID, DefaultOpeningsLimit)
	if err != nil {
		return nil, fmt.Errorf("openings for door %s: %w", doorID, err)
	}
	return times, nil
}

func (q *Queries) knownDoor(doorID string) bool {
	for _, d := range q.doors {
		if d == doorID {
			return true
		}
	}
	return false
}
