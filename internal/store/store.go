package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/oondels/emergency-gate-monitoring/internal/model"
)

// ErrNoStatus is returned when a door has no timeline records at all. A
// door without a baseline record is treated as unknown.
var ErrNoStatus = errors.New("door has no status records")

// ErrNothingPersisted is returned when an append reported zero affected
// rows without a driver error.
var ErrNothingPersisted = errors.New("status record was not persisted")

// Store defines the timeline operations the engine depends on. The timeline
// is append-only: records are inserted, queried, and never mutated.
type Store interface {
	// DB exposes the underlying handle for glue code (subscription
	// management, health checks).
	DB() *gorm.DB

	// Latest returns the most recent status record for a door, breaking
	// timestamp ties by insertion order.
	Latest(ctx context.Context, doorID string) (model.DoorStatus, error)

	// LastOpenings returns the timestamps of up to limit open-records for
	// a door, most recent first.
	LastOpenings(ctx context.Context, doorID string, limit int) ([]time.Time, error)

	// Append inserts one status record.
	Append(ctx context.Context, doorID string, open bool, at time.Time) error

	// AppendOpenings inserts one open-record per timestamp inside a single
	// transaction; either every record commits or none do.
	AppendOpenings(ctx context.Context, doorID string, at []time.Time) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Latest(ctx context.Context, doorID string) (model.DoorStatus, error) {
	var status model.DoorStatus
	err := s.db.WithContext(ctx).
		Where("door_id = ?", doorID).
		Order("recorded_at DESC, id DESC").
		First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.DoorStatus{}, ErrNoStatus
	}
	if err != nil {
		return model.DoorStatus{}, fmt.Errorf("fetch latest status for door %s: %w", doorID, err)
	}
	return status, nil
}

func (s *gormStore) LastOpenings(ctx context.Context, doorID string, limit int) ([]time.Time, error) {
	var records []model.DoorStatus
	err := s.db.WithContext(ctx).
		Where("door_id = ? AND open = ?", doorID, true).
		Order("recorded_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("fetch openings for door %s: %w", doorID, err)
	}

	times := make([]time.Time, len(records))
	for i, r := range records {
		times[i] = r.RecordedAt
	}
	return times, nil
}

func (s *gormStore) Append(ctx context.Context, doorID string, open bool, at time.Time) error {
	record := model.DoorStatus{DoorID: doorID, Open: open, RecordedAt: at}
	res := s.db.WithContext(ctx).Create(&record)
	if res.Error != nil {
		return fmt.Errorf("append status for door %s: %w", doorID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNothingPersisted
	}
	return nil
}

func (s *gormStore) AppendOpenings(ctx context.Context, doorID string, at []time.Time) error {
	if len(at) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range at {
			record := model.DoorStatus{DoorID: doorID, Open: true, RecordedAt: t}
			res := tx.Create(&record)
			if res.Error != nil {
				return fmt.Errorf("append opening for door %s at %s: %w", doorID, t, res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrNothingPersisted
			}
		}
		return nil
	})
}
