package model

import "time"

// DoorStatus is one record of a door's open/closed timeline. The table is
// append-only: rows are never updated or deleted, and the current state of
// a door is the Open value of its most recent row.
type DoorStatus struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	DoorID     string    `gorm:"size:32;not null;index:idx_door_status_door_recorded,priority:1"`
	Open       bool      `gorm:"not null"`
	RecordedAt time.Time `gorm:"not null;index:idx_door_status_door_recorded,priority:2,sort:desc"`

	// Associations
	Door Door `gorm:"constraint:OnDelete:CASCADE"`
}
