package model

import "time"

// Door represents a monitored emergency exit door. Doors are provisioned
// from configuration at startup; a report naming an unprovisioned door is
// rejected.
type Door struct {
	ID        string `gorm:"primaryKey;size:32"`
	Name      string `gorm:"size:128;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	// Associations
	Statuses []DoorStatus `gorm:"foreignKey:DoorID"`
}
