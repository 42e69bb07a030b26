package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// Subscribers receive an alert for every door-opened edge.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
