package model

import (
	"time"

	"github.com/google/uuid"
)

// PushSubscription holds a tenant owner's browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
