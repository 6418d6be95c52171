package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Tenant represents one barbershop account.
type Tenant struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"size:256;not null"`
	Timezone     string    `gorm:"size:64"`
	CurrencyCode string    `gorm:"size:3;not null;default:'BRL'"`
	Active       bool      `gorm:"not null;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (t *Tenant) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Staff is a bookable professional of a tenant.
type Staff struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"size:256;not null"`
	Active    bool      `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Staff) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Client is a customer of a tenant.
type Client struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"size:256;not null"`
	Phone     string    `gorm:"size:32"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Client) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Service is a priced offering; the average price of active services is the tenant's ticket.
type Service struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name            string          `gorm:"size:256;not null"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DurationMinutes int             `gorm:"not null;default:30"`
	Active          bool            `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (s *Service) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// GrowthPolicy overrides the configured thresholds for one tenant.
// A nil column keeps the configured default.
type GrowthPolicy struct {
	TenantID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	BlockedCancelRate      *float64
	BlockedMinAppointments *int
	AtRiskCancelRate       *float64
	InactiveDays           *int
	CriticalCancelRate     *float64
	CriticalEmptySlots     *int
	UpdatedAt              time.Time
}
