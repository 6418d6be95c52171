package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Classification is the behavioral tier of a client.
type Classification string

const (
	ClassificationNormal  Classification = "normal"
	ClassificationAtRisk  Classification = "at_risk"
	ClassificationBlocked Classification = "blocked"
)

// ClientBehavior is the recomputed behavioral summary of one client in one tenant.
type ClientBehavior struct {
	ClientID            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	TenantID            uuid.UUID      `gorm:"type:uuid;primaryKey;index"`
	TotalAppointments   int            `gorm:"not null"`
	CompletedCount      int            `gorm:"not null"`
	CancelledCount      int            `gorm:"not null"`
	NoShowCount         int            `gorm:"not null"`
	CancelRate          float64        `gorm:"not null"`
	Classification      Classification `gorm:"size:16;not null;index"`
	LastAppointmentDate string         `gorm:"size:10"`
	LastCompletedDate   string         `gorm:"size:10"`
}

// EmptySlotStatus tracks what happened to an open slot.
type EmptySlotStatus string

const (
	SlotOpen     EmptySlotStatus = "open"
	SlotNotified EmptySlotStatus = "notified"
	SlotFilled   EmptySlotStatus = "filled"
)

// EmptySlot is an unbooked slot of a staff member on a date.
type EmptySlot struct {
	StaffID   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Date      string          `gorm:"size:10;primaryKey"`
	Time      string          `gorm:"size:5;primaryKey"`
	TenantID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_empty_slots_tenant_date,priority:1"`
	Status    EmptySlotStatus `gorm:"size:16;not null;default:'open'"`
	CreatedAt time.Time
}

// ReactivationStatus is advanced by outbound messaging, never by the sync.
type ReactivationStatus string

const (
	ReactivationPending  ReactivationStatus = "pending"
	ReactivationSent     ReactivationStatus = "sent"
	ReactivationReturned ReactivationStatus = "returned"
)

// ReactivationQueueEntry is an inactive client waiting for outreach.
type ReactivationQueueEntry struct {
	ClientID            uuid.UUID          `gorm:"type:uuid;primaryKey"`
	TenantID            uuid.UUID          `gorm:"type:uuid;primaryKey;index"`
	ClientName          string             `gorm:"size:256"`
	ClientPhone         string             `gorm:"size:32"`
	DaysInactive        int                `gorm:"not null"`
	LastAppointmentDate string             `gorm:"size:10;not null"`
	Status              ReactivationStatus `gorm:"size:16;not null;default:'pending'"`
	CreatedAt           time.Time
}

// MoneyLostAlert summarizes one tenant's estimated lost revenue for one day.
type MoneyLostAlert struct {
	TenantID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Date               string          `gorm:"size:10;primaryKey"`
	EmptySlotsCount    int             `gorm:"not null"`
	CancellationsCount int             `gorm:"not null"`
	NoShowsCount       int             `gorm:"not null"`
	TotalAppointments  int             `gorm:"not null"`
	AvgServicePrice    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	EstimatedLoss      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CancelRate         float64         `gorm:"not null"`
	IsCritical         bool            `gorm:"not null"`
	IsDismissed        bool            `gorm:"not null;default:false"`
	CreatedAt          time.Time
}
