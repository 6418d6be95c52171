package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Valid reports whether the status is one of the known values.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// OccupiesSlot reports whether an appointment in this status holds its time slot.
// Cancelled and no-show appointments release it.
func (s AppointmentStatus) OccupiesSlot() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCompleted
}

// Appointment is the single source of truth for slot occupancy and client history.
type Appointment struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID         `gorm:"type:uuid;not null;index:idx_appointments_tenant_date,priority:1"`
	StaffID         uuid.UUID         `gorm:"type:uuid;not null;index:idx_appointments_staff_date,priority:1"`
	ClientID        uuid.UUID         `gorm:"type:uuid;index"`
	ServiceID       *uuid.UUID        `gorm:"type:uuid"`
	Date            string            `gorm:"size:10;not null;index:idx_appointments_staff_date,priority:2;index:idx_appointments_tenant_date,priority:2"`
	Time            string            `gorm:"size:8;not null"`
	DurationMinutes int               `gorm:"not null;default:30"`
	Status          AppointmentStatus `gorm:"size:16;not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a *Appointment) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
