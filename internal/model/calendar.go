package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkHourRule declares a recurring working window of a staff member.
// Weekday follows time.Weekday (0 = Sunday).
type WorkHourRule struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	StaffID   uuid.UUID `gorm:"type:uuid;not null;index:idx_work_hours_staff_weekday,priority:1"`
	Weekday   int       `gorm:"not null;index:idx_work_hours_staff_weekday,priority:2"`
	StartTime string    `gorm:"size:8;not null"`
	EndTime   string    `gorm:"size:8;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *WorkHourRule) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// BreakRule declares a recurring non-bookable window, such as lunch.
type BreakRule struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	StaffID   uuid.UUID `gorm:"type:uuid;not null;index:idx_breaks_staff_weekday,priority:1"`
	Weekday   int       `gorm:"not null;index:idx_breaks_staff_weekday,priority:2"`
	StartTime string    `gorm:"size:8;not null"`
	EndTime   string    `gorm:"size:8;not null"`
	Kind      string    `gorm:"size:32"`
	Note      string    `gorm:"size:512"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *BreakRule) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// DateException overrides the weekly rules of a staff member on one date.
type DateException struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	StaffID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_exceptions_staff_date,priority:1"`
	Date      string    `gorm:"size:10;not null;uniqueIndex:idx_exceptions_staff_date,priority:2"`
	IsClosed  bool      `gorm:"not null"`
	Note      string    `gorm:"size:512"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e *DateException) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
