package store

import (
	"errors"

	"barber-growth-backend/internal/model"
)

// ErrNotFound is returned when a keyed lookup or update matches no row.
var ErrNotFound = errors.New("record not found")

// CalendarRules are the calendar rows of one staff member relevant to one date.
type CalendarRules struct {
	Hours      []model.WorkHourRule
	Breaks     []model.BreakRule
	Exceptions []model.DateException
}
