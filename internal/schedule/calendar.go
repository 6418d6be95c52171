package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"barber-growth-backend/internal/model"
	"barber-growth-backend/internal/parse"
)

var (
	// ErrInvalidRule marks a weekday whose work hour or break rules cannot be used.
	ErrInvalidRule = errors.New("invalid calendar rule")
	// ErrOverlappingRules marks a weekday with overlapping work hour rules.
	ErrOverlappingRules = errors.New("overlapping work hour rules")
)

// Window is a half-open [Start, End) interval within one day.
type Window struct {
	Start parse.Clock
	End   parse.Clock
}

// Overlaps reports whether the window shares any minute with [start, end).
func (w Window) Overlaps(start, end parse.Clock) bool {
	return w.Start < end && w.End > start
}

// WorkCalendar is the recurring weekly availability of one staff member,
// minus recurring breaks and closed dates.
type WorkCalendar struct {
	StaffID uuid.UUID

	hours   map[time.Weekday][]Window
	breaks  map[time.Weekday][]Window
	closed  map[string]bool
	invalid map[time.Weekday]error
}

// NewWorkCalendar builds a calendar from stored rules. Rules of other staff
// members are ignored. Broken rule sets are not dropped silently: the weekday
// they belong to reports an error from Slots.
func NewWorkCalendar(staffID uuid.UUID, hours []model.WorkHourRule, breaks []model.BreakRule, exceptions []model.DateException) *WorkCalendar {
	c := &WorkCalendar{
		StaffID: staffID,
		hours:   make(map[time.Weekday][]Window),
		breaks:  make(map[time.Weekday][]Window),
		closed:  make(map[string]bool),
		invalid: make(map[time.Weekday]error),
	}

	for _, r := range hours {
		if r.StaffID != staffID {
			continue
		}
		c.add(c.hours, r.Weekday, r.StartTime, r.EndTime)
	}
	for _, r := range breaks {
		if r.StaffID != staffID {
			continue
		}
		c.add(c.breaks, r.Weekday, r.StartTime, r.EndTime)
	}
	for _, e := range exceptions {
		if e.StaffID == staffID && e.IsClosed {
			c.closed[e.Date] = true
		}
	}

	for wd, windows := range c.hours {
		sortWindows(windows)
		for i := 1; i < len(windows); i++ {
			if windows[i].Start < windows[i-1].End {
				c.markInvalid(wd, fmt.Errorf("%w: %s-%s and %s-%s on %s", ErrOverlappingRules,
					windows[i-1].Start, windows[i-1].End, windows[i].Start, windows[i].End, wd))
				break
			}
		}
	}
	for _, windows := range c.breaks {
		sortWindows(windows)
	}
	return c
}

func (c *WorkCalendar) add(target map[time.Weekday][]Window, weekday int, startRaw, endRaw string) {
	if weekday < 0 || weekday > 6 {
		// No weekday to pin the error on; every day of the week is suspect.
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			c.markInvalid(wd, fmt.Errorf("%w: weekday %d out of range", ErrInvalidRule, weekday))
		}
		return
	}
	wd := time.Weekday(weekday)

	start, err := parse.ParseClock(startRaw)
	if err != nil {
		c.markInvalid(wd, fmt.Errorf("%w: %v", ErrInvalidRule, err))
		return
	}
	end, err := parse.ParseClock(endRaw)
	if err != nil {
		c.markInvalid(wd, fmt.Errorf("%w: %v", ErrInvalidRule, err))
		return
	}
	if start >= end {
		c.markInvalid(wd, fmt.Errorf("%w: start %s is not before end %s on %s", ErrInvalidRule, start, end, wd))
		return
	}
	target[wd] = append(target[wd], Window{Start: start, End: end})
}

func (c *WorkCalendar) markInvalid(wd time.Weekday, err error) {
	if _, exists := c.invalid[wd]; !exists {
		c.invalid[wd] = err
	}
}

// IsClosed reports whether a date exception closes the given date.
func (c *WorkCalendar) IsClosed(date time.Time) bool {
	return c.closed[parse.FormatDate(date)]
}

// Hours returns the sorted working windows of a weekday.
func (c *WorkCalendar) Hours(wd time.Weekday) []Window {
	return c.hours[wd]
}

// InBreak reports whether [start, end) touches a break window of the weekday.
func (c *WorkCalendar) InBreak(wd time.Weekday, start, end parse.Clock) bool {
	for _, b := range c.breaks[wd] {
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// Err returns the configuration error recorded for a weekday, if any.
func (c *WorkCalendar) Err(wd time.Weekday) error {
	return c.invalid[wd]
}

func sortWindows(windows []Window) {
	sort.Slice(windows, func(i, j int) bool {
		if windows[i].Start == windows[j].Start {
			return windows[i].End < windows[j].End
		}
		return windows[i].Start < windows[j].Start
	})
}
