package schedule

import (
	"time"

	"barber-growth-backend/internal/parse"
)

// DefaultGranularity is the slot step in minutes.
const DefaultGranularity = 30

// SlotGenerator enumerates candidate start times from a WorkCalendar.
type SlotGenerator struct {
	Granularity int
	HonorBreaks bool
}

// NewSlotGenerator returns a generator with the given step, falling back to
// DefaultGranularity for non-positive values.
func NewSlotGenerator(granularity int, honorBreaks bool) SlotGenerator {
	if granularity <= 0 {
		granularity = DefaultGranularity
	}
	return SlotGenerator{Granularity: granularity, HonorBreaks: honorBreaks}
}

// Generate returns the ordered candidate start times of date.
//
// Every working window restarts the run at its own start, so split shifts never
// produce a slot bridging the gap. A slot is only offered when its whole step fits
// before the window's end. Closed dates and weekdays without rules yield no slots.
// A weekday with a broken rule set yields no slots and the recorded error.
func (g SlotGenerator) Generate(cal *WorkCalendar, date time.Time) ([]parse.Clock, error) {
	step := g.Granularity
	if step <= 0 {
		step = DefaultGranularity
	}

	if cal == nil || cal.IsClosed(date) {
		return []parse.Clock{}, nil
	}

	wd := date.Weekday()
	if err := cal.Err(wd); err != nil {
		return []parse.Clock{}, err
	}

	slots := make([]parse.Clock, 0)
	for _, w := range cal.Hours(wd) {
		for start := w.Start; start.Add(step) <= w.End; start = start.Add(step) {
			if g.HonorBreaks && cal.InBreak(wd, start, start.Add(step)) {
				continue
			}
			slots = append(slots, start)
		}
	}
	return slots, nil
}
