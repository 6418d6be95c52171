package schedule

import (
	"fmt"

	"barber-growth-backend/internal/model"
	"barber-growth-backend/internal/parse"
)

// Availability is the outcome of resolving candidates against bookings.
type Availability struct {
	Candidates []parse.Clock
	Open       []parse.Clock
	Booked     []parse.Clock
	// Skipped holds one error per appointment that could not be placed.
	Skipped []error
}

// Resolve removes from candidates every slot that a slot-occupying appointment
// overlaps. An appointment covers [time, time+duration), so a 60 minute booking
// removes two 30 minute slots; one without a duration covers a single step.
// The order of candidates is preserved in both Open and Booked.
func Resolve(candidates []parse.Clock, granularity int, bookings []model.Appointment) Availability {
	if granularity <= 0 {
		granularity = DefaultGranularity
	}

	var (
		occupied []Window
		skipped  []error
	)
	for _, b := range bookings {
		if !b.Status.OccupiesSlot() {
			continue
		}
		start, err := parse.ParseClock(b.Time)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("appointment %s: %w", b.ID, err))
			continue
		}
		duration := b.DurationMinutes
		if duration <= 0 {
			duration = granularity
		}
		occupied = append(occupied, Window{Start: start, End: start.Add(duration)})
	}

	result := Availability{
		Candidates: candidates,
		Open:       make([]parse.Clock, 0, len(candidates)),
		Booked:     make([]parse.Clock, 0),
		Skipped:    skipped,
	}
	for _, slot := range candidates {
		end := slot.Add(granularity)
		taken := false
		for _, w := range occupied {
			if w.Overlaps(slot, end) {
				taken = true
				break
			}
		}
		if taken {
			result.Booked = append(result.Booked, slot)
		} else {
			result.Open = append(result.Open, slot)
		}
	}
	return result
}

// Strings formats clocks as HH:MM for storage.
func Strings(clocks []parse.Clock) []string {
	out := make([]string, len(clocks))
	for i, c := range clocks {
		out[i] = c.String()
	}
	return out
}
