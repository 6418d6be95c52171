package parse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the storage format of every calendar date column.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidClock is returned for time-of-day strings that cannot be parsed.
	ErrInvalidClock = errors.New("invalid clock time")
	// ErrInvalidDate is returned for calendar dates that cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")
)

// Accepts "9:00", "09:00" and the postgres time form "09:00:00".
var clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)

// Clock is a time of day in minutes since midnight.
type Clock int

// EndOfDay is the only clock value allowed past 23:59.
const EndOfDay Clock = 24 * 60

// ParseClock converts a raw time-of-day string into a Clock.
func ParseClock(raw string) (Clock, error) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second := 0
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}

	if minute > 59 || second > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	c := Clock(hour*60 + minute)
	// 24:00 marks the end of the day and carries no seconds.
	if c > EndOfDay || (c == EndOfDay && second != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	return c, nil
}

// MustClock is ParseClock for literals known to be valid.
func MustClock(raw string) Clock {
	c, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// Add returns the clock shifted by the given number of minutes.
func (c Clock) Add(minutes int) Clock {
	return c + Clock(minutes)
}

// String formats the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ParseDate parses a YYYY-MM-DD date at midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return t, nil
}

// FormatDate renders the calendar date of t in its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween returns the number of whole calendar days from one date to another.
// The result is negative when to precedes from.
func DaysBetween(from, to string) (int, error) {
	a, err := ParseDate(from)
	if err != nil {
		return 0, err
	}
	b, err := ParseDate(to)
	if err != nil {
		return 0, err
	}
	return int(b.Sub(a).Hours() / 24), nil
}
