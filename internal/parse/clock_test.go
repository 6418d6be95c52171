package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  Clock
		expectErr bool
	}{
		{name: "Standard", raw: "09:30", expected: 9*60 + 30},
		{name: "Single digit hour", raw: "9:00", expected: 9 * 60},
		{name: "Postgres time with seconds", raw: "18:45:00", expected: 18*60 + 45},
		{name: "Surrounding spaces", raw: "  10:00 ", expected: 10 * 60},
		{name: "Midnight", raw: "00:00", expected: 0},
		{name: "End of day", raw: "24:00", expected: EndOfDay},
		{name: "Past end of day", raw: "24:30", expectErr: true},
		{name: "Bad minutes", raw: "10:75", expectErr: true},
		{name: "Not a time", raw: "noon", expectErr: true},
		{name: "Empty", raw: "", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := ParseClock(tc.raw)
			if tc.expectErr {
				assert.ErrorIs(t, err, ErrInvalidClock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, c)
		})
	}
}

func TestClockString(t *testing.T) {
	assert.Equal(t, "09:05", Clock(9*60+5).String())
	assert.Equal(t, "10:30", MustClock("10:00").Add(30).String())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, d.Weekday())

	_, err = ParseDate("01/03/2026")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDaysBetween(t *testing.T) {
	days, err := DaysBetween("2026-01-01", "2026-02-15")
	require.NoError(t, err)
	assert.Equal(t, 45, days)

	days, err = DaysBetween("2026-02-15", "2026-01-01")
	require.NoError(t, err)
	assert.Equal(t, -45, days)

	_, err = DaysBetween("bad", "2026-01-01")
	assert.Error(t, err)
}
