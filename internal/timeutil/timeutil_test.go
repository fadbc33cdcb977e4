package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cph = mustLoadLocation("Europe/Copenhagen")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:00", TimeOfDay(9 * 60), false},
		{"00:00", TimeOfDay(0), false},
		{"23:59", TimeOfDay(23*60 + 59), false},
		{"24:00", 0, true},
		{"9:00am", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestTimeOfDayAt(t *testing.T) {
	date := time.Date(2024, 1, 8, 17, 45, 12, 0, cph) // a Monday, clock ignored
	at := MustTimeOfDay("09:30").At(date, cph)
	assert.Equal(t, time.Date(2024, 1, 8, 9, 30, 0, 0, cph), at)
}

func TestDayOfWeekSundayIsZero(t *testing.T) {
	sunday := time.Date(2024, 1, 7, 0, 0, 0, 0, cph)
	for i := 0; i < 7; i++ {
		assert.Equal(t, i, DayOfWeek(sunday.AddDate(0, 0, i)))
	}
}

func TestOverlapsHalfOpen(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2024, 1, 8, h, 0, 0, 0, cph) }

	assert.True(t, Overlaps(at(9), at(11), at(10), at(12)))
	assert.True(t, Overlaps(at(10), at(11), at(9), at(12)), "containment")
	// Adjacent windows never overlap.
	assert.False(t, Overlaps(at(9), at(10), at(10), at(11)))
	assert.False(t, Overlaps(at(10), at(11), at(9), at(10)))
}

func TestWeekWindow(t *testing.T) {
	// 2024-01-10 is a Wednesday.
	start, end := WeekWindow(time.Date(2024, 1, 10, 13, 0, 0, 0, cph), cph)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, cph), start)
	assert.Equal(t, time.Date(2024, 1, 14, 0, 0, 0, 0, cph), end)

	// A Sunday belongs to the week that started the previous Monday.
	start, end = WeekWindow(time.Date(2024, 1, 14, 0, 0, 0, 0, cph), cph)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, cph), start)
	assert.Equal(t, time.Date(2024, 1, 14, 0, 0, 0, 0, cph), end)
}

func TestMonthWindow(t *testing.T) {
	start, end := MonthWindow(time.Date(2024, 2, 15, 0, 0, 0, 0, cph), cph)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, cph), start)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, cph), end, "leap February")
}

func TestDatesBetween(t *testing.T) {
	from := time.Date(2024, 1, 30, 0, 0, 0, 0, cph)
	to := time.Date(2024, 2, 2, 0, 0, 0, 0, cph)
	days := DatesBetween(from, to, cph)
	require.Len(t, days, 4)
	assert.Equal(t, from, days[0])
	assert.Equal(t, to, days[3])

	assert.Nil(t, DatesBetween(to, from, cph))
}

func TestDanishHolidayFixedDates(t *testing.T) {
	tests := []struct {
		date time.Time
		name string
	}{
		{time.Date(2024, 1, 1, 0, 0, 0, 0, cph), "New Year's Day"},
		{time.Date(2024, 12, 25, 0, 0, 0, 0, cph), "Christmas Day"},
		{time.Date(2024, 12, 26, 0, 0, 0, 0, cph), "Second Christmas Day"},
	}
	for _, tt := range tests {
		name, ok := DanishHoliday(tt.date)
		require.True(t, ok, tt.date)
		assert.Equal(t, tt.name, name)
	}

	_, ok := DanishHoliday(time.Date(2024, 7, 3, 0, 0, 0, 0, cph))
	assert.False(t, ok)
}

func TestDanishHolidayEasterBound(t *testing.T) {
	// Easter Sunday 2024 fell on March 31.
	tests := []struct {
		date time.Time
		name string
	}{
		{time.Date(2024, 3, 28, 0, 0, 0, 0, cph), "Maundy Thursday"},
		{time.Date(2024, 3, 29, 0, 0, 0, 0, cph), "Good Friday"},
		{time.Date(2024, 3, 31, 0, 0, 0, 0, cph), "Easter Sunday"},
		{time.Date(2024, 4, 1, 0, 0, 0, 0, cph), "Easter Monday"},
		{time.Date(2024, 5, 9, 0, 0, 0, 0, cph), "Ascension Day"},
		{time.Date(2024, 5, 19, 0, 0, 0, 0, cph), "Whit Sunday"},
		{time.Date(2024, 5, 20, 0, 0, 0, 0, cph), "Whit Monday"},
	}
	for _, tt := range tests {
		name, ok := DanishHoliday(tt.date)
		require.True(t, ok, tt.date)
		assert.Equal(t, tt.name, name, tt.date)
	}
}

func TestGreatPrayerDayAbolished2024(t *testing.T) {
	// Easter 2023: April 9 -> Great Prayer Day May 5 2023.
	name, ok := DanishHoliday(time.Date(2023, 5, 5, 0, 0, 0, 0, cph))
	require.True(t, ok)
	assert.Equal(t, "Great Prayer Day", name)

	// Easter 2024: March 31 -> the would-be date April 26 2024 is a workday.
	_, ok = DanishHoliday(time.Date(2024, 4, 26, 0, 0, 0, 0, cph))
	assert.False(t, ok)
}
