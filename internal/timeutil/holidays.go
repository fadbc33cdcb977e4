package timeutil

import "time"

// DanishHoliday reports whether date is a Danish public holiday, and its
// English name if so. Covers the fixed-date holidays plus the Easter-bound
// movable feasts. Store Bededag (Great Prayer Day) was abolished as a public
// holiday from 2024, so it is only reported for earlier years.
func DanishHoliday(date time.Time) (string, bool) {
	_, month, day := date.Date()

	switch {
	case month == time.January && day == 1:
		return "New Year's Day", true
	case month == time.December && day == 25:
		return "Christmas Day", true
	case month == time.December && day == 26:
		return "Second Christmas Day", true
	}

	easter := easterSunday(date.Year())
	offset := daysBetween(easter, date)

	switch offset {
	case -3:
		return "Maundy Thursday", true
	case -2:
		return "Good Friday", true
	case 0:
		return "Easter Sunday", true
	case 1:
		return "Easter Monday", true
	case 26:
		if date.Year() < 2024 {
			return "Great Prayer Day", true
		}
	case 39:
		return "Ascension Day", true
	case 49:
		return "Whit Sunday", true
	case 50:
		return "Whit Monday", true
	}

	return "", false
}

// easterSunday computes Easter Sunday for a Gregorian year using the
// anonymous Gregorian (Meeus/Jones/Butcher) algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
