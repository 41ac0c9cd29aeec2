package model

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// ClockMinutes returns minutes since midnight, ignoring seconds.
func ClockMinutes(t civil.Time) int {
	return t.Hour*60 + t.Minute
}

// AddMinutes shifts t by n minutes, wrapping at midnight.
func AddMinutes(t civil.Time, n int) civil.Time {
	m := (ClockMinutes(t) + n) % (24 * 60)
	if m < 0 {
		m += 24 * 60
	}
	return civil.Time{Hour: m / 60, Minute: m % 60}
}

// FormatClock renders t as HH:MM.
func FormatClock(t civil.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseClock accepts HH:MM or HH:MM:SS and truncates to minute resolution.
func ParseClock(raw string) (civil.Time, error) {
	if len(raw) == len("15:04") {
		raw += ":00"
	}
	t, err := civil.ParseTime(raw)
	if err != nil {
		return civil.Time{}, err
	}
	return civil.Time{Hour: t.Hour, Minute: t.Minute}, nil
}

func Weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}
