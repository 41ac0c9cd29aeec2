// Package civiltime anchors scheduling to one civil time zone, independent of the
// host's local zone.
package civiltime

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"cloud.google.com/go/civil"
)

const DefaultZone = "Europe/Madrid"

type Zone struct {
	loc *time.Location
	now func() time.Time
}

// Load resolves an IANA zone name. The embedded tz database is used when the host has none.
func Load(name string) (*Zone, error) {
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return New(loc, time.Now), nil
}

func New(loc *time.Location, now func() time.Time) *Zone {
	if now == nil {
		now = time.Now
	}
	return &Zone{loc: loc, now: now}
}

func (z *Zone) Location() *time.Location { return z.loc }

// Current returns the absolute current instant from the zone's clock.
func (z *Zone) Current() time.Time { return z.now() }

// Now returns the current civil date and time in the zone.
func (z *Zone) Now() civil.DateTime {
	return civil.DateTimeOf(z.now().In(z.loc))
}

func (z *Zone) Today() civil.Date {
	return z.Now().Date
}

// Instant maps a civil date and time in the zone to an absolute instant.
func (z *Zone) Instant(d civil.Date, t civil.Time) time.Time {
	return civil.DateTime{Date: d, Time: t}.In(z.loc)
}

// Until returns the time remaining before the civil moment (negative once it has passed).
func (z *Zone) Until(d civil.Date, t civil.Time) time.Duration {
	return z.Instant(d, t).Sub(z.now())
}

// IsPast reports whether a slot starting at (d, t) may no longer be booked given a lead time.
// Earlier dates are always past. On the current date a slot is past unless it starts strictly
// later than now plus lead. Later dates are never past.
func (z *Zone) IsPast(d civil.Date, t civil.Time, lead time.Duration) bool {
	today := z.Today()
	switch {
	case d.Before(today):
		return true
	case d.After(today):
		return false
	}
	return !z.Instant(d, t).After(z.now().Add(lead))
}

// Offset returns the zone's UTC offset in effect at the civil moment.
func (z *Zone) Offset(d civil.Date, t civil.Time) time.Duration {
	_, secs := z.Instant(d, t).Zone()
	return time.Duration(secs) * time.Second
}
