package booking

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

type heldTimesReader interface {
	HeldTimes(ctx context.Context, date civil.Date) ([]civil.Time, error)
}

// Guard answers whether a date and time is already held by a pending or confirmed booking.
// It is a pre-check only; the store's uniqueness rule is what makes creation exclusive.
type Guard struct {
	store heldTimesReader
}

func NewGuard(store heldTimesReader) Guard {
	return Guard{store: store}
}

// Held returns the set of held start times on date, keyed by minute of day.
func (g Guard) Held(ctx context.Context, date civil.Date) (map[int]bool, error) {
	times, err := g.store.HeldTimes(ctx, date)
	if err != nil {
		return nil, err
	}
	held := make(map[int]bool, len(times))
	for _, t := range times {
		held[model.ClockMinutes(t)] = true
	}
	return held, nil
}

func (g Guard) HasConflict(ctx context.Context, date civil.Date, t civil.Time) (bool, error) {
	held, err := g.Held(ctx, date)
	if err != nil {
		return false, err
	}
	return held[model.ClockMinutes(t)], nil
}
