package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

var ErrIllegalTransition = errors.New("illegal status transition")

var transitions = map[model.Status][]model.Status{
	model.StatusPending:   {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed: {model.StatusCompleted, model.StatusCancelled, model.StatusRescheduled},
}

// InitialStatus is confirmed for free types, which need no staff approval, and pending otherwise.
func InitialStatus(ct model.ConsultationType) model.Status {
	if ct.Free() {
		return model.StatusConfirmed
	}
	return model.StatusPending
}

func Allowed(from, to model.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func Check(from, to model.Status) error {
	if !Allowed(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// Apply moves b to status to and stamps the matching lifecycle timestamp. reason is kept
// only for cancellations.
func Apply(b *model.Booking, to model.Status, at time.Time, reason string) error {
	if err := Check(b.Status, to); err != nil {
		return err
	}
	at = at.UTC()
	switch to {
	case model.StatusConfirmed:
		b.ConfirmedAt = &at
	case model.StatusCompleted:
		b.CompletedAt = &at
	case model.StatusCancelled:
		b.CancelledAt = &at
		b.CancelReason = reason
	case model.StatusRescheduled:
		b.RescheduledAt = &at
	}
	b.Status = to
	b.UpdatedAt = at
	return nil
}

// Stamp sets creation timestamps, plus confirmed_at for bookings created confirmed.
func Stamp(b *model.Booking, at time.Time) {
	at = at.UTC()
	b.CreatedAt = at
	b.UpdatedAt = at
	if b.Status == model.StatusConfirmed {
		b.ConfirmedAt = &at
	}
}
