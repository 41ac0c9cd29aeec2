package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/llcportal/consultations/services/booking-service/internal/calendar"
	"github.com/llcportal/consultations/services/booking-service/internal/civiltime"
	"github.com/llcportal/consultations/services/booking-service/internal/lifecycle"
	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

// Manager applies lifecycle transitions. Every transition goes through Store.Mutate, which
// locks the row, so a stale request is checked against the latest status.
type Manager struct {
	store    Store
	catalog  Catalog
	zone     *civiltime.Zone
	announce announcer
	logger   *slog.Logger
}

func NewManager(store Store, catalog Catalog, zone *civiltime.Zone, notifier Notifier, recipients Recipients, logger *slog.Logger) *Manager {
	return &Manager{
		store:    store,
		catalog:  catalog,
		zone:     zone,
		announce: announcer{catalog: catalog, notifier: notifier, recipients: recipients, logger: logger},
		logger:   logger,
	}
}

// Transition moves a booking to status to on behalf of an administrator. For cancellations
// notes becomes the cancel reason; otherwise it is stored as an admin note.
func (m *Manager) Transition(ctx context.Context, actorID, id string, to model.Status, notes string) (model.Booking, error) {
	if to == model.StatusRescheduled {
		return model.Booking{}, invalid("status", "use reschedule to change date and time")
	}
	reason := ""
	if to == model.StatusCancelled {
		reason = notes
	}
	return m.mutate(ctx, id, model.Change{
		Action:  "booking." + string(to),
		ActorID: actorID,
		Apply: func(cur model.Booking) (model.Booking, error) {
			if err := lifecycle.Apply(&cur, to, m.zone.Current(), reason); err != nil {
				return cur, err
			}
			if notes != "" && to != model.StatusCancelled {
				cur.AdminNotes = notes
			}
			return cur, nil
		},
	})
}

// CancelOwn lets the owning account cancel its own pending or confirmed booking. Bookings
// owned by someone else are reported as not found.
func (m *Manager) CancelOwn(ctx context.Context, accountID, id, reason string) (model.Booking, error) {
	return m.mutate(ctx, id, model.Change{
		Action:  "booking.cancelled",
		ActorID: accountID,
		Apply: func(cur model.Booking) (model.Booking, error) {
			if accountID == "" || cur.AccountID() != accountID {
				return cur, model.ErrNotFound
			}
			err := lifecycle.Apply(&cur, model.StatusCancelled, m.zone.Current(), reason)
			return cur, err
		},
	})
}

// CancelGuest cancels a guest booking identified by its code and contact email. A code
// that does not belong to that email is reported as not found.
func (m *Manager) CancelGuest(ctx context.Context, code, email, reason string) (model.Booking, error) {
	b, err := findGuestBooking(ctx, m.store, code, email)
	if err != nil {
		return model.Booking{}, err
	}
	return m.mutate(ctx, b.ID, model.Change{
		Action:  "booking.cancelled",
		ActorID: "guest:" + b.Code,
		Apply: func(cur model.Booking) (model.Booking, error) {
			if !guestMatches(cur, email) {
				return cur, model.ErrNotFound
			}
			err := lifecycle.Apply(&cur, model.StatusCancelled, m.zone.Current(), reason)
			return cur, err
		},
	})
}

// Reschedule moves a confirmed booking to a new date and time. The target must be an open
// slot of the booking's consultation type; the store rejects the change when another
// pending or confirmed booking holds it.
func (m *Manager) Reschedule(ctx context.Context, actorID, id string, date civil.Date, at civil.Time) (model.Booking, error) {
	if !date.IsValid() {
		return model.Booking{}, invalid("date", "must be YYYY-MM-DD")
	}
	cur, err := m.Get(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	ct, err := m.catalog.ConsultationType(ctx, cur.TypeID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Booking{}, fmt.Errorf("%w: %d", ErrInvalidType, cur.TypeID)
	}
	if err != nil {
		return model.Booking{}, err
	}
	slots, err := bookableSlots(ctx, m.catalog, m.zone, date, ct, 0)
	if err != nil {
		return model.Booking{}, err
	}
	if _, ok := calendar.Contains(slots, at); !ok {
		return model.Booking{}, unavailable("new time is not an open slot")
	}

	return m.mutate(ctx, id, model.Change{
		Action:  "booking.rescheduled",
		ActorID: actorID,
		Apply: func(cur model.Booking) (model.Booking, error) {
			if err := lifecycle.Apply(&cur, model.StatusRescheduled, m.zone.Current(), ""); err != nil {
				return cur, err
			}
			cur.Date = date
			cur.Time = at
			return cur, nil
		},
	})
}

// Get returns one booking by id. Ids that are not UUIDs are reported as not found.
func (m *Manager) Get(ctx context.Context, id string) (model.Booking, error) {
	if !validID(id) {
		return model.Booking{}, ErrNotFound
	}
	b, err := m.store.Get(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.Booking{}, ErrNotFound
	}
	return b, err
}

func (m *Manager) mutate(ctx context.Context, id string, change model.Change) (model.Booking, error) {
	if !validID(id) {
		return model.Booking{}, ErrNotFound
	}
	before, after, err := m.store.Mutate(ctx, id, change)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return model.Booking{}, ErrNotFound
	case errors.Is(err, model.ErrSlotTaken):
		return model.Booking{}, ErrSlotConflict
	case err != nil:
		return model.Booking{}, fmt.Errorf("%s %s: %w", change.Action, id, err)
	}

	m.logger.Info("booking transitioned",
		"booking_id", after.ID,
		"code", after.Code,
		"action", change.Action,
		"actor_id", change.ActorID,
		"from", before.Status,
		"to", after.Status,
	)
	if key, ok := transitionTemplates[after.Status]; ok {
		m.announce.announce(ctx, after, key)
	}
	return after, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

var transitionTemplates = map[model.Status]string{
	model.StatusConfirmed:   model.TemplateBookingConfirmed,
	model.StatusCancelled:   model.TemplateBookingCancelled,
	model.StatusRescheduled: model.TemplateBookingRescheduled,
}
