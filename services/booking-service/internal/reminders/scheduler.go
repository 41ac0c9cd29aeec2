package reminders

import (
	"context"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/llcportal/consultations/services/booking-service/internal/booking"
	"github.com/llcportal/consultations/services/booking-service/internal/civiltime"
	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

// Store loads reminder candidates and claims a reminder. ClaimReminder sets the marker for
// kind and enqueues n atomically, returning false when the marker was already set.
type Store interface {
	Upcoming(ctx context.Context, from, to civil.Date) ([]model.Booking, error)
	ClaimReminder(ctx context.Context, bookingID string, kind model.ReminderKind, n model.Notification) (bool, error)
}

type typeLookup interface {
	ConsultationType(ctx context.Context, id int64) (model.ConsultationType, error)
}

// Window fires a reminder when the time left before the appointment is in (After, Until].
type Window struct {
	Kind        model.ReminderKind
	TemplateKey string
	After       time.Duration
	Until       time.Duration
}

func (w Window) Contains(left time.Duration) bool {
	return left > w.After && left <= w.Until
}

// DefaultWindows are wide enough that a tick of a few minutes always lands inside each one.
var DefaultWindows = []Window{
	{Kind: model.Reminder3h, TemplateKey: model.TemplateReminder3h, After: 150 * time.Minute, Until: 210 * time.Minute},
	{Kind: model.Reminder30m, TemplateKey: model.TemplateReminder30m, After: 6 * time.Minute, Until: 45 * time.Minute},
}

type Config struct {
	Interval      time.Duration
	LookbackDays  int
	LookaheadDays int
	Windows       []Window
}

type Scheduler struct {
	store      Store
	types      typeLookup
	recipients booking.Recipients
	zone       *civiltime.Zone
	logger     *slog.Logger

	interval  time.Duration
	lookback  int
	lookahead int
	windows   []Window
}

func New(store Store, types typeLookup, recipients booking.Recipients, zone *civiltime.Zone, logger *slog.Logger, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 1
	}
	if cfg.LookaheadDays <= 0 {
		cfg.LookaheadDays = 2
	}
	if len(cfg.Windows) == 0 {
		cfg.Windows = DefaultWindows
	}
	return &Scheduler{
		store:      store,
		types:      types,
		recipients: recipients,
		zone:       zone,
		logger:     logger,
		interval:   cfg.Interval,
		lookback:   cfg.LookbackDays,
		lookahead:  cfg.LookaheadDays,
		windows:    cfg.Windows,
	}
}

// Run ticks until ctx is cancelled. A failed tick is logged; the next tick catches up.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Tick(ctx); err != nil {
			s.logger.Error("reminder tick failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick scans upcoming bookings once and returns how many reminders it enqueued.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer("reminders").Start(ctx, "reminders.tick")
	defer span.End()

	today := s.zone.Today()
	bookings, err := s.store.Upcoming(ctx, today.AddDays(-s.lookback), today.AddDays(s.lookahead))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load upcoming bookings")
		return 0, err
	}

	types := map[int64]model.ConsultationType{}
	fired := 0
	for _, b := range bookings {
		if !b.Status.HoldsSlot() {
			continue
		}
		left := s.zone.Until(b.Date, b.Time)
		for _, w := range s.windows {
			if !w.Contains(left) || b.ReminderSentAt(w.Kind) != nil {
				continue
			}
			ok, err := s.fire(ctx, b, w, types)
			if err != nil {
				s.logger.Error("reminder failed", "err", err, "booking_id", b.ID, "code", b.Code, "kind", w.Kind)
				continue
			}
			if ok {
				fired++
				s.logger.Info("reminder enqueued", "booking_id", b.ID, "code", b.Code, "kind", w.Kind, "minutes_left", int(left.Minutes()))
			}
		}
	}
	span.SetAttributes(
		attribute.Int("reminders.candidates", len(bookings)),
		attribute.Int("reminders.fired", fired),
	)
	return fired, nil
}

func (s *Scheduler) fire(ctx context.Context, b model.Booking, w Window, types map[int64]model.ConsultationType) (bool, error) {
	ct, ok := types[b.TypeID]
	if !ok {
		var err error
		if ct, err = s.types.ConsultationType(ctx, b.TypeID); err != nil {
			return false, err
		}
		types[b.TypeID] = ct
	}
	email, name, err := s.recipients.Resolve(ctx, b)
	if err != nil {
		return false, err
	}
	n := booking.NewNotification(b, ct, w.TemplateKey, email, name)
	n.IdempotencyKey = b.ID + ":" + string(w.Kind)
	return s.store.ClaimReminder(ctx, b.ID, w.Kind, n)
}
