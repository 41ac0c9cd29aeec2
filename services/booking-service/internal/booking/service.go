package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/llcportal/consultations/services/booking-service/internal/calendar"
	"github.com/llcportal/consultations/services/booking-service/internal/civiltime"
	"github.com/llcportal/consultations/services/booking-service/internal/lifecycle"
	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

const (
	defaultSameDayLead  = time.Hour
	defaultCodeAttempts = 5
	defaultListLimit    = 50
	maxListLimit        = 200
)

type Config struct {
	// SameDayLead is the minimum notice for same-day fixed-cadence slots.
	SameDayLead time.Duration
	// CodeAttempts bounds booking-code collision retries.
	CodeAttempts int
}

// Service answers availability queries and creates bookings.
type Service struct {
	catalog  Catalog
	store    Store
	guard    Guard
	zone     *civiltime.Zone
	announce announcer
	logger   *slog.Logger

	lead     time.Duration
	attempts int
	newCode  func() (string, error)
	newID    func() string
}

func NewService(catalog Catalog, store Store, zone *civiltime.Zone, notifier Notifier, recipients Recipients, logger *slog.Logger, cfg Config) *Service {
	if cfg.SameDayLead <= 0 {
		cfg.SameDayLead = defaultSameDayLead
	}
	if cfg.CodeAttempts <= 0 {
		cfg.CodeAttempts = defaultCodeAttempts
	}
	return &Service{
		catalog:  catalog,
		store:    store,
		guard:    NewGuard(store),
		zone:     zone,
		announce: announcer{catalog: catalog, notifier: notifier, recipients: recipients, logger: logger},
		logger:   logger,
		lead:     cfg.SameDayLead,
		attempts: cfg.CodeAttempts,
		newCode:  NewCode,
		newID:    uuid.NewString,
	}
}

// GetOpenSlots returns the bookable slots for date. Unavailable dates yield an empty list.
func (s *Service) GetOpenSlots(ctx context.Context, date civil.Date, typeID int64) ([]model.Slot, error) {
	ct, err := s.activeType(ctx, typeID)
	if err != nil {
		return nil, err
	}
	slots, err := s.bookable(ctx, date, ct)
	if errors.Is(err, ErrSlotUnavailable) {
		return []model.Slot{}, nil
	}
	if err != nil {
		return nil, err
	}

	held, err := s.guard.Held(ctx, date)
	if err != nil {
		return nil, err
	}
	open := make([]model.Slot, 0, len(slots))
	for _, slot := range slots {
		if held[model.ClockMinutes(slot.Start)] {
			continue
		}
		open = append(open, slot)
	}
	return open, nil
}

// BookSlot re-validates the request against current availability and persists a new booking.
func (s *Service) BookSlot(ctx context.Context, req BookRequest) (model.Booking, error) {
	ct, err := s.activeType(ctx, req.TypeID)
	if err != nil {
		return model.Booking{}, err
	}
	if _, guest := req.Owner.(model.GuestContact); guest && !ct.Free() {
		return model.Booking{}, invalid("guest", "an account is required for paid consultations")
	}

	slots, err := s.bookable(ctx, req.Date, ct)
	if err != nil {
		return model.Booking{}, err
	}
	if _, ok := calendar.Contains(slots, req.Time); !ok {
		return model.Booking{}, unavailable("requested time is not an open slot")
	}

	taken, err := s.guard.HasConflict(ctx, req.Date, req.Time)
	if err != nil {
		return model.Booking{}, err
	}
	if taken {
		return model.Booking{}, ErrSlotConflict
	}

	b := model.Booking{
		ID:              s.newID(),
		Owner:           req.Owner,
		TypeID:          ct.ID,
		Date:            req.Date,
		Time:            req.Time,
		DurationMinutes: ct.DurationMinutes,
		Status:          lifecycle.InitialStatus(ct),
		Topic:           req.Topic,
		Notes:           req.Notes,
		Locale:          req.Locale,
		Language:        req.Language,
	}
	if b.Language == "" {
		b.Language = DefaultLanguage
	}
	lifecycle.Stamp(&b, s.zone.Current())

	for attempt := 0; attempt < s.attempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return model.Booking{}, err
		}
		b.Code = code

		err = s.store.Insert(ctx, b)
		switch {
		case err == nil:
			s.logger.Info("booking created", "booking_id", b.ID, "code", b.Code, "status", b.Status, "date", b.Date.String(), "time", model.FormatClock(b.Time))
			key := model.TemplateBookingCreated
			if b.Status == model.StatusConfirmed {
				key = model.TemplateBookingConfirmed
			}
			s.announce.announce(ctx, b, key)
			return b, nil
		case errors.Is(err, model.ErrCodeTaken):
			s.logger.Warn("booking code collision", "code", code, "attempt", attempt+1)
			continue
		case errors.Is(err, model.ErrSlotTaken):
			return model.Booking{}, ErrSlotConflict
		default:
			return model.Booking{}, err
		}
	}
	return model.Booking{}, fmt.Errorf("%w: no unique booking code after %d attempts", ErrTransient, s.attempts)
}

func (s *Service) bookable(ctx context.Context, date civil.Date, ct model.ConsultationType) ([]model.Slot, error) {
	lead := time.Duration(0)
	if ct.Mode == model.SlotModeFixedCadence {
		lead = s.lead
	}
	return bookableSlots(ctx, s.catalog, s.zone, date, ct, lead)
}

// bookableSlots applies blocked-date, weekend and time cutoff rules to the calendar slots.
// Slots starting less than lead from now are dropped. It returns ErrSlotUnavailable when
// the whole date is closed.
func bookableSlots(ctx context.Context, catalog Catalog, zone *civiltime.Zone, date civil.Date, ct model.ConsultationType, lead time.Duration) ([]model.Slot, error) {
	if !date.IsValid() {
		return nil, unavailable("invalid date")
	}
	if date.Before(zone.Today()) {
		return nil, unavailable("date is in the past")
	}
	if ct.Mode == model.SlotModeFixedCadence && calendar.IsWeekend(date) {
		return nil, unavailable("no consultations on weekends")
	}
	if blocked, ok, err := catalog.BlockedDate(ctx, date); err != nil {
		return nil, err
	} else if ok {
		return nil, unavailable(blockedReason(blocked))
	}

	var template []model.WeeklySlot
	if ct.Mode != model.SlotModeFixedCadence {
		var err error
		if template, err = catalog.WeeklyTemplate(ctx); err != nil {
			return nil, err
		}
	}

	slots := calendar.OpenSlots(date, ct, template)
	out := make([]model.Slot, 0, len(slots))
	for _, slot := range slots {
		if zone.IsPast(date, slot.Start, lead) {
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}

func blockedReason(b model.BlockedDate) string {
	if b.Reason == "" {
		return "date is blocked"
	}
	return "date is blocked: " + b.Reason
}

func (s *Service) activeType(ctx context.Context, id int64) (model.ConsultationType, error) {
	ct, err := s.catalog.ConsultationType(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.ConsultationType{}, fmt.Errorf("%w: %d", ErrInvalidType, id)
	}
	if err != nil {
		return model.ConsultationType{}, err
	}
	if !ct.Active {
		return model.ConsultationType{}, fmt.Errorf("%w: %d is inactive", ErrInvalidType, id)
	}
	return ct, nil
}

func (s *Service) ConsultationTypes(ctx context.Context) ([]model.ConsultationType, error) {
	return s.catalog.ConsultationTypes(ctx, true)
}

// MyBookings lists an account's bookings, newest appointment first.
func (s *Service) MyBookings(ctx context.Context, accountID string, limit int) ([]model.Booking, error) {
	return s.store.ListByAccount(ctx, accountID, clampLimit(limit))
}

// LookupGuestBooking finds a guest booking by code. The email must match the guest contact.
func (s *Service) LookupGuestBooking(ctx context.Context, code, email string) (model.Booking, error) {
	return findGuestBooking(ctx, s.store, code, email)
}

func findGuestBooking(ctx context.Context, store Store, code, email string) (model.Booking, error) {
	b, err := store.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if errors.Is(err, model.ErrNotFound) {
		return model.Booking{}, ErrNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}
	if !guestMatches(b, email) {
		return model.Booking{}, ErrNotFound
	}
	return b, nil
}

func guestMatches(b model.Booking, email string) bool {
	guest, ok := b.Guest()
	return ok && strings.EqualFold(guest.Email, strings.TrimSpace(email))
}

func (s *Service) List(ctx context.Context, filter model.ListFilter) ([]model.Booking, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.store.List(ctx, filter)
}

// Stats returns the number of bookings per status, including zero counts.
func (s *Service) Stats(ctx context.Context) (map[model.Status]int, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[model.Status]int, len(model.Statuses))
	for _, st := range model.Statuses {
		out[st] = counts[st]
	}
	return out, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
