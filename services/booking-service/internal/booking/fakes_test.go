package booking

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/llcportal/consultations/services/booking-service/internal/civiltime"
	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

const (
	freeTypeID   int64 = 1
	pricedTypeID int64 = 2
)

var (
	monday    = civil.Date{Year: 2026, Month: time.October, Day: 12}
	tuesday   = civil.Date{Year: 2026, Month: time.October, Day: 13}
	wednesday = civil.Date{Year: 2026, Month: time.October, Day: 14}
	saturday  = civil.Date{Year: 2026, Month: time.October, Day: 17}
)

// memStore implements Catalog, Store, AccountDirectory and Notifier in memory. Insert and
// Mutate enforce the same exclusivity rules as the database indexes.
type memStore struct {
	mu        sync.Mutex
	types     map[int64]model.ConsultationType
	template  []model.WeeklySlot
	blocked   map[civil.Date]model.BlockedDate
	bookings  map[string]model.Booking
	accounts  map[string]model.Account
	auditLog  []string
	sent      []model.Notification
	notifyErr error
}

func newMemStore() *memStore {
	return &memStore{
		types: map[int64]model.ConsultationType{
			freeTypeID: {
				ID: freeTypeID, Name: "free_consultation", Mode: model.SlotModeFixedCadence,
				DurationMinutes: 20, PriceMinor: 0, Active: true,
				DisplayNames: map[string]string{"es": "Consulta gratuita", "en": "Free consultation"},
			},
			pricedTypeID: {
				ID: pricedTypeID, Name: "formation_review", Mode: model.SlotModeTemplate,
				DurationMinutes: 60, PriceMinor: 9900, Active: true,
				DisplayNames: map[string]string{"es": "Revisión de constitución", "en": "Formation review"},
			},
		},
		template: []model.WeeklySlot{
			{ID: 1, Weekday: time.Tuesday, Start: civil.Time{Hour: 9}, End: civil.Time{Hour: 10}, Active: true},
		},
		blocked:  map[civil.Date]model.BlockedDate{},
		bookings: map[string]model.Booking{},
		accounts: map[string]model.Account{
			"acc-1": {ID: "acc-1", Email: "owner@example.com", Name: "Olga", Language: "es"},
			"acc-2": {ID: "acc-2", Email: "other@example.com", Name: "Omar", Language: "en"},
		},
	}
}

func (m *memStore) ConsultationType(_ context.Context, id int64) (model.ConsultationType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ct, ok := m.types[id]
	if !ok {
		return model.ConsultationType{}, model.ErrNotFound
	}
	return ct, nil
}

func (m *memStore) ConsultationTypes(_ context.Context, activeOnly bool) ([]model.ConsultationType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ConsultationType
	for _, ct := range m.types {
		if activeOnly && !ct.Active {
			continue
		}
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) WeeklyTemplate(context.Context) ([]model.WeeklySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.WeeklySlot(nil), m.template...), nil
}

func (m *memStore) BlockedDate(_ context.Context, date civil.Date) (model.BlockedDate, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blocked[date]
	return b, ok, nil
}

func (m *memStore) HeldTimes(_ context.Context, date civil.Date) ([]civil.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []civil.Time
	for _, b := range m.bookings {
		if b.Date == date && b.Status.HoldsSlot() {
			out = append(out, b.Time)
		}
	}
	return out, nil
}

func (m *memStore) Insert(_ context.Context, b model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.bookings {
		if other.Code == b.Code {
			return model.ErrCodeTaken
		}
		if b.Status.HoldsSlot() && other.Status.HoldsSlot() && other.Date == b.Date && other.Time == b.Time {
			return model.ErrSlotTaken
		}
	}
	m.bookings[b.ID] = b
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return model.Booking{}, model.ErrNotFound
	}
	return b, nil
}

func (m *memStore) FindByCode(_ context.Context, code string) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.Code == code {
			return b, nil
		}
	}
	return model.Booking{}, model.ErrNotFound
}

func (m *memStore) ListByAccount(_ context.Context, accountID string, limit int) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, b := range m.bookings {
		if b.AccountID() == accountID {
			out = append(out, b)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) List(_ context.Context, filter model.ListFilter) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, b := range m.bookings {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		out = append(out, b)
	}
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memStore) CountByStatus(context.Context) (map[model.Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[model.Status]int{}
	for _, b := range m.bookings {
		counts[b.Status]++
	}
	return counts, nil
}

func (m *memStore) Mutate(_ context.Context, id string, change model.Change) (model.Booking, model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	before, ok := m.bookings[id]
	if !ok {
		return model.Booking{}, model.Booking{}, model.ErrNotFound
	}
	after, err := change.Apply(before)
	if err != nil {
		return model.Booking{}, model.Booking{}, err
	}
	if after.Date != before.Date || after.Time != before.Time {
		for otherID, other := range m.bookings {
			if otherID != id && other.Status.HoldsSlot() && other.Date == after.Date && other.Time == after.Time {
				return model.Booking{}, model.Booking{}, model.ErrSlotTaken
			}
		}
	}
	m.bookings[id] = after
	m.auditLog = append(m.auditLog, change.Action+":"+string(before.Status)+"->"+string(after.Status))
	return before, after, nil
}

func (m *memStore) Account(_ context.Context, id string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return model.Account{}, model.ErrNotFound
	}
	return acc, nil
}

func (m *memStore) Notify(_ context.Context, n model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notifyErr != nil {
		return m.notifyErr
	}
	m.sent = append(m.sent, n)
	return nil
}

func (m *memStore) notifications() []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Notification(nil), m.sent...)
}

type fixture struct {
	store   *memStore
	service *Service
	manager *Manager
}

// newFixture anchors the clock at the given Madrid civil time.
func newFixture(t *testing.T, date civil.Date, at civil.Time) fixture {
	t.Helper()
	z, err := civiltime.Load(civiltime.DefaultZone)
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	now := civil.DateTime{Date: date, Time: at}.In(z.Location())
	zone := civiltime.New(z.Location(), func() time.Time { return now })

	store := newMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recipients := NewRecipients(store)
	return fixture{
		store:   store,
		service: NewService(store, store, zone, store, recipients, logger, Config{SameDayLead: time.Hour}),
		manager: NewManager(store, store, zone, store, recipients, logger),
	}
}

func guestRequest(date civil.Date, at civil.Time) BookRequest {
	return BookRequest{
		Date:     date,
		Time:     at,
		TypeID:   freeTypeID,
		Owner:    model.GuestContact{Email: "guest@example.com", Name: "Gala"},
		Topic:    "LLC formation basics",
		Language: "es",
	}
}

func accountRequest(accountID string, date civil.Date, at civil.Time) BookRequest {
	return BookRequest{
		Date:     date,
		Time:     at,
		TypeID:   pricedTypeID,
		Owner:    model.AccountRef{ID: accountID},
		Language: "en",
	}
}
