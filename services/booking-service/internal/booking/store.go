package booking

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

// Catalog serves the administrator-maintained scheduling data.
type Catalog interface {
	ConsultationType(ctx context.Context, id int64) (model.ConsultationType, error)
	ConsultationTypes(ctx context.Context, activeOnly bool) ([]model.ConsultationType, error)
	WeeklyTemplate(ctx context.Context) ([]model.WeeklySlot, error)
	BlockedDate(ctx context.Context, date civil.Date) (model.BlockedDate, bool, error)
}

// Store persists bookings. Insert must reject a second slot-holding booking for the same
// date and time with model.ErrSlotTaken, and a duplicate code with model.ErrCodeTaken.
type Store interface {
	HeldTimes(ctx context.Context, date civil.Date) ([]civil.Time, error)
	Insert(ctx context.Context, b model.Booking) error
	Get(ctx context.Context, id string) (model.Booking, error)
	FindByCode(ctx context.Context, code string) (model.Booking, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]model.Booking, error)
	List(ctx context.Context, filter model.ListFilter) ([]model.Booking, error)
	CountByStatus(ctx context.Context) (map[model.Status]int, error)
	Mutate(ctx context.Context, id string, change model.Change) (before, after model.Booking, err error)
}

type AccountDirectory interface {
	Account(ctx context.Context, id string) (model.Account, error)
}

// Notifier hands a message to the delivery collaborator. Delivery is asynchronous.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}
