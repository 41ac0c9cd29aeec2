package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

func TestCivilConversions(t *testing.T) {
	d := civil.Date{Year: 2026, Month: time.October, Day: 25}
	if got := civilDate(pgDate(d)); got != d {
		t.Fatalf("date round trip: %s", got)
	}
	at := civil.Time{Hour: 17, Minute: 40}
	pt := pgTime(at)
	if pt.Microseconds != (17*60+40)*60*1_000_000 {
		t.Fatalf("unexpected microseconds %d", pt.Microseconds)
	}
	if got := civilTime(pt); got != at {
		t.Fatalf("time round trip: %s", got)
	}
}

func TestOwnerColumns(t *testing.T) {
	acc, email, name, err := ownerColumns(model.AccountRef{ID: "acc-1"})
	if err != nil || acc == nil || *acc != "acc-1" || email != nil || name != nil {
		t.Fatalf("account columns: %v %v %v %v", acc, email, name, err)
	}
	if _, ok := ownerFromColumns(acc, nil, nil).(model.AccountRef); !ok {
		t.Fatal("expected AccountRef")
	}

	acc, email, name, err = ownerColumns(model.GuestContact{Email: "g@example.com", Name: "Gala"})
	if err != nil || acc != nil || *email != "g@example.com" || *name != "Gala" {
		t.Fatalf("guest columns: %v %v %v %v", acc, email, name, err)
	}
	guest, ok := ownerFromColumns(nil, email, name).(model.GuestContact)
	if !ok || guest.Email != "g@example.com" {
		t.Fatalf("unexpected guest %+v", guest)
	}

	if _, _, _, err := ownerColumns(nil); err == nil {
		t.Fatal("expected error for missing owner")
	}
}

func TestReminderColumn(t *testing.T) {
	if c, _ := reminderColumn(model.Reminder3h); c != "reminder_3h_sent_at" {
		t.Fatalf("unexpected column %s", c)
	}
	if c, _ := reminderColumn(model.Reminder30m); c != "reminder_30m_sent_at" {
		t.Fatalf("unexpected column %s", c)
	}
	if _, err := reminderColumn("1d"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestMapWriteError(t *testing.T) {
	slot := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: slotHeldIndex})
	if !errors.Is(mapWriteError(slot), model.ErrSlotTaken) {
		t.Fatal("expected ErrSlotTaken")
	}
	code := &pgconn.PgError{Code: "23505", ConstraintName: codeIndex}
	if !errors.Is(mapWriteError(code), model.ErrCodeTaken) {
		t.Fatal("expected ErrCodeTaken")
	}
	other := &pgconn.PgError{Code: "23503", ConstraintName: "bookings_consultation_type_id_fkey"}
	if mapWriteError(other) != error(other) {
		t.Fatal("unrelated errors must pass through")
	}
	if mapWriteError(nil) != nil {
		t.Fatal("nil stays nil")
	}
}

func TestMalformedIDIsNotFound(t *testing.T) {
	r := &BookingRepository{}
	ctx := context.Background()
	if _, err := r.Get(ctx, "abc"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("get: expected ErrNotFound, got %v", err)
	}
	change := model.Change{Action: "booking.confirmed", Apply: func(b model.Booking) (model.Booking, error) { return b, nil }}
	if _, _, err := r.Mutate(ctx, "not-a-uuid", change); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("mutate: expected ErrNotFound, got %v", err)
	}
	if claimed, err := r.ClaimReminder(ctx, "42", model.Reminder3h, model.Notification{}); claimed || err != nil {
		t.Fatalf("claim: got %v %v", claimed, err)
	}
}
