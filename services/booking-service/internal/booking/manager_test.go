package booking

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

// bookPending books the Tuesday 09:00 template slot for acc-1.
func bookPending(t *testing.T, f fixture) model.Booking {
	t.Helper()
	b, err := f.service.BookSlot(context.Background(), accountRequest("acc-1", tuesday, civil.Time{Hour: 9}))
	if err != nil {
		t.Fatalf("book pending: %v", err)
	}
	return b
}

func TestTransition_PendingToCompletedRejected(t *testing.T) {
	f := newFixture(t, monday, civil.Time{Hour: 10})
	b := bookPending(t, f)

	_, err := f.manager.Transition(context.Background(), "admin-1", b.ID, model.StatusCompleted, "")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	got, _ := f.store.Get(context.Background(), b.ID)
	if got.Status != model.StatusPending {
		t.Fatalf("status changed on rejected transition: %s", got.Status)
	}
	if len(f.store.auditLog) != 0 {
		t.Fatalf("rejected transition was audited: %v", f.store.auditLog)
	}
}

func TestTransition_ConfirmThenComplete(t *testing.T) {
	f := newFixture(t, monday, civil.Time{Hour: 10})
	ctx := context.Background()
	b := bookPending(t, f)

	confirmed, err := f.manager.Transition(ctx, "admin-1", b.ID, model.StatusConfirmed, "")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != model.StatusConfirmed || confirmed.ConfirmedAt == nil {
		t.Fatalf("unexpected confirmed booking: %+v", confirmed)
	}
	completed, err := f.manager.Transition(ctx, "admin-1", b.ID, model.StatusCompleted, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != model.StatusCompleted || completed.CompletedAt == nil {
		t.Fatalf("unexpected completed booking: %+v", completed)
	}

	want := []string{"booking.confirmed:pending->confirmed", "booking.completed:confirmed->completed"}
	if len(f.store.auditLog) != len(want) {
		t.Fatalf("unexpected audit log: %v", f.store.auditLog)
	}
	for i := range want {
		if f.store.auditLog[i] != want[i] {
			t.Fatalf("audit %d: got %s want %s", i, f.store.auditLog[i], want[i])
		}
	}

	var confirmedMail bool
	for _, n := range f.store.notifications() {
		if n.TemplateKey == model.TemplateBookingConfirmed && n.BookingID == b.ID {
			confirmedMail = true
		}
	}
	if !confirmedMail {
		t.Fatal("expected a confirmation notification")
	}
}

func TestTransition_CancelledCannotBeConfirmed(t *testing.T) {
	f := newFixture(t, monday, civil.Time{Hour: 10})
	ctx := context.Background()
	b := bookPending(t, f)

	cancelled, err := f.manager.Transition(ctx, "admin-1", b.ID, model.StatusCancelled, "client asked")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.CancelReason != "client asked" || cancelled.CancelledAt == nil {
		t.Fatalf("cancellation not stamped: %+v", cancelled)
	}
	if _, err := f.manager.Transition(ctx, "admin-1", b.ID, model.StatusConfirmed, ""); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestTransition_RescheduledTargetNeedsReschedule(t *testing.T) {
	f := newFixture(t, monday, civil.Time{Hour: 10})
	b := bookPending(t, f)
	if _, err := f.manager.Transition(context.Background(), "admin-1", b.ID, model.StatusRescheduled, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestTransition_UnknownBooking(t *testing.T) {
	f := newFixture(t, monday, civil.Time{Hour: 10})
	ctx := context.Background()
	for _, id := range []string{"missing", "abc", "00000000-0000-4000-8000-000000000000"} {
		if _, err := f.manager.Transition(ctx, "admin-1", id, model.StatusConfirmed, ""); !errors.Is(err, ErrNotFound) {
			t.Fatalf("transition %q: expected ErrNotFound, got %v", id, err)
		}
		if _, err := f.manager.Get(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("get %q: expected ErrNotFound, got %v", id, err)
		}
		if _, err := f.manager.Reschedule(ctx, "admin-1", id, wednesday, civil.Time{Hour: 11}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("reschedule %q: expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestReschedule(t *testing.T) {
	f := newFixture(t, monday, civil.Time{Hour: 10})
	ctx := context.Background()

	b, err := f.service.BookSlot(ctx, guestRequest(wednesday, civil.Time{Hour: 10}))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	moved, err := f.manager.Reschedule(ctx, "admin-1", b.ID, wednesday.AddDays(1), civil.Time{Hour: 11, Minute: 20})
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if moved.Status != model.StatusRescheduled || moved.RescheduledAt == nil {
		t.Fatalf("unexpected status: %+v", moved)
	}
	if moved.Date != wednesday.AddDays(1) || moved.Time != (civil.Time{Hour: 11, Minute: 20}) {
		t.Fatalf("date/time not moved: %s %s", moved.Date, moved.Time)
	}
	if moved.DurationMinutes != b.DurationMinutes || moved.Code != b.Code {
		t.Fatalf("reschedule changed immutable fields: %+v", moved)
	}
}

func TestReschedule_ConflictRejected(t *testing.T) {
	f := newFixture(t, monday, civil.Time{Hour: 10})
	ctx := context.Background()

	target, err := f.service.BookSlot(ctx, guestRequest(wednesday, civil.Time{Hour: 10}))
	if err != nil {
		t.Fatalf("book target: %v", err)
	}
	holder, err := f.service.BookSlot(ctx, guestRequest(wednesday, civil.Time{Hour: 12}))
	if err != nil {
		t.Fatalf("book holder: %v", err)
	}

	_, err = f.manager.Reschedule(ctx, "admin-1", target.ID, holder.Date, holder.Time)
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}
	got, _ := f.store.Get(ctx, target.ID)
	if got.Status != model.StatusConfirmed || got.Time != (civil.Time{Hour: 10}) {
		t.Fatalf("booking changed on rejected reschedule: %+v", got)
	}
}

func TestReschedule_Rejections(t *testing.T) {
	f := newFixture(t, monday, civil.Time{Hour: 10})
	ctx := context.Background()
	pending := bookPending(t, f)

	nextTuesday := tuesday.AddDays(7)
	if _, err := f.manager.Reschedule(ctx, "admin-1", pending.ID, nextTuesday, civil.Time{Hour: 9}); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("pending bookings cannot be rescheduled, got %v", err)
	}

	confirmed, err := f.service.BookSlot(ctx, guestRequest(wednesday, civil.Time{Hour: 10}))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	sunday := saturday.AddDays(1)
	cases := []struct {
		name string
		date civil.Date
		at   civil.Time
	}{
		{"past date", monday.AddDays(-7), civil.Time{Hour: 10}},
		{"earlier today", monday, civil.Time{Hour: 9}},
		{"weekend", sunday, civil.Time{Hour: 10}},
		{"outside cadence hours", wednesday.AddDays(1), civil.Time{Hour: 3}},
		{"off grid", wednesday.AddDays(1), civil.Time{Hour: 10, Minute: 5}},
		{"after close", wednesday.AddDays(1), civil.Time{Hour: 18}},
	}
	for _, tc := range cases {
		if _, err := f.manager.Reschedule(ctx, "admin-1", confirmed.ID, tc.date, tc.at); !errors.Is(err, ErrSlotUnavailable) {
			t.Fatalf("%s: expected ErrSlotUnavailable, got %v", tc.name, err)
		}
	}

	f.store.blocked[wednesday.AddDays(1)] = model.BlockedDate{Date: wednesday.AddDays(1)}
	if _, err := f.manager.Reschedule(ctx, "admin-1", confirmed.ID, wednesday.AddDays(1), civil.Time{Hour: 11}); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable for a blocked date, got %v", err)
	}

	got, _ := f.store.Get(ctx, confirmed.ID)
	if got.Status != model.StatusConfirmed || got.Date != wednesday || len(f.store.auditLog) != 0 {
		t.Fatalf("booking changed on rejected reschedule: %+v audit=%v", got, f.store.auditLog)
	}
}

func TestReschedule_TemplateTypeUsesWeeklyTemplate(t *testing.T) {
	f := newFixture(t, monday, civil.Time{Hour: 10})
	ctx := context.Background()
	b := bookPending(t, f)
	if _, err := f.manager.Transition(ctx, "admin-1", b.ID, model.StatusConfirmed, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if _, err := f.manager.Reschedule(ctx, "admin-1", b.ID, wednesday, civil.Time{Hour: 10}); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("wednesday has no template entry, got %v", err)
	}
	moved, err := f.manager.Reschedule(ctx, "admin-1", b.ID, tuesday.AddDays(7), civil.Time{Hour: 9})
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if moved.Date != tuesday.AddDays(7) || moved.Status != model.StatusRescheduled {
		t.Fatalf("unexpected booking %+v", moved)
	}
}

func TestCancelOwn(t *testing.T) {
	f := newFixture(t, monday, civil.Time{Hour: 10})
	ctx := context.Background()
	b := bookPending(t, f)

	if _, err := f.manager.CancelOwn(ctx, "acc-2", b.ID, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("another account must not cancel, got %v", err)
	}
	got, err := f.manager.CancelOwn(ctx, "acc-1", b.ID, "changed plans")
	if err != nil {
		t.Fatalf("cancel own: %v", err)
	}
	if got.Status != model.StatusCancelled {
		t.Fatalf("unexpected status %s", got.Status)
	}
	if _, err := f.manager.CancelOwn(ctx, "acc-1", b.ID, ""); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition on second cancel, got %v", err)
	}
}

func TestCancelGuest(t *testing.T) {
	f := newFixture(t, monday, civil.Time{Hour: 10})
	ctx := context.Background()
	b, err := f.service.BookSlot(ctx, guestRequest(wednesday, civil.Time{Hour: 10}))
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	if _, err := f.manager.CancelGuest(ctx, b.Code, "someone@example.com", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wrong email must not cancel, got %v", err)
	}
	if _, err := f.manager.CancelGuest(ctx, "LLC-ZZZZZZ", "guest@example.com", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown code: expected ErrNotFound, got %v", err)
	}

	got, err := f.manager.CancelGuest(ctx, " "+strings.ToLower(b.Code)+" ", "GUEST@example.com", "cannot attend")
	if err != nil {
		t.Fatalf("cancel guest: %v", err)
	}
	if got.Status != model.StatusCancelled || got.CancelReason != "cannot attend" {
		t.Fatalf("unexpected booking %+v", got)
	}
	if len(f.store.auditLog) != 1 || f.store.auditLog[0] != "booking.cancelled:confirmed->cancelled" {
		t.Fatalf("unexpected audit log %v", f.store.auditLog)
	}
	if _, err := f.manager.CancelGuest(ctx, b.Code, "guest@example.com", ""); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition on second cancel, got %v", err)
	}

	account := bookPending(t, f)
	if _, err := f.manager.CancelGuest(ctx, account.Code, "owner@example.com", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("account bookings are not guest-cancellable, got %v", err)
	}
}
