package model

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestClockHelpers(t *testing.T) {
	got, err := ParseClock("09:05")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != (civil.Time{Hour: 9, Minute: 5}) {
		t.Fatalf("unexpected time: %v", got)
	}
	if _, err := ParseClock("25:00"); err == nil {
		t.Fatal("expected error for invalid hour")
	}
	if FormatClock(AddMinutes(got, 55)) != "10:00" {
		t.Fatalf("unexpected add result: %s", FormatClock(AddMinutes(got, 55)))
	}
	if FormatClock(AddMinutes(civil.Time{Hour: 23, Minute: 50}, 20)) != "00:10" {
		t.Fatal("expected wrap at midnight")
	}
}

func TestWeekday(t *testing.T) {
	if Weekday(civil.Date{Year: 2026, Month: time.October, Day: 13}) != time.Tuesday {
		t.Fatal("2026-10-13 should be a Tuesday")
	}
}

func TestStatusHoldsSlot(t *testing.T) {
	for _, s := range Statuses {
		want := s == StatusPending || s == StatusConfirmed
		if s.HoldsSlot() != want {
			t.Fatalf("%s: HoldsSlot=%v", s, s.HoldsSlot())
		}
	}
	if _, ok := ParseStatus("archived"); ok {
		t.Fatal("unknown status parsed")
	}
}

func TestOwnerAccessors(t *testing.T) {
	b := Booking{Owner: AccountRef{ID: "acc-1"}}
	if b.AccountID() != "acc-1" {
		t.Fatal("expected account id")
	}
	if _, ok := b.Guest(); ok {
		t.Fatal("account booking reported as guest")
	}
	b.Owner = GuestContact{Email: "a@example.com", Name: "Ana"}
	if b.AccountID() != "" {
		t.Fatal("guest booking reported an account")
	}
	if g, ok := b.Guest(); !ok || g.Email != "a@example.com" {
		t.Fatalf("unexpected guest: %+v", g)
	}
}

func TestDisplayNameFallback(t *testing.T) {
	ct := ConsultationType{Name: "free_consultation", DisplayNames: map[string]string{"es": "Consulta gratuita"}}
	if ct.DisplayName("en") != "Consulta gratuita" {
		t.Fatalf("expected fallback translation, got %q", ct.DisplayName("en"))
	}
	ct.DisplayNames = nil
	if ct.DisplayName("es") != "free_consultation" {
		t.Fatal("expected machine name")
	}
}
