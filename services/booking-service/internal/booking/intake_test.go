package booking

import (
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

func TestBookingInputRequest_Guest(t *testing.T) {
	in := BookingInput{
		Date:   "2026-10-14",
		Time:   "10:20",
		TypeID: 1,
		Topic:  "  Registered agent  ",
		Guest:  &GuestInput{Email: " Gala@Example.COM ", Name: "Gala"},
	}
	req, err := in.Request("", "en-GB,en;q=0.8")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.Date != (civil.Date{Year: 2026, Month: 10, Day: 14}) || req.Time != (civil.Time{Hour: 10, Minute: 20}) {
		t.Fatalf("unexpected date/time: %s %s", req.Date, req.Time)
	}
	guest, ok := req.Owner.(model.GuestContact)
	if !ok || guest.Email != "gala@example.com" {
		t.Fatalf("unexpected owner: %#v", req.Owner)
	}
	if req.Topic != "Registered agent" || req.Language != "en" {
		t.Fatalf("unexpected topic/language: %q %q", req.Topic, req.Language)
	}
}

func TestBookingInputRequest_AccountWins(t *testing.T) {
	in := BookingInput{Date: "2026-10-13", Time: "09:00", TypeID: 2, Guest: &GuestInput{Email: "x@example.com", Name: "Xavi"}}
	req, err := in.Request("acc-1", "")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if ref, ok := req.Owner.(model.AccountRef); !ok || ref.ID != "acc-1" {
		t.Fatalf("expected account owner, got %#v", req.Owner)
	}
	if req.Language != DefaultLanguage {
		t.Fatalf("expected default language, got %s", req.Language)
	}
}

func TestBookingInputRequest_FieldErrors(t *testing.T) {
	cases := []struct {
		name  string
		in    BookingInput
		field string
	}{
		{"missing date", BookingInput{Time: "10:00", TypeID: 1, Guest: &GuestInput{Email: "a@example.com", Name: "Ana"}}, "date"},
		{"bad time", BookingInput{Date: "2026-10-14", Time: "10am", TypeID: 1, Guest: &GuestInput{Email: "a@example.com", Name: "Ana"}}, "time"},
		{"no type", BookingInput{Date: "2026-10-14", Time: "10:00", Guest: &GuestInput{Email: "a@example.com", Name: "Ana"}}, "type_id"},
		{"bad email", BookingInput{Date: "2026-10-14", Time: "10:00", TypeID: 1, Guest: &GuestInput{Email: "nope", Name: "Ana"}}, "guest.email"},
		{"long topic", BookingInput{Date: "2026-10-14", Time: "10:00", TypeID: 1, Topic: strings.Repeat("x", 201), Guest: &GuestInput{Email: "a@example.com", Name: "Ana"}}, "topic"},
		{"bad locale", BookingInput{Date: "2026-10-14", Time: "10:00", TypeID: 1, Locale: "not a tag", Guest: &GuestInput{Email: "a@example.com", Name: "Ana"}}, "locale"},
		{"no owner", BookingInput{Date: "2026-10-14", Time: "10:00", TypeID: 1}, "guest"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.in.Request("", "")
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if _, ok := ve.Fields[tc.field]; !ok {
				t.Fatalf("expected field %q in %v", tc.field, ve.Fields)
			}
		})
	}
}

func TestResolveLanguage(t *testing.T) {
	cases := []struct {
		prefs []string
		want  string
	}{
		{nil, "es"},
		{[]string{"en"}, "en"},
		{[]string{"", "en-US,en;q=0.9"}, "en"},
		{[]string{"es-MX"}, "es"},
		{[]string{"fr"}, "es"},
		{[]string{"es", "en"}, "es"},
	}
	for _, tc := range cases {
		if got := ResolveLanguage(tc.prefs...); got != tc.want {
			t.Fatalf("ResolveLanguage(%v) = %s, want %s", tc.prefs, got, tc.want)
		}
	}
}

func TestNewCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := NewCode()
		if err != nil {
			t.Fatalf("new code: %v", err)
		}
		if !strings.HasPrefix(code, codePrefix) || len(code) != len(codePrefix)+codeLength {
			t.Fatalf("unexpected code format %q", code)
		}
		for _, r := range strings.TrimPrefix(code, codePrefix) {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("unexpected character %q in %s", r, code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 195 {
		t.Fatalf("codes collide too often: %d unique of 200", len(seen))
	}
}

func TestFormatDate(t *testing.T) {
	d := civil.Date{Year: 2026, Month: 3, Day: 9}
	if FormatDate("es", d) != "09/03/2026" || FormatDate("en", d) != "2026-03-09" {
		t.Fatalf("unexpected formats: %s %s", FormatDate("es", d), FormatDate("en", d))
	}
}
