package model

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"
)

// Persistence contract errors returned by the repositories.
var (
	ErrNotFound  = errors.New("not found")
	ErrSlotTaken = errors.New("slot already held")
	ErrCodeTaken = errors.New("booking code already in use")
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusRescheduled}

func ParseStatus(raw string) (Status, bool) {
	for _, s := range Statuses {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

// HoldsSlot reports whether a booking in this status reserves its date and time exclusively.
func (s Status) HoldsSlot() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Owner is either a GuestContact or an AccountRef.
type Owner interface {
	isOwner()
}

// GuestContact identifies a booking made without an account.
type GuestContact struct {
	Email string
	Name  string
}

// AccountRef identifies a booking made by an authenticated account.
type AccountRef struct {
	ID string
}

func (GuestContact) isOwner() {}
func (AccountRef) isOwner()   {}

type ReminderKind string

const (
	Reminder3h  ReminderKind = "3h"
	Reminder30m ReminderKind = "30m"
)

type Booking struct {
	ID              string
	Code            string
	Owner           Owner
	TypeID          int64
	Date            civil.Date
	Time            civil.Time
	DurationMinutes int
	Status          Status
	Topic           string
	Notes           string
	Locale          string
	Language        string
	AdminNotes      string

	ConfirmedAt   *time.Time
	CompletedAt   *time.Time
	CancelledAt   *time.Time
	CancelReason  string
	RescheduledAt *time.Time

	Reminder3hSentAt  *time.Time
	Reminder30mSentAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountID returns the owning account id, or "" for guest bookings.
func (b Booking) AccountID() string {
	if ref, ok := b.Owner.(AccountRef); ok {
		return ref.ID
	}
	return ""
}

func (b Booking) Guest() (GuestContact, bool) {
	g, ok := b.Owner.(GuestContact)
	return g, ok
}

func (b Booking) EndTime() civil.Time {
	return AddMinutes(b.Time, b.DurationMinutes)
}

func (b Booking) ReminderSentAt(kind ReminderKind) *time.Time {
	switch kind {
	case Reminder3h:
		return b.Reminder3hSentAt
	case Reminder30m:
		return b.Reminder30mSentAt
	default:
		return nil
	}
}
