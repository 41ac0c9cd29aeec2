package model

// Change is one locked read-modify-write of a booking. Apply receives the current row and
// returns the row to persist; Action and ActorID are recorded in the audit trail.
type Change struct {
	Action  string
	ActorID string
	Apply   func(current Booking) (Booking, error)
}

type ListFilter struct {
	Status Status
	Limit  int
}

// Account is the read model of an identity-owned account, used to address correspondence.
type Account struct {
	ID       string
	Email    string
	Name     string
	Language string
}

// Notification asks the delivery collaborator to send a templated message.
type Notification struct {
	Recipient      string            `json:"recipient"`
	RecipientName  string            `json:"recipient_name,omitempty"`
	TemplateKey    string            `json:"template_key"`
	Language       string            `json:"language"`
	BookingID      string            `json:"booking_id"`
	BookingCode    string            `json:"booking_code"`
	Params         map[string]string `json:"params"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
}

// Template keys understood by the notification service.
const (
	TemplateBookingCreated     = "booking.created"
	TemplateBookingConfirmed   = "booking.confirmed"
	TemplateBookingCancelled   = "booking.cancelled"
	TemplateBookingRescheduled = "booking.rescheduled"
	TemplateReminder3h         = "booking.reminder.3h"
	TemplateReminder30m        = "booking.reminder.30m"
)
