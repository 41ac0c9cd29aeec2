package storage

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

func pgDate(d civil.Date) pgtype.Date {
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

func civilDate(d pgtype.Date) civil.Date {
	if !d.Valid {
		return civil.Date{}
	}
	return civil.DateOf(d.Time)
}

func pgTime(t civil.Time) pgtype.Time {
	us := int64(model.ClockMinutes(t)) * int64(time.Minute/time.Microsecond)
	return pgtype.Time{Microseconds: us, Valid: true}
}

func civilTime(t pgtype.Time) civil.Time {
	if !t.Valid {
		return civil.Time{}
	}
	minutes := int(t.Microseconds / int64(time.Minute/time.Microsecond))
	return model.AddMinutes(civil.Time{}, minutes)
}

// ownerColumns splits an owner into the account_id, guest_email and guest_name columns.
// Exactly one side is set; a CHECK constraint enforces the same.
func ownerColumns(o model.Owner) (accountID, guestEmail, guestName *string, err error) {
	switch v := o.(type) {
	case model.AccountRef:
		return &v.ID, nil, nil, nil
	case model.GuestContact:
		return nil, &v.Email, &v.Name, nil
	default:
		return nil, nil, nil, fmt.Errorf("booking owner %T is not supported", o)
	}
}

func ownerFromColumns(accountID, guestEmail, guestName *string) model.Owner {
	if accountID != nil {
		return model.AccountRef{ID: *accountID}
	}
	g := model.GuestContact{}
	if guestEmail != nil {
		g.Email = *guestEmail
	}
	if guestName != nil {
		g.Name = *guestName
	}
	return g
}

func reminderColumn(kind model.ReminderKind) (string, error) {
	switch kind {
	case model.Reminder3h:
		return "reminder_3h_sent_at", nil
	case model.Reminder30m:
		return "reminder_30m_sent_at", nil
	default:
		return "", fmt.Errorf("unknown reminder kind %q", kind)
	}
}
