package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"cloud.google.com/go/civil"

	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

// Recipients resolves who receives correspondence for a booking.
type Recipients struct {
	accounts AccountDirectory
}

func NewRecipients(accounts AccountDirectory) Recipients {
	return Recipients{accounts: accounts}
}

// Resolve returns the guest contact, or looks up the owning account.
func (r Recipients) Resolve(ctx context.Context, b model.Booking) (email, name string, err error) {
	switch owner := b.Owner.(type) {
	case model.GuestContact:
		return owner.Email, owner.Name, nil
	case model.AccountRef:
		if r.accounts == nil {
			return "", "", fmt.Errorf("no account directory to resolve %s", owner.ID)
		}
		acc, err := r.accounts.Account(ctx, owner.ID)
		if err != nil {
			return "", "", fmt.Errorf("resolve account %s: %w", owner.ID, err)
		}
		return acc.Email, acc.Name, nil
	default:
		return "", "", fmt.Errorf("booking %s has no owner", b.ID)
	}
}

// FormatDate renders d the way correspondence in lang expects it.
func FormatDate(lang string, d civil.Date) string {
	if lang == "en" {
		return d.String()
	}
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}

// NewNotification builds the message for templateKey with the fields every template needs.
func NewNotification(b model.Booking, ct model.ConsultationType, templateKey, email, name string) model.Notification {
	lang := b.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	params := map[string]string{
		"code":             b.Code,
		"date":             FormatDate(lang, b.Date),
		"time":             model.FormatClock(b.Time),
		"duration_minutes": strconv.Itoa(b.DurationMinutes),
		"type_name":        ct.DisplayName(lang),
		"status":           string(b.Status),
	}
	if name != "" {
		params["name"] = name
	}
	if b.Topic != "" {
		params["topic"] = b.Topic
	}
	if b.CancelReason != "" {
		params["cancel_reason"] = b.CancelReason
	}
	return model.Notification{
		Recipient:     email,
		RecipientName: name,
		TemplateKey:   templateKey,
		Language:      lang,
		BookingID:     b.ID,
		BookingCode:   b.Code,
		Params:        params,
	}
}

// announcer sends lifecycle notifications after commit. Failures are logged, never returned.
type announcer struct {
	catalog    Catalog
	notifier   Notifier
	recipients Recipients
	logger     *slog.Logger
}

func (a announcer) announce(ctx context.Context, b model.Booking, templateKey string) {
	if a.notifier == nil {
		return
	}
	email, name, err := a.recipients.Resolve(ctx, b)
	if err != nil {
		a.logger.Error("notification recipient lookup failed", "err", err, "booking_id", b.ID, "template", templateKey)
		return
	}
	ct, err := a.catalog.ConsultationType(ctx, b.TypeID)
	if err != nil {
		a.logger.Error("notification type lookup failed", "err", err, "booking_id", b.ID, "template", templateKey)
		return
	}
	n := NewNotification(b, ct, templateKey, email, name)
	n.IdempotencyKey = b.ID + ":" + templateKey + ":" + strconv.FormatInt(b.UpdatedAt.UnixMilli(), 10)
	if err := a.notifier.Notify(ctx, n); err != nil {
		a.logger.Error("notification enqueue failed", "err", err, "booking_id", b.ID, "code", b.Code, "template", templateKey)
	}
}
