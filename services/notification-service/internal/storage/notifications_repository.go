package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/llcportal/consultations/libs/db"
)

const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// ErrAlreadySent is returned when a sent row already exists for the idempotency key.
var ErrAlreadySent = errors.New("notification already sent")

type Notification struct {
	BookingID      string
	BookingCode    string
	TemplateKey    string
	Language       string
	Recipient      string
	IdempotencyKey string
	Payload        map[string]string
	Status         string
	ErrorReason    string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Sent(ctx context.Context, idempotencyKey string) (bool, error) {
	if idempotencyKey == "" {
		return false, nil
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications WHERE idempotency_key = $1 AND status = 'sent'
		)
	`, idempotencyKey).Scan(&exists)
	return exists, err
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO notifications (booking_id, booking_code, template_key, language, recipient,
			idempotency_key, payload, status, error_reason)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
	`, n.BookingID, n.BookingCode, n.TemplateKey, n.Language, n.Recipient,
		n.IdempotencyKey, payload, n.Status, n.ErrorReason)
	if _, dup := db.UniqueViolation(err); dup {
		return ErrAlreadySent
	}
	return err
}
