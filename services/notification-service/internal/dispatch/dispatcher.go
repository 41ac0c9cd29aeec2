// Package dispatch turns notification requests into delivered email and an audit row.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/llcportal/consultations/services/notification-service/internal/email"
	"github.com/llcportal/consultations/services/notification-service/internal/storage"
	"github.com/llcportal/consultations/services/notification-service/internal/templates"
)

// Request is the payload published on consultation.notification.requested.v1.
type Request struct {
	Recipient      string            `json:"recipient"`
	RecipientName  string            `json:"recipient_name,omitempty"`
	TemplateKey    string            `json:"template_key"`
	Language       string            `json:"language"`
	BookingID      string            `json:"booking_id"`
	BookingCode    string            `json:"booking_code"`
	Params         map[string]string `json:"params"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
}

type Store interface {
	Sent(ctx context.Context, idempotencyKey string) (bool, error)
	Insert(ctx context.Context, n storage.Notification) error
}

type Renderer interface {
	Render(key, lang string, params map[string]string) (templates.Message, error)
}

type Dispatcher struct {
	renderer Renderer
	sender   email.Sender
	store    Store
	logger   *slog.Logger
}

func New(renderer Renderer, sender email.Sender, store Store, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{renderer: renderer, sender: sender, store: store, logger: logger}
}

// Handle consumes one Kafka message. Malformed payloads are logged and dropped; a failed
// delivery is recorded and returned so the consumer retries it.
func (d *Dispatcher) Handle(ctx context.Context, msg kafka.Message) error {
	var req Request
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		d.logger.Error("invalid notification payload", "err", err, "topic", msg.Topic)
		return nil
	}
	req.Recipient = strings.TrimSpace(req.Recipient)
	if req.Recipient == "" || req.TemplateKey == "" || req.BookingID == "" {
		d.logger.Error("missing notification fields", "booking_id", req.BookingID, "template", req.TemplateKey)
		return nil
	}
	return d.Deliver(ctx, req)
}

func (d *Dispatcher) Deliver(ctx context.Context, req Request) error {
	sent, err := d.store.Sent(ctx, req.IdempotencyKey)
	if err != nil {
		return err
	}
	if sent {
		d.logger.Info("notification already sent", "booking_id", req.BookingID, "idempotency_key", req.IdempotencyKey)
		return nil
	}

	row := storage.Notification{
		BookingID:      req.BookingID,
		BookingCode:    req.BookingCode,
		TemplateKey:    req.TemplateKey,
		Language:       req.Language,
		Recipient:      req.Recipient,
		IdempotencyKey: req.IdempotencyKey,
		Payload:        req.Params,
	}

	msg, err := d.renderer.Render(req.TemplateKey, req.Language, req.Params)
	if errors.Is(err, templates.ErrUnknownTemplate) {
		row.Status = storage.StatusSkipped
		row.ErrorReason = err.Error()
		d.logger.Warn("notification skipped", "booking_id", req.BookingID, "template", req.TemplateKey)
		return d.store.Insert(ctx, row)
	}
	if err != nil {
		return err
	}

	if sendErr := d.sender.Send(req.Recipient, req.RecipientName, msg.Subject, msg.Body); sendErr != nil {
		row.Status = storage.StatusFailed
		row.ErrorReason = sendErr.Error()
		d.logger.Error("email send failed", "err", sendErr, "booking_id", req.BookingID, "template", req.TemplateKey)
		if err := d.store.Insert(ctx, row); err != nil {
			d.logger.Error("failed to persist notification", "err", err)
		}
		return sendErr
	}

	row.Status = storage.StatusSent
	if err := d.store.Insert(ctx, row); err != nil {
		if errors.Is(err, storage.ErrAlreadySent) {
			return nil
		}
		d.logger.Error("failed to persist notification", "err", err)
		return nil
	}
	d.logger.Info("notification sent", "booking_id", req.BookingID, "code", req.BookingCode, "template", req.TemplateKey, "language", req.Language)
	return nil
}
