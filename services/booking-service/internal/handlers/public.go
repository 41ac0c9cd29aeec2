package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/llcportal/consultations/libs/auth"
	"github.com/llcportal/consultations/services/booking-service/internal/booking"
	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

// BookingService is the read and booking side used by the public and account endpoints.
type BookingService interface {
	ConsultationTypes(ctx context.Context) ([]model.ConsultationType, error)
	GetOpenSlots(ctx context.Context, date civil.Date, typeID int64) ([]model.Slot, error)
	BookSlot(ctx context.Context, req booking.BookRequest) (model.Booking, error)
	LookupGuestBooking(ctx context.Context, code, email string) (model.Booking, error)
	MyBookings(ctx context.Context, accountID string, limit int) ([]model.Booking, error)
	List(ctx context.Context, filter model.ListFilter) ([]model.Booking, error)
	Stats(ctx context.Context) (map[model.Status]int, error)
}

type PublicHandler struct {
	service   BookingService
	lifecycle Lifecycle
	logger    *slog.Logger
}

func NewPublicHandler(service BookingService, lifecycle Lifecycle, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{service: service, lifecycle: lifecycle, logger: logger}
}

type consultationTypeItem struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	DisplayName     string `json:"display_name"`
	Description     string `json:"description,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceMinor      int64  `json:"price_minor"`
	Free            bool   `json:"free"`
	SlotMode        string `json:"slot_mode"`
}

func (h *PublicHandler) ConsultationTypes(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	types, err := h.service.ConsultationTypes(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	lang := booking.ResolveLanguage(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
	items := make([]consultationTypeItem, 0, len(types))
	for _, ct := range types {
		items = append(items, consultationTypeItem{
			ID:              ct.ID,
			Name:            ct.Name,
			DisplayName:     ct.DisplayName(lang),
			Description:     ct.Descriptions[lang],
			DurationMinutes: ct.DurationMinutes,
			PriceMinor:      ct.PriceMinor,
			Free:            ct.Free(),
			SlotMode:        string(ct.Mode),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *PublicHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	date, err := civil.ParseDate(strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		writeError(w, h.logger, fieldError("date", "must be YYYY-MM-DD"))
		return
	}
	typeID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("type_id")), 10, 64)
	if err != nil || typeID <= 0 {
		writeError(w, h.logger, fieldError("type_id", "must be a positive integer"))
		return
	}
	slots, err := h.service.GetOpenSlots(r.Context(), date, typeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{StartTime: model.FormatClock(s.Start), EndTime: model.FormatClock(s.End)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":    date.String(),
		"type_id": typeID,
		"slots":   items,
	})
}

// Book accepts guest and signed-in submissions. A valid bearer token makes the booking account-owned.
func (h *PublicHandler) Book(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	create(w, r, h.service, h.logger)
}

func (h *PublicHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if code == "" || email == "" {
		writeError(w, h.logger, fieldError("code", "code and email are required"))
		return
	}
	b, err := h.service.LookupGuestBooking(r.Context(), code, email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPublicItem(b))
}

type guestCancelRequest struct {
	Code   string `json:"code"`
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// Cancel lets a guest cancel their booking with the code and email they booked with.
func (h *PublicHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req guestCancelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Email) == "" {
		writeError(w, h.logger, fieldError("code", "code and email are required"))
		return
	}
	if len(req.Reason) > 1000 {
		writeError(w, h.logger, fieldError("reason", "must be at most 1000 characters"))
		return
	}
	b, err := h.lifecycle.CancelGuest(r.Context(), req.Code, req.Email, strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPublicItem(b))
}

type createResponse struct {
	BookingCode string      `json:"booking_code"`
	Status      string      `json:"status"`
	Booking     bookingItem `json:"booking"`
}

func create(w http.ResponseWriter, r *http.Request, service BookingService, logger *slog.Logger) {
	var in booking.BookingInput
	if !decodeJSON(w, r, &in) {
		return
	}
	id := auth.IdentityFromContext(r.Context())
	req, err := in.Request(id.AccountID, r.Header.Get("Accept-Language"))
	if err != nil {
		writeError(w, logger, err)
		return
	}
	b, err := service.BookSlot(r.Context(), req)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{
		BookingCode: b.Code,
		Status:      string(b.Status),
		Booking:     toPublicItem(b),
	})
}

func fieldError(field, msg string) error {
	return &booking.ValidationError{Fields: map[string]string{field: msg}}
}
