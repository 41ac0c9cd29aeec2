package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/llcportal/consultations/libs/auth"
	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

// Lifecycle changes bookings after creation.
type Lifecycle interface {
	Transition(ctx context.Context, actorID, id string, to model.Status, notes string) (model.Booking, error)
	CancelOwn(ctx context.Context, accountID, id, reason string) (model.Booking, error)
	CancelGuest(ctx context.Context, code, email, reason string) (model.Booking, error)
	Reschedule(ctx context.Context, actorID, id string, date civil.Date, at civil.Time) (model.Booking, error)
	Get(ctx context.Context, id string) (model.Booking, error)
}

type AccountHandler struct {
	service   BookingService
	lifecycle Lifecycle
	logger    *slog.Logger
}

func NewAccountHandler(service BookingService, lifecycle Lifecycle, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{service: service, lifecycle: lifecycle, logger: logger}
}

// Bookings lists the caller's bookings on GET and creates one on POST.
func (h *AccountHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		id := auth.IdentityFromContext(r.Context())
		bookings, err := h.service.MyBookings(r.Context(), id.AccountID, queryLimit(r))
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": toBookingItems(bookings, true)})
	case http.MethodPost:
		create(w, r, h.service, h.logger)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type cancelRequest struct {
	BookingID string `json:"booking_id"`
	Reason    string `json:"reason"`
}

func (h *AccountHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req cancelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID == "" {
		writeError(w, h.logger, fieldError("booking_id", "is required"))
		return
	}
	if len(req.Reason) > 1000 {
		writeError(w, h.logger, fieldError("reason", "must be at most 1000 characters"))
		return
	}
	id := auth.IdentityFromContext(r.Context())
	b, err := h.lifecycle.CancelOwn(r.Context(), id.AccountID, req.BookingID, strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPublicItem(b))
}
