package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/llcportal/consultations/libs/auth"
	"github.com/llcportal/consultations/services/booking-service/internal/audit"
	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

type AuditLog interface {
	ListForTarget(ctx context.Context, targetID string, limit int) ([]audit.Event, error)
}

type AdminHandler struct {
	service   BookingService
	lifecycle Lifecycle
	audit     AuditLog
	logger    *slog.Logger
}

func NewAdminHandler(service BookingService, lifecycle Lifecycle, auditLog AuditLog, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{service: service, lifecycle: lifecycle, audit: auditLog, logger: logger}
}

func (h *AdminHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	filter := model.ListFilter{Limit: queryLimit(r)}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, ok := model.ParseStatus(raw)
		if !ok {
			writeError(w, h.logger, fieldError("status", "unknown status"))
			return
		}
		filter.Status = status
	}
	bookings, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": toBookingItems(bookings, false)})
}

type transitionRequest struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	Notes     string `json:"notes"`
}

func (h *AdminHandler) Transition(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPatch) {
		return
	}
	var req transitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID == "" {
		writeError(w, h.logger, fieldError("booking_id", "is required"))
		return
	}
	to, ok := model.ParseStatus(strings.TrimSpace(req.Status))
	if !ok {
		writeError(w, h.logger, fieldError("status", "unknown status"))
		return
	}
	actor := auth.IdentityFromContext(r.Context()).AccountID
	b, err := h.lifecycle.Transition(r.Context(), actor, req.BookingID, to, strings.TrimSpace(req.Notes))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingItem(b))
}

type rescheduleRequest struct {
	BookingID string `json:"booking_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

func (h *AdminHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPatch) {
		return
	}
	var req rescheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID == "" {
		writeError(w, h.logger, fieldError("booking_id", "is required"))
		return
	}
	date, err := civil.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		writeError(w, h.logger, fieldError("date", "must be YYYY-MM-DD"))
		return
	}
	at, err := model.ParseClock(strings.TrimSpace(req.Time))
	if err != nil {
		writeError(w, h.logger, fieldError("time", "must be HH:MM"))
		return
	}
	actor := auth.IdentityFromContext(r.Context()).AccountID
	b, err := h.lifecycle.Reschedule(r.Context(), actor, req.BookingID, date, at)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingItem(b))
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	counts, err := h.service.Stats(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make(map[string]int, len(counts))
	total := 0
	for status, n := range counts {
		out[string(status)] = n
		total += n
	}
	writeJSON(w, http.StatusOK, map[string]any{"by_status": out, "total": total})
}

func (h *AdminHandler) Audit(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("booking_id"))
	if id == "" {
		writeError(w, h.logger, fieldError("booking_id", "is required"))
		return
	}
	if _, err := h.lifecycle.Get(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	events, err := h.audit.ListForTarget(r.Context(), id, queryLimit(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": events})
}
