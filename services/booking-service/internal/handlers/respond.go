package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/llcportal/consultations/services/booking-service/internal/booking"
	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

type errorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError maps domain errors to HTTP responses. Unknown errors are logged and hidden.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var ve *booking.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Code: "validation_error", Fields: ve.Fields})
	case errors.Is(err, booking.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Code: "validation_error"})
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Code: "slot_unavailable"})
	case errors.Is(err, booking.ErrSlotConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: "slot already booked, refresh availability", Code: "slot_conflict"})
	case errors.Is(err, booking.ErrIllegalTransition):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "illegal_transition"})
	case errors.Is(err, booking.ErrInvalidType):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error(), Code: "invalid_type"})
	case errors.Is(err, booking.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "booking not found", Code: "not_found"})
	case errors.Is(err, booking.ErrTransient):
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "temporarily unavailable, retry", Code: "transient"})
	default:
		logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Code: "internal"})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body", Code: "validation_error"})
		return false
	}
	return true
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func queryLimit(r *http.Request) int {
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type bookingItem struct {
	ID              string `json:"id"`
	Code            string `json:"code"`
	Status          string `json:"status"`
	TypeID          int64  `json:"type_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Topic           string `json:"topic,omitempty"`
	Notes           string `json:"notes,omitempty"`
	Language        string `json:"language"`
	AccountID       string `json:"account_id,omitempty"`
	GuestEmail      string `json:"guest_email,omitempty"`
	GuestName       string `json:"guest_name,omitempty"`
	AdminNotes      string `json:"admin_notes,omitempty"`
	ConfirmedAt     string `json:"confirmed_at,omitempty"`
	CompletedAt     string `json:"completed_at,omitempty"`
	CancelledAt     string `json:"cancelled_at,omitempty"`
	CancelReason    string `json:"cancel_reason,omitempty"`
	RescheduledAt   string `json:"rescheduled_at,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func toBookingItem(b model.Booking) bookingItem {
	item := bookingItem{
		ID:              b.ID,
		Code:            b.Code,
		Status:          string(b.Status),
		TypeID:          b.TypeID,
		Date:            b.Date.String(),
		Time:            model.FormatClock(b.Time),
		EndTime:         model.FormatClock(b.EndTime()),
		DurationMinutes: b.DurationMinutes,
		Topic:           b.Topic,
		Notes:           b.Notes,
		Language:        b.Language,
		AccountID:       b.AccountID(),
		AdminNotes:      b.AdminNotes,
		ConfirmedAt:     formatStamp(b.ConfirmedAt),
		CompletedAt:     formatStamp(b.CompletedAt),
		CancelledAt:     formatStamp(b.CancelledAt),
		CancelReason:    b.CancelReason,
		RescheduledAt:   formatStamp(b.RescheduledAt),
		CreatedAt:       b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if g, ok := b.Guest(); ok {
		item.GuestEmail = g.Email
		item.GuestName = g.Name
	}
	return item
}

// toPublicItem omits staff-only fields.
func toPublicItem(b model.Booking) bookingItem {
	item := toBookingItem(b)
	item.AdminNotes = ""
	return item
}

func toBookingItems(bookings []model.Booking, public bool) []bookingItem {
	items := make([]bookingItem, 0, len(bookings))
	for _, b := range bookings {
		if public {
			items = append(items, toPublicItem(b))
			continue
		}
		items = append(items, toBookingItem(b))
	}
	return items
}

func formatStamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
