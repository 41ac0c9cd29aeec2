package booking

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/llcportal/consultations/services/booking-service/internal/lifecycle"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrSlotUnavailable   = errors.New("slot unavailable")
	ErrSlotConflict      = errors.New("slot already booked")
	ErrInvalidType       = errors.New("invalid consultation type")
	ErrIllegalTransition = lifecycle.ErrIllegalTransition
	ErrNotFound          = errors.New("booking not found")
	ErrTransient         = errors.New("temporarily unavailable, retry")
)

// ValidationError carries per-field messages keyed by the request's JSON field path.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func unavailable(reason string) error {
	return fmt.Errorf("%w: %s", ErrSlotUnavailable, reason)
}
