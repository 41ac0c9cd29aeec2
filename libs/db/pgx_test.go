package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert booking: %w", &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "bookings_code_key"})
	name, ok := UniqueViolation(err)
	if !ok || name != "bookings_code_key" {
		t.Fatalf("expected bookings_code_key violation, got %q ok=%v", name, ok)
	}

	if _, ok := UniqueViolation(&pgconn.PgError{Code: CodeCheckViolation}); ok {
		t.Fatal("check violation must not be reported as unique")
	}
	if _, ok := UniqueViolation(errors.New("boom")); ok {
		t.Fatal("plain error must not be reported as unique")
	}
}

func TestReadyCheckWithoutPool(t *testing.T) {
	if err := ReadyCheck(nil)(t.Context()); err == nil {
		t.Fatal("expected error for nil pool")
	}
}
