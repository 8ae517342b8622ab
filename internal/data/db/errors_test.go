package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"not found", gorm.ErrRecordNotFound, ErrNotFound},
		{"canceled", context.Canceled, ErrRetryable},
		{"unique violation", &pgconn.PgError{Code: "23505"}, ErrConflict},
		{"missing parent", &pgconn.PgError{Code: "23503"}, ErrForeignKey},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, ErrRetryable},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, ErrRetryable},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, ErrRetryable},
	}
	for _, tc := range cases {
		got := MapError("documents.create", tc.in)
		if !errors.Is(got, tc.want) {
			t.Fatalf("%s: expected %v category, got %v", tc.name, tc.want, got)
		}
		// Original cause survives wrapping.
		if !errors.Is(got, tc.in) {
			var pgErr *pgconn.PgError
			if !errors.As(got, &pgErr) {
				t.Fatalf("%s: original error lost: %v", tc.name, got)
			}
		}
	}
}

func TestMapErrorPassthrough(t *testing.T) {
	if MapError("op", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}

	plain := fmt.Errorf("connection refused")
	got := MapError("documents.list", plain)
	if got == nil || !errors.Is(got, plain) {
		t.Fatalf("expected wrapped passthrough, got %v", got)
	}
	for _, category := range []error{ErrNotFound, ErrConflict, ErrForeignKey, ErrRetryable} {
		if errors.Is(got, category) {
			t.Fatalf("passthrough should not carry %v", category)
		}
	}
}
