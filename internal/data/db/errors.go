package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates the row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a unique constraint violation.
	ErrConflict = errors.New("conflict")
	// ErrForeignKey indicates a referenced row is missing.
	ErrForeignKey = errors.New("foreign key violation")
	// ErrRetryable indicates a transient failure worth retrying.
	ErrRetryable = errors.New("retryable database failure")
)

// MapError folds driver failures into coarse categories callers can branch
// on without importing pgconn. Unrecognized errors pass through wrapped with
// the operation name.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return tag(op, ErrNotFound, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return tag(op, ErrRetryable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return tag(op, ErrConflict, err) // unique_violation
		case "23503":
			return tag(op, ErrForeignKey, err) // foreign_key_violation
		case "40001", "40P01", "55P03":
			return tag(op, ErrRetryable, err) // serialization/deadlock/lock_not_available
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}

func tag(op string, category error, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(category, err))
}
