package services

import (
	"errors"
	"fmt"
	"testing"
)

type fakePgError struct {
	sqlstate string
}

func (e *fakePgError) Error() string {
	return "pg error " + e.sqlstate
}

func (e *fakePgError) Field(f byte) string {
	if f == 'C' {
		return e.sqlstate
	}
	return ""
}

func TestIsUniqueViolation(t *testing.T) {
	t.Run("Given a unique violation Then it matches", func(t *testing.T) {
		if !isUniqueViolation(&fakePgError{sqlstate: "23505"}) {
			t.Error("23505 must match")
		}
	})

	t.Run("Given another constraint violation Then it does not match", func(t *testing.T) {
		if isUniqueViolation(&fakePgError{sqlstate: "23503"}) {
			t.Error("foreign key violation must not match")
		}
	})

	t.Run("Given a plain error Then it does not match", func(t *testing.T) {
		if isUniqueViolation(errors.New("connection reset")) {
			t.Error("non-driver error must not match")
		}
	})

	t.Run("Given a wrapped violation Then it still matches", func(t *testing.T) {
		err := fmt.Errorf("insert voucher: %w", &fakePgError{sqlstate: "23505"})
		if !isUniqueViolation(err) {
			t.Error("wrapping must not hide the violation")
		}
	})
}
