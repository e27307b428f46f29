package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/paygate/pkg/subscription"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"user fk", &pgconn.PgError{Code: "23503", ConstraintName: constraintUserFK}, subscription.ErrUserNotFound},
		{"plan fk", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23503", ConstraintName: constraintPlanFK}), subscription.ErrPlanNotFound},
		{"one active", &pgconn.PgError{Code: "23505", ConstraintName: constraintOneActive}, subscription.ErrActiveConflict},
		{"cycle check", &pgconn.PgError{Code: "23514", ConstraintName: constraintCycleCheck}, subscription.ErrInvalidCycle},
		{"other unique", &pgconn.PgError{Code: "23505", ConstraintName: "plans_pkey"}, subscription.ErrStoreError},
		{"plain", errors.New("connection reset"), subscription.ErrStoreError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, mapError("op", tt.err), tt.want)
		})
	}

	assert.NoError(t, mapError("op", nil))
}
