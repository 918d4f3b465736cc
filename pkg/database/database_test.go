package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		constraint string
		expected   bool
	}{
		{"nil error", nil, "", false},
		{"plain error", errors.New("boom"), "", false},
		{"unique violation any constraint", &pgconn.PgError{Code: "23505", ConstraintName: "orders_payment_reference_key"}, "", true},
		{"unique violation matching constraint", &pgconn.PgError{Code: "23505", ConstraintName: "orders_payment_reference_key"}, "orders_payment_reference_key", true},
		{"unique violation other constraint", &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"}, "orders_payment_reference_key", false},
		{"wrapped violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), "", true},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsUniqueViolation(tt.err, tt.constraint))
		})
	}
}

// fakeTx records whether the transaction was committed or rolled back
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Commit(ctx context.Context) error   { f.committed = true; return nil }
func (f *fakeTx) Rollback(ctx context.Context) error { f.rolledBack = true; return nil }

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (f *fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tx, nil
}

func TestWithTx_Commit(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}

	err := WithTx(context.Background(), b, func(tx pgx.Tx) error { return nil })

	require.NoError(t, err)
	assert.True(t, b.tx.committed)
	assert.False(t, b.tx.rolledBack)
}

func TestWithTx_RollbackOnError(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	sentinel := errors.New("fn failed")

	err := WithTx(context.Background(), b, func(tx pgx.Tx) error { return sentinel })

	assert.ErrorIs(t, err, sentinel)
	assert.False(t, b.tx.committed)
	assert.True(t, b.tx.rolledBack)
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}

	assert.Panics(t, func() {
		_ = WithTx(context.Background(), b, func(tx pgx.Tx) error { panic("boom") })
	})
	assert.True(t, b.tx.rolledBack)
}

func TestWithTx_BeginError(t *testing.T) {
	b := &fakeBeginner{err: errors.New("pool closed")}

	err := WithTx(context.Background(), b, func(tx pgx.Tx) error { return nil })
	assert.Error(t, err)
}
