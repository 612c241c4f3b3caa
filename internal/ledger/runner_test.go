package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornnamdii/wallet-service/internal/logging"
)

// flakyStore fails the first n scopes with err before delegating.
type flakyStore struct {
	*MemoryStore
	failures int
	err      error
	calls    int
}

func (s *flakyStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.calls++
	if s.calls <= s.failures {
		return s.err
	}
	return s.MemoryStore.Atomic(ctx, fn)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadlock", err: storageErr("commit", &pgconn.PgError{Code: "40P01"}), want: true},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "lock timeout code", err: storageErr("lock wallet", &pgconn.PgError{Code: "55P03"}), want: true},
		{name: "in-memory lock timeout", err: storageErr("lock wallet", ErrLockTimeout), want: true},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: false},
		{name: "business rule", err: ErrInsufficientFunds, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Retryable(tc.err))
		})
	}
}

func TestRunnerRetriesContention(t *testing.T) {
	store := &flakyStore{
		MemoryStore: NewInMemory(time.Second),
		failures:    2,
		err:         storageErr("lock wallet", &pgconn.PgError{Code: "40P01"}),
	}
	runner := NewRunner(store, logging.Discard(), WithMaxAttempts(3), WithBackoff(time.Millisecond))

	ran := 0
	err := runner.Run(context.Background(), "fund", func(context.Context, Tx) error {
		ran++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, store.calls)
	assert.Equal(t, 1, ran)
}

func TestRunnerGivesUpAfterMaxAttempts(t *testing.T) {
	store := &flakyStore{
		MemoryStore: NewInMemory(time.Second),
		failures:    10,
		err:         storageErr("lock wallet", ErrLockTimeout),
	}
	runner := NewRunner(store, logging.Discard(), WithMaxAttempts(2), WithBackoff(time.Millisecond))

	err := runner.Run(context.Background(), "withdraw", func(context.Context, Tx) error { return nil })
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.True(t, Contended(err))
	assert.Equal(t, 2, store.calls)
}

func TestRunnerDoesNotRetryBusinessErrors(t *testing.T) {
	store := &flakyStore{MemoryStore: NewInMemory(time.Second)}
	runner := NewRunner(store, logging.Discard(), WithBackoff(time.Millisecond))

	err := runner.Run(context.Background(), "withdraw", func(context.Context, Tx) error {
		return ErrInsufficientFunds
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, 1, store.calls)
}

func TestRunnerStopsOnCancelledContext(t *testing.T) {
	store := &flakyStore{
		MemoryStore: NewInMemory(time.Second),
		failures:    10,
		err:         storageErr("lock wallet", ErrLockTimeout),
	}
	runner := NewRunner(store, logging.Discard(), WithMaxAttempts(5), WithBackoff(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := runner.Run(ctx, "transfer", func(context.Context, Tx) error { return nil })
	assert.ErrorIs(t, err, ErrStorage)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, store.calls)
}

func TestExponentialBackoff(t *testing.T) {
	assert.Equal(t, 10*time.Millisecond, exponential(10*time.Millisecond, 0))
	assert.Equal(t, 40*time.Millisecond, exponential(10*time.Millisecond, 2))
	assert.Equal(t, time.Duration(0), exponential(0, 3))

	for i := 0; i < 100; i++ {
		d := fullJitter(time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, time.Millisecond)
	}
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "insufficient_funds", Outcome(ErrInsufficientFunds))
	assert.Equal(t, "not_found", Outcome(ErrNotFound))
	assert.Equal(t, "storage_failure", Outcome(storageErr("commit", context.Canceled)))
	assert.Equal(t, "contended", Outcome(storageErr("lock wallet", ErrLockTimeout)))
	assert.Equal(t, "rejected", Outcome(ErrCircularTransfer))
}
