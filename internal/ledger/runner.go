package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/victornnamdii/wallet-service/internal/metrics"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 50 * time.Millisecond

	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
	pgLockNotAvailable     = "55P03"
)

// Runner executes one logical ledger operation per atomic scope and retries
// the whole scope when it was aborted by lock contention.
type Runner struct {
	store       Store
	logger      *slog.Logger
	maxAttempts int
	backoff     time.Duration
}

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithMaxAttempts bounds the number of times an operation is attempted.
func WithMaxAttempts(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithBackoff sets the base delay between attempts.
func WithBackoff(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d >= 0 {
			r.backoff = d
		}
	}
}

// NewRunner builds a runner over store.
func NewRunner(store Store, logger *slog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{store: store, logger: logger, maxAttempts: defaultMaxAttempts, backoff: defaultBackoff}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store exposes the underlying store for read paths.
func (r *Runner) Store() Store { return r.store }

// Run executes fn inside store.Atomic. Deadlocks, serialization failures and
// lock timeouts roll the scope back and fn runs again, up to the configured
// number of attempts.
func (r *Runner) Run(ctx context.Context, op string, fn func(ctx context.Context, tx Tx) error) error {
	var err error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := fullJitter(exponential(r.backoff, attempt-1))
			metrics.RecordLedgerRetry(op)
			if r.logger != nil {
				r.logger.Warn("retrying ledger operation",
					slog.String("op", op),
					slog.Int("attempt", attempt+1),
					slog.Duration("delay", delay),
					slog.Any("error", err),
				)
			}
			if serr := sleepWithContext(ctx, delay); serr != nil {
				return storageErr(op, serr)
			}
		}

		err = r.store.Atomic(ctx, fn)
		if err == nil || !Retryable(err) {
			return err
		}
	}
	return err
}

// Retryable reports whether err aborted a scope because of lock contention
// and the operation can safely run again.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrLockTimeout) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgDeadlockDetected, pgSerializationFailure, pgLockNotAvailable:
			return true
		}
	}
	return false
}

// Contended reports whether err is a retryable failure that outlived the retry budget.
func Contended(err error) bool {
	return errors.Is(err, ErrStorage) && Retryable(err)
}

func exponential(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	} else if attempt > 30 {
		attempt = 30
	}
	multiplier := int64(1) << attempt
	if int64(base) > math.MaxInt64/multiplier {
		return time.Duration(math.MaxInt64)
	}
	return base * time.Duration(multiplier)
}

// fullJitter returns a random duration in [0, d).
func fullJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d)))
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context done: %w", ctx.Err())
	}
}

// Outcome labels the result of a ledger operation for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case Contended(err):
		return "contended"
	case errors.Is(err, ErrStorage):
		return "storage_failure"
	default:
		return "rejected"
	}
}
