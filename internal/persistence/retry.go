package persistence

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/woreda-portal/compliance-service/internal/config"
)

// ErrUnavailable marks a store call that kept failing transiently until
// the retry budget ran out.
var ErrUnavailable = errors.New("persistence unavailable")

// Retrier runs store calls with a per-attempt timeout and bounded retries.
type Retrier struct {
	maxAttempts    int
	attemptTimeout time.Duration
	baseBackoff    time.Duration
	maxBackoff     time.Duration
	logger         *zap.Logger
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewRetrier builds a Retrier from configuration.
func NewRetrier(cfg config.PersistenceConfig, logger *zap.Logger) *Retrier {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Retrier{
		maxAttempts:    cfg.MaxAttempts,
		attemptTimeout: cfg.AttemptTimeout,
		baseBackoff:    cfg.BaseBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger,
		sleep:          sleepContext,
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = 1
	}
	if r.baseBackoff <= 0 {
		r.baseBackoff = 50 * time.Millisecond
	}
	if r.maxBackoff < r.baseBackoff {
		r.maxBackoff = r.baseBackoff
	}
	return r
}

// Do invokes fn until it succeeds, fails permanently, or attempts run out.
// Only transient failures are retried; anything else is returned as is.
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := r.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if !IsTransient(err) {
			return err
		}
		lastErr = err

		if attempt == r.maxAttempts {
			break
		}
		delay := r.backoff(attempt)
		r.logger.Warn("transient persistence failure; retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))
		if err := r.sleep(ctx, delay); err != nil {
			return lastErr
		}
	}

	r.logger.Error("persistence retries exhausted",
		zap.String("op", op),
		zap.Int("attempts", r.maxAttempts),
		zap.Error(lastErr))
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, lastErr)
}

func (r *Retrier) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.attemptTimeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
	defer cancel()
	return fn(attemptCtx)
}

func (r *Retrier) backoff(attempt int) time.Duration {
	shift := attempt - 1
	if shift > 10 {
		shift = 10
	}
	delay := r.baseBackoff * time.Duration(1<<shift)
	if delay > r.maxBackoff {
		delay = r.maxBackoff
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsTransient reports whether err is worth retrying: connection loss,
// attempt timeouts, serialization failures and server shutdowns.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "53300", "57P01", "57P02", "57P03":
			return true
		}
		return len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08"
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgconn.SafeToRetry(err)
}
