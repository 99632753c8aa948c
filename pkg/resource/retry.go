package resource

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

// Retrying wraps a Client and retries reads that fail with a transient error.
// Writes pass straight through: a failed create, update or delete is reported
// to the caller once.
type Retrying struct {
	Client
	attempts int
	delay    time.Duration
	logger   *log.Logger
}

// NewRetrying wraps c. Reads are attempted up to attempts times, waiting
// delay before the second attempt and doubling it after each failure.
func NewRetrying(c Client, attempts int, delay time.Duration, logger *log.Logger) *Retrying {
	if logger == nil {
		logger = log.Default()
	}
	return &Retrying{Client: c, attempts: max(attempts, 1), delay: delay, logger: logger}
}

func (r *Retrying) FetchCollection(ctx context.Context, spec Spec) ([]Resource, error) {
	var out []Resource
	err := r.retry(ctx, "fetch", spec.Collection, func() error {
		var err error
		out, err = r.Client.FetchCollection(ctx, spec)
		return err
	})
	return out, err
}

func (r *Retrying) FetchOne(ctx context.Context, collection, id string) (Resource, error) {
	var out Resource
	err := r.retry(ctx, "get", collection, func() error {
		var err error
		out, err = r.Client.FetchOne(ctx, collection, id)
		return err
	})
	return out, err
}

func (r *Retrying) retry(ctx context.Context, op, collection string, fn func() error) error {
	delay := r.delay
	var lastErr error
	for i := range r.attempts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(); lastErr == nil || !transient(lastErr) {
			return lastErr
		}
		if i == r.attempts-1 {
			break
		}
		r.logger.Warn("retrying read", "op", op, "collection", collection, "attempt", i+1, "err", lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return lastErr
}

// transient reports whether err may go away on retry.
func transient(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalid):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}
