package errors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"
)

// RetryConfig describes an exponential backoff.
type RetryConfig struct {
	// MaxRetries counts attempts after the first one.
	MaxRetries int

	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// Retryable reports whether err is worth another attempt.
	// Nil retries every error.
	Retryable func(err error) bool
}

// FileRetryConfig suits replacing the index file while another process
// briefly holds it open. Missing paths fail immediately.
func FileRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 20 * time.Millisecond,
		MaxDelay:     200 * time.Millisecond,
		Multiplier:   2,
		Retryable: func(err error) bool {
			return !errors.Is(err, fs.ErrNotExist)
		},
	}
}

// backoff returns the wait before retry n (0-based).
func (c RetryConfig) backoff(n int) time.Duration {
	d := c.InitialDelay
	for range n {
		d = time.Duration(float64(d) * c.Multiplier)
		if c.MaxDelay > 0 && d >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	return d
}

func (c RetryConfig) retryable(err error) bool {
	return c.Retryable == nil || c.Retryable(err)
}

// Retry calls fn until it succeeds, fails permanently, runs out of
// retries, or ctx ends.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var err error
	for n := 0; ; n++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err = fn(); err == nil {
			return nil
		}
		if !cfg.retryable(err) {
			return err
		}
		if n >= cfg.MaxRetries {
			break
		}

		t := time.NewTimer(cfg.backoff(n))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, err)
}
