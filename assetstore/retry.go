package assetstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/arthur-debert/assetstore/internal/metrics"
	"github.com/arthur-debert/assetstore/types"
)

// RetryPolicy bounds retries of transient lock errors.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Initial is the delay before the first retry. It doubles each time.
	Initial time.Duration
	// Max caps the delay between tries.
	Max time.Duration
}

// DefaultRetryPolicy is used for zero fields of Options.Retry.
var DefaultRetryPolicy = RetryPolicy{
	Attempts: 6,
	Initial:  25 * time.Millisecond,
	Max:      time.Second,
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultRetryPolicy.Attempts
	}
	if p.Initial <= 0 {
		p.Initial = DefaultRetryPolicy.Initial
	}
	if p.Max <= 0 {
		p.Max = DefaultRetryPolicy.Max
	}
	return p
}

// isBusyError reports whether err is SQLite reporting lock contention.
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// withRetry runs fn, retrying with exponential backoff while it fails with
// a busy error. fn must be safe to run again from the start.
func (s *Store) withRetry(ctx context.Context, op string, fn func() error) error {
	delay := s.retry.Initial
	var err error
	for attempt := 1; attempt <= s.retry.Attempts; attempt++ {
		err = fn()
		if !isBusyError(err) {
			return err
		}
		if attempt == s.retry.Attempts {
			break
		}

		metrics.BusyRetryInc(op)
		s.logger.Warn("database busy, retrying",
			"operation", op,
			"attempt", attempt,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if delay > s.retry.Max {
			delay = s.retry.Max
		}
	}
	return &types.StoreLockedError{Operation: op, Attempts: s.retry.Attempts, WrappedError: err}
}
