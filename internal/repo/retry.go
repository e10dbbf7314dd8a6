// Package repo – transient-lock retry.
//
// SQLite reports concurrent-writer contention as SQLITE_BUSY/SQLITE_LOCKED.
// Mutating operations wrap themselves in WithBusyRetry so a transient lock is
// retried with bounded exponential backoff instead of surfacing to the
// caller; every other error class fails immediately.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry tuning for busy/locked conditions. Kept small: the ledger has at
// most a handful of concurrent writers and the driver already applies a
// busy_timeout of its own.
const (
	busyRetryInitialInterval = 25 * time.Millisecond
	busyRetryMaxInterval     = 500 * time.Millisecond
	busyRetryMaxElapsed      = 5 * time.Second
)

// IsBusy reports whether err is a transient SQLite busy/locked condition.
// The pure-Go driver surfaces these as plain-text errors, so classification
// is by message.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "database is locked") ||
		strings.Contains(low, "database table is locked") ||
		strings.Contains(low, "sqlite_busy") ||
		strings.Contains(low, "sqlite_locked")
}

// WithBusyRetry runs fn, retrying only on busy/locked errors with bounded
// exponential backoff. The last busy error is returned once the retry budget
// is exhausted; non-busy errors and context cancellation end the loop
// immediately.
func WithBusyRetry(ctx context.Context, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = busyRetryInitialInterval
	bo.MaxInterval = busyRetryMaxInterval
	bo.MaxElapsedTime = busyRetryMaxElapsed

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if IsBusy(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))
}
