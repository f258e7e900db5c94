package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mattn/go-sqlite3"
)

// RetryPolicy retries store operations that failed on lock contention.
type RetryPolicy struct {
	// Attempts is the total amount of tries, including the first one.
	Attempts        uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// IsTransient decides which errors are retried. Defaults to IsLockContention.
	IsTransient func(error) bool
}

// DefaultRetryPolicy matches the defaults of the store config.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:        5,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
	}
}

// Do runs op until it succeeds, fails with a non transient error, attempts
// are exhausted or ctx is done.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	transient := p.IsTransient
	if transient == nil {
		transient = IsLockContention
	}

	if p.Attempts <= 1 {
		return op()
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, p.Attempts-1), ctx)

	var attempts int

	err := backoff.Retry(func() error {
		attempts++

		err := op()
		if err != nil && !transient(err) {
			return backoff.Permanent(err)
		}

		return err
	}, b)

	if err != nil && attempts > 1 && transient(err) {
		return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
	}

	return err
}

// IsLockContention reports whether sqlite refused err because the database
// was busy or locked by another connection.
func IsLockContention(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked
	}

	return err != nil && strings.Contains(err.Error(), "database is locked")
}
