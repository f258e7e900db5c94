package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/mattn/go-sqlite3"
)

func fastPolicy(attempts uint64) RetryPolicy {
	return RetryPolicy{Attempts: attempts, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestRetryTransient(t *testing.T) {
	is := is.New(t)

	var calls int
	err := fastPolicy(5).Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return sqlite3.Error{Code: sqlite3.ErrBusy}
		}

		return nil
	})
	is.NoErr(err)
	is.Equal(calls, 3)
}

func TestRetryExhausted(t *testing.T) {
	is := is.New(t)

	var calls int
	err := fastPolicy(4).Do(context.Background(), func() error {
		calls++
		return errors.New("database is locked")
	})
	is.True(err != nil)
	is.True(IsLockContention(err))
	is.Equal(calls, 4)
}

func TestRetryPermanent(t *testing.T) {
	is := is.New(t)
	errBoom := errors.New("no such table")

	var calls int
	err := fastPolicy(5).Do(context.Background(), func() error {
		calls++
		return errBoom
	})
	is.True(errors.Is(err, errBoom))
	is.Equal(calls, 1)
}

func TestRetryContextDone(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())

	var calls int
	err := RetryPolicy{Attempts: 100, InitialInterval: 10 * time.Millisecond, MaxInterval: 10 * time.Millisecond}.
		Do(ctx, func() error {
			calls++
			if calls == 2 {
				cancel()
			}

			return sqlite3.Error{Code: sqlite3.ErrLocked}
		})
	is.True(err != nil)
	is.True(calls < 100)
}

func TestIsLockContention(t *testing.T) {
	is := is.New(t)

	is.True(IsLockContention(fmt.Errorf("wrapped: %w", sqlite3.Error{Code: sqlite3.ErrBusy})))
	is.True(!IsLockContention(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	is.True(!IsLockContention(nil))
}
