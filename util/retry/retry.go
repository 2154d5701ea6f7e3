// Package retry calls a function again with a linear backoff until it
// succeeds or its attempts are used up.
package retry

import (
	"context"
	"time"

	"github.com/bsv-blockchain/chainsync/ulogger"
)

type options struct {
	retryCount          int
	backoffMultiplier   int
	backoffDurationType time.Duration
	message             string
}

type Option func(*options)

// WithRetryCount sets the total number of attempts, the first call included.
func WithRetryCount(count int) Option {
	return func(o *options) {
		o.retryCount = count
	}
}

func WithBackoffMultiplier(multiplier int) Option {
	return func(o *options) {
		o.backoffMultiplier = multiplier
	}
}

func WithBackoffDurationType(d time.Duration) Option {
	return func(o *options) {
		o.backoffDurationType = d
	}
}

// WithMessage sets the prefix of the warning logged after each failed attempt.
func WithMessage(message string) Option {
	return func(o *options) {
		o.message = message
	}
}

// sleepFunc is swapped out by tests
var sleepFunc = func(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// BackoffAndSleep sleeps for (backoffMultiplier*retries + 1) * durationType,
// returning early with the context error when ctx is done.
func BackoffAndSleep(ctx context.Context, retries int, backoffMultiplier int, durationType time.Duration) error {
	return sleepFunc(ctx, time.Duration(backoffMultiplier*retries+1)*durationType)
}

// Retry calls f until it succeeds, the attempts are used up or ctx is done.
// The error of the last attempt is returned when all attempts fail.
func Retry[T any](ctx context.Context, logger ulogger.Logger, f func() (T, error), opts ...Option) (T, error) {
	o := &options{
		retryCount:          3,
		backoffMultiplier:   2,
		backoffDurationType: time.Second,
		message:             "retrying",
	}

	for _, opt := range opts {
		opt(o)
	}

	var (
		result T
		err    error
	)

	for attempt := 0; attempt < o.retryCount; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}

		if result, err = f(); err == nil {
			return result, nil
		}

		if attempt == o.retryCount-1 {
			break
		}

		logger.Warnf("%s (attempt %d/%d): %v", o.message, attempt+1, o.retryCount, err)

		if sleepErr := BackoffAndSleep(ctx, attempt, o.backoffMultiplier, o.backoffDurationType); sleepErr != nil {
			return result, sleepErr
		}
	}

	return result, err
}
