package sciencebase

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultRetryInterval is the first wait after a 429 or 503
	DefaultRetryInterval = 60 * time.Second
	// DefaultRetryAttempts caps the total number of calls made by Retry
	DefaultRetryAttempts = 8

	maxRetryInterval = 24 * time.Hour
)

// RetryPolicy controls Client.Retry. The wait starts at InitialInterval and
// doubles after every rate-limited or unavailable response.
type RetryPolicy struct {
	InitialInterval time.Duration
	// MaxAttempts caps the total number of calls, the first one included.
	// Zero retries until a non-retryable outcome, however long that takes.
	MaxAttempts int
	// MaxElapsed stops retrying once this much time has passed. Zero means
	// no limit.
	MaxElapsed time.Duration
}

// DefaultRetryPolicy returns a 60 second, 8 attempt policy
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: DefaultRetryInterval,
		MaxAttempts:     DefaultRetryAttempts,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	if eb.InitialInterval <= 0 {
		eb.InitialInterval = DefaultRetryInterval
	}
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxInterval = maxRetryInterval
	eb.MaxElapsedTime = p.MaxElapsed
	eb.Reset()

	var b backoff.BackOff = eb
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

// RetryState describes the retry loop a call is running in
type RetryState struct {
	// Attempts is the number of calls started so far
	Attempts int
	// Waited is the total backoff slept so far
	Waited time.Duration
	// InProgress is true while the loop is running
	InProgress bool
}

type retryStateKey struct{}

// RetryStateFromContext returns the state of the enclosing Retry call, if any
func RetryStateFromContext(ctx context.Context) (RetryState, bool) {
	state, ok := ctx.Value(retryStateKey{}).(*RetryState)
	if !ok {
		return RetryState{}, false
	}
	return *state, true
}

// Retry runs fn until it succeeds or fails with something other than a 429
// or 503. Every attempt ends in exactly one of success, a retryable
// outcome or a fatal one.
//
// Retrying a write is at-least-once: if the server applied the first attempt
// but the response was lost, the write is applied again.
func (c *Client) Retry(ctx context.Context, fn func(context.Context) error) error {
	state := &RetryState{InProgress: true}
	ctx = context.WithValue(ctx, retryStateKey{}, state)
	defer func() { state.InProgress = false }()

	op := func() error {
		state.Attempts++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		state.Waited += wait
		msg := "retrying after error"
		switch {
		case errors.Is(err, ErrServiceUnavailable):
			msg = "waiting for WAF"
		case errors.Is(err, ErrRateLimited):
			msg = "waiting for ScienceBase rate limiter"
		}
		c.logger.Warn().
			Err(err).
			Int("attempt", state.Attempts).
			Dur("wait", wait).
			Msg(msg)
	}

	var timer backoff.Timer
	if c.newTimer != nil {
		timer = c.newTimer()
	}

	return backoff.RetryNotifyWithTimer(op, c.retry.backOff(ctx), notify, timer)
}

// RetryValue is Retry for calls that return a value
func RetryValue[T any](ctx context.Context, c *Client, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := c.Retry(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
