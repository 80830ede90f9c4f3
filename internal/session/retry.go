// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"errors"
	"time"

	"github.com/wneessen/weather-session/internal/weather"
)

// RetryPolicy decides whether a failed fetch is repeated within the same resolution.
// Backoff is called with the zero-based number of the failed attempt and returns the
// delay before the next attempt, or false to give up.
type RetryPolicy interface {
	Backoff(attempt int, err error) (time.Duration, bool)
}

// NoRetry never retries. Retrying is left to the user.
type NoRetry struct{}

func (NoRetry) Backoff(int, error) (time.Duration, bool) {
	return 0, false
}

// ExponentialBackoff retries temporary transport errors (network failures, rate limiting
// and server errors) up to MaxRetries times, doubling the delay from Initial up to Max.
type ExponentialBackoff struct {
	MaxRetries int
	Initial    time.Duration
	Max        time.Duration
}

func (b ExponentialBackoff) Backoff(attempt int, err error) (time.Duration, bool) {
	if attempt >= b.MaxRetries || errors.Is(err, context.Canceled) {
		return 0, false
	}
	var transErr *weather.TransportError
	if !errors.As(err, &transErr) || !transErr.Temporary() {
		return 0, false
	}

	delay := b.Initial
	for range attempt {
		if delay = nextBackoff(delay); b.Max > 0 && delay >= b.Max {
			return b.Max, true
		}
	}
	if b.Max > 0 && delay > b.Max {
		delay = b.Max
	}
	return delay, true
}

func nextBackoff(d time.Duration) time.Duration {
	return d * 2
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
