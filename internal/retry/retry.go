// Package retry re-runs idempotent service calls on transient failure.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/logger"
)

// Defaults for Policy fields left zero.
const (
	DefaultAttempts  = 4
	DefaultBaseDelay = time.Second
	DefaultMaxDelay  = 10 * time.Second
)

// Policy describes how often and how long to wait between attempts.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Sleep replaces the wall-clock wait, for tests.
	Sleep func(time.Duration)
}

// Default returns the standard policy.
func Default() Policy {
	return Policy{Attempts: DefaultAttempts, BaseDelay: DefaultBaseDelay, MaxDelay: DefaultMaxDelay}
}

// NoWait returns a policy that retries immediately. Used in tests.
func NoWait(attempts int) Policy {
	return Policy{Attempts: attempts, Sleep: func(time.Duration) {}}
}

// Do calls fn until it succeeds, returns a permanent error, or attempts run out.
func Do[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		delay, ok := p.delay(ctx, err, attempt, attempts)
		if !ok {
			return zero, err
		}
		logger.Debug("%s: attempt %d failed, retrying in %s: %v", op, attempt, delay, err)
		if err := p.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

// Transient reports whether err is worth retrying.
func Transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *domain.ServiceError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (p Policy) delay(ctx context.Context, err error, attempt, attempts int) (time.Duration, bool) {
	if attempt >= attempts || ctx.Err() != nil || !Transient(err) {
		return 0, false
	}
	var se *domain.ServiceError
	if errors.As(err, &se) && se.RetryAfter > 0 {
		return p.capDelay(se.RetryAfter), true
	}
	return p.backoff(attempt), true
}

// backoff doubles from the base delay: attempt 1 waits base, 2 waits 2*base, ...
func (p Policy) backoff(attempt int) time.Duration {
	d := p.BaseDelay
	if d <= 0 {
		if p.Sleep != nil {
			return 0
		}
		d = DefaultBaseDelay
	}
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.maxDelay() {
			break
		}
	}
	return p.capDelay(d)
}

func (p Policy) maxDelay() time.Duration {
	if p.MaxDelay > 0 {
		return p.MaxDelay
	}
	return DefaultMaxDelay
}

func (p Policy) capDelay(d time.Duration) time.Duration {
	return min(max(d, 0), p.maxDelay())
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		p.Sleep(d)
		return ctx.Err()
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ParseRetryAfter reads a Retry-After header in seconds or HTTP-date form.
func ParseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		return max(time.Until(when), 0)
	}
	return 0
}

// StatusError builds a ServiceError from a non-2xx HTTP response.
func StatusError(op string, resp *http.Response, body []byte) *domain.ServiceError {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	se := &domain.ServiceError{
		Op:         op,
		StatusCode: resp.StatusCode,
		RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
	}
	if msg != "" {
		se.Err = errors.New(msg)
	}
	return se
}

// TransportError wraps a failed round trip.
func TransportError(op string, err error) *domain.ServiceError {
	return &domain.ServiceError{Op: op, Err: err}
}
