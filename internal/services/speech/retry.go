package speech

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 2 * time.Second
)

// transientFragments mark failures worth another attempt: the service is
// overloaded, momentarily unavailable, or throttling the caller.
var transientFragments = []string{
	"overloaded",
	"unavailable",
	"quota",
	"rate limit",
	"resource exhausted",
	"too many requests",
	"429",
	"503",
}

var retryHintPattern = regexp.MustCompile(`(?i)retry in\s*(\d+(?:\.\d+)?)\s*s`)

// generateWithRetry drives send through up to maxAttempts attempts. Transient
// failures wait and go again; anything else returns unchanged on the spot.
func (c *Client) generateWithRetry(ctx context.Context, payload generateContentRequest, op string) (string, error) {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		content, err := c.send(ctx, payload, op)
		if err == nil {
			return content, nil
		}
		if !isTransient(err) {
			return "", err
		}
		lastErr = err
		if attempt == attempts-1 {
			break
		}
		if err := c.sleep(ctx, c.retryDelay(err, attempt)); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (c *Client) retryAttempts() int {
	if c == nil || c.maxAttempts <= 0 {
		return 1
	}
	return c.maxAttempts
}

// isTransient reports whether the failure indicates overload or throttling
// rather than a caller mistake.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return true
		}
	}
	message := strings.ReplaceAll(strings.ToLower(err.Error()), "_", " ")
	for _, fragment := range transientFragments {
		if strings.Contains(message, fragment) {
			return true
		}
	}
	return false
}

// retryDelay picks the wait before the next attempt. A "retry in Ns" hint in
// the failure message wins over the exponential schedule, rounded up to whole
// seconds plus one; a Retry-After header comes next. attempt is zero-based.
func (c *Client) retryDelay(err error, attempt int) time.Duration {
	if hint, ok := retryHintDelay(err); ok {
		return hint
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return statusErr.RetryAfter
	}
	base := defaultBackoffBase
	if c != nil && c.backoffBase >= 0 {
		base = c.backoffBase
	}
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

func retryHintDelay(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	match := retryHintPattern.FindStringSubmatch(err.Error())
	if match == nil {
		return 0, false
	}
	seconds, parseErr := strconv.ParseFloat(match[1], 64)
	if parseErr != nil || seconds < 0 || math.IsInf(seconds, 0) {
		return 0, false
	}
	return time.Duration(math.Ceil(seconds))*time.Second + time.Second, true
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx == nil {
		return errors.New("speech retry: nil context")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c != nil && c.sleeper != nil {
		c.sleeper(delay)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
