package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Body)
}

type emptyContentError struct {
	StopReason string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("empty response (stop_reason=%q)", e.StopReason)
}

func (c *Client) sendWithRetry(ctx context.Context, req apiRequest, op string) (string, error) {
	attempts := max(c.retryMaxAttempts, 1)
	for attempt := 1; ; attempt++ {
		text, err := c.sendOnce(ctx, req)
		if err == nil {
			return text, nil
		}
		if attempt >= attempts || !transient(ctx, err) {
			if attempt > 1 {
				return "", fmt.Errorf("%s: failed after %d attempts: %w", op, attempt, err)
			}
			return "", fmt.Errorf("%s: %w", op, err)
		}
		if err := c.wait(ctx, c.backoff(err, attempt)); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}
}

// transient reports whether a failed send is worth repeating: throttling,
// request timeouts, server errors, empty replies and network timeouts.
func transient(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode
		return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}
	var empty *emptyContentError
	if errors.As(err, &empty) {
		return true
	}
	// Also matches the *url.Error returned by http.Client.
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// backoff is the wait before attempt+1. A Retry-After from the server wins;
// otherwise the base delay doubles per attempt. Both are capped.
func (c *Client) backoff(err error, attempt int) time.Duration {
	ceiling := c.retryMaxDelay
	if ceiling <= 0 {
		ceiling = defaultRetryMaxDelay
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return min(statusErr.RetryAfter, ceiling)
	}
	if c.retryBaseDelay <= 0 {
		return 0
	}
	delay := c.retryBaseDelay
	for i := 1; i < attempt && delay < ceiling; i++ {
		delay *= 2
	}
	return min(delay, ceiling)
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	switch {
	case d <= 0:
		return nil
	case c.sleeper != nil:
		c.sleeper(d)
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

// parseRetryAfter reads a Retry-After header in either of its forms:
// delay seconds or an HTTP date.
func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	var delay time.Duration
	if seconds, err := strconv.Atoi(value); err == nil {
		delay = time.Duration(seconds) * time.Second
	} else if when, err := http.ParseTime(value); err == nil {
		delay = time.Until(when)
	} else {
		return 0, false
	}
	if delay < 0 {
		return 0, false
	}
	return delay, true
}
