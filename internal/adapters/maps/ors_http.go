package maps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	orsMaxAttempts = 4
	orsBaseBackoff = 200 * time.Millisecond
	orsMaxBackoff  = 5 * time.Second
)

// statusError is a non-2xx ORS answer. retryAfter is set when the server
// asked us to slow down.
type statusError struct {
	status     int
	body       string
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ors: status %d: %s", e.status, e.body)
}

func (e *statusError) temporary() bool {
	return e.status == http.StatusTooManyRequests || e.status >= http.StatusInternalServerError
}

func (c *ORSClient) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json, application/geo+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	return req, nil
}

// send performs one round trip and converts error statuses into *statusError.
func (c *ORSClient) send(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusBadRequest {
		return resp, nil
	}

	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	serr := &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	if secs, perr := strconv.Atoi(resp.Header.Get("Retry-After")); perr == nil && secs > 0 {
		serr.retryAfter = time.Duration(secs) * time.Second
	}
	return nil, serr
}

// doWithRetry sends the request built by makeReq, retrying throttling, server
// errors and network failures. The wait doubles per attempt unless the server
// sent Retry-After, and never exceeds orsMaxBackoff.
func (c *ORSClient) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	wait := orsBaseBackoff

	for attempt := 1; ; attempt++ {
		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := c.send(req)
		if err == nil {
			return resp, nil
		}

		delay, ok := retryDelay(err, wait)
		if !ok || attempt == orsMaxAttempts {
			return nil, err
		}
		c.log.Debug("ors request retry", "attempt", attempt, "wait", delay, "error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-time.After(delay):
		}
		wait = min(wait*2, orsMaxBackoff)
	}
}

// retryDelay reports whether err is transient and how long to wait before the
// next attempt.
func retryDelay(err error, wait time.Duration) (time.Duration, bool) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var serr *statusError
	if errors.As(err, &serr) {
		if !serr.temporary() {
			return 0, false
		}
		if serr.retryAfter > 0 {
			return min(serr.retryAfter, orsMaxBackoff), true
		}
		return wait, true
	}

	var netErr net.Error
	return wait, errors.As(err, &netErr)
}
