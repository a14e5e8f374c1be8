package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var errEmptyBody = errors.New("empty response body")

// ErrTimeout indicates the request deadline was exceeded.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrBlocked indicates the target refused the request (HTTP 403).
type ErrBlocked struct {
	Err error
}

func (e ErrBlocked) Error() string {
	return fmt.Errorf("blocked: %w", e.Err).Error()
}

func (e ErrBlocked) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the target rate-limited the request (HTTP 429).
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// ErrBadStatus indicates any other non-200 response.
type ErrBadStatus struct {
	StatusCode int
	Err        error
}

func (e ErrBadStatus) Error() string {
	return fmt.Errorf("status %d: %w", e.StatusCode, e.Err).Error()
}

func (e ErrBadStatus) Unwrap() error {
	return e.Err
}

// classifyError maps a fetch failure to the taxonomy used for logs and
// metric labels. statusCode is zero when no response arrived.
func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 && statusCode != http.StatusOK {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrBlocked{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		default:
			return ErrBadStatus{StatusCode: statusCode, Err: wrapped}
		}
	}

	return err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var blocked ErrBlocked
	if errors.As(err, &blocked) {
		return "blocked"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	var badStatus ErrBadStatus
	if errors.As(err, &badStatus) {
		return "bad_status"
	}
	if errors.Is(err, errEmptyBody) {
		return "empty_body"
	}
	return "other"
}
