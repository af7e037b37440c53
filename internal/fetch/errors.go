package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// retryableStatuses lists the status codes that are worth another attempt.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// TransportError reports a network level failure: connection refused,
// DNS failure, timeout or an interrupted body read.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error fetching %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPStatusError reports a non-2xx response.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d fetching %s", e.StatusCode, e.URL)
}

// Retryable reports whether the status belongs to the transient set.
func (e *HTTPStatusError) Retryable() bool {
	return retryableStatuses[e.StatusCode]
}

// IsRetryable reports whether err is worth another attempt.
// Transport errors always are; status errors only for the transient set.
func IsRetryable(err error) bool {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
