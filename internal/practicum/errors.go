package practicum

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// NetworkError is returned when the status API could not be reached:
// connection failures, DNS errors and timeouts.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("status api request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request failed because a deadline expired.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// UnexpectedStatusError is returned when the status API answers with a
// non-200 status code.
type UnexpectedStatusError struct {
	Endpoint   string
	StatusCode int
	// Detail is the server supplied message, if the body carried one.
	Detail string
}

func (e *UnexpectedStatusError) Error() string {
	msg := fmt.Sprintf("endpoint %s %s status code: %d", e.Endpoint, e.Reason(), e.StatusCode)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Reason returns a short human readable explanation of the status code.
func (e *UnexpectedStatusError) Reason() string {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return "bad request."
	case http.StatusUnauthorized:
		return "not authenticated."
	case http.StatusNotFound:
		return "not found."
	default:
		return "request error."
	}
}

// MalformedResponseError is returned when the response body does not have
// the expected shape.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed status api response: %s: %v", e.Reason, e.Err)
	}
	return "malformed status api response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) error {
	return &MalformedResponseError{Reason: fmt.Sprintf(format, args...)}
}
