package errors

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// TransientError represents an error that can be retried
type TransientError struct {
	Err        error
	StatusCode int    // HTTP status code if applicable
	RetryAfter int    // Seconds to wait before retry (from Retry-After header)
	Message    string // User-facing message
}

func (e *TransientError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError represents an error that should not be retried
type PermanentError struct {
	Err        error
	StatusCode int    // HTTP status code if applicable
	Message    string // User-facing message
}

func (e *PermanentError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("permanent error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewTransientError creates a new transient error with a user-facing message
func NewTransientError(err error, message string) *TransientError {
	return &TransientError{Err: err, Message: message}
}

// NewPermanentError creates a new permanent error with a user-facing message
func NewPermanentError(err error, message string) *PermanentError {
	return &PermanentError{Err: err, Message: message}
}

// FromHTTPStatus classifies a non-2xx response from an upstream API.
func FromHTTPStatus(statusCode int, body string, retryAfter int) error {
	body = strings.TrimSpace(body)
	err := fmt.Errorf("status %d: %s", statusCode, body)
	msg := fmt.Sprintf("API error %d: %s", statusCode, body)
	if isTransientHTTPStatus(statusCode) {
		return &TransientError{Err: err, StatusCode: statusCode, RetryAfter: retryAfter, Message: msg}
	}
	return &PermanentError{Err: err, StatusCode: statusCode, Message: msg}
}

// IsTransient checks if an error is retry-able
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return true
	}

	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return false
	}

	return isNetworkError(err) || isSyscallError(err)
}

// IsPermanent checks if an error is non-retry-able
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return true
	}
	return !IsTransient(err)
}

// StatusCode returns the HTTP status carried by a classified error, or 0.
func StatusCode(err error) int {
	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return transientErr.StatusCode
	}
	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return permanentErr.StatusCode
	}
	return 0
}

// FormatForUser converts technical errors to a short actionable message.
func FormatForUser(err error) string {
	if err == nil {
		return ""
	}

	switch StatusCode(err) {
	case http.StatusUnauthorized:
		return "Authentication failed. Please check your API key configuration."
	case http.StatusForbidden:
		return "Permission denied. You don't have access to this resource."
	case http.StatusNotFound:
		return "Resource not found. Please verify the model name and base URL."
	case http.StatusTooManyRequests:
		return "API rate limit or quota reached. Please wait and try again."
	}

	lowerErr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lowerErr, "connection refused"):
		return "Service is not running. Please check the configured base URL."
	case strings.Contains(lowerErr, "timeout") || strings.Contains(lowerErr, "deadline exceeded"):
		return "Request timed out. Try again or increase the timeout."
	}
	return err.Error()
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"connection refused", "connection reset", "broken pipe", "deadline exceeded"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

func isSyscallError(err error) bool {
	var syscallErr syscall.Errno
	if errors.As(err, &syscallErr) {
		switch syscallErr {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EPIPE,
			syscall.ETIMEDOUT, syscall.ENETUNREACH, syscall.EHOSTUNREACH:
			return true
		}
	}
	return false
}

func isTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, // 408
		http.StatusTooManyRequests,     // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	}
	return false
}
