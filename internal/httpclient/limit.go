package httpclient

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ResponseTooLargeError is returned when an upstream body is bigger than allowed.
type ResponseTooLargeError struct {
	URL   string
	Limit int64
}

func (e *ResponseTooLargeError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("response larger than %d bytes", e.Limit)
	}
	return fmt.Sprintf("response from %s larger than %d bytes", e.URL, e.Limit)
}

// IsResponseTooLarge reports whether err wraps a *ResponseTooLargeError.
func IsResponseTooLarge(err error) bool {
	var tooLarge *ResponseTooLargeError
	return errors.As(err, &tooLarge)
}

// ReadBody reads resp.Body, refusing anything over limit bytes. A declared
// Content-Length over the limit fails before reading. limit <= 0 disables the cap.
func ReadBody(resp *http.Response, limit int64) ([]byte, error) {
	var url string
	if resp.Request != nil && resp.Request.URL != nil {
		url = resp.Request.URL.Redacted()
	}
	if limit <= 0 {
		return io.ReadAll(resp.Body)
	}
	if resp.ContentLength > limit {
		return nil, &ResponseTooLargeError{URL: url, Limit: limit}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, &ResponseTooLargeError{URL: url, Limit: limit}
	}
	return data, nil
}
