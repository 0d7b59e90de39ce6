// Package httpclient builds the HTTP clients used for upstream API calls.
package httpclient

import (
	"net/http"
	"time"
)

// DefaultMaxResponseBytes caps how much of an upstream response is read.
const DefaultMaxResponseBytes int64 = 32 << 20

// New returns a client with its own transport and the given overall timeout.
// A non-positive timeout leaves requests bounded only by their context.
func New(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if timeout < 0 {
		timeout = 0
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}
