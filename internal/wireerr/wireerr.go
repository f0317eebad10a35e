// Package wireerr defines the error shapes produced by the wire layer so the
// classifier and retry layer can inspect them without importing each other.
package wireerr

import (
	"fmt"
	"net/http"
)

// HTTPStatusError carries a non-2xx HTTP response from the orchestrator.
type HTTPStatusError struct {
	Status  int
	Message string
	Headers http.Header
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("orchestrator: http %d: %s", e.Status, e.Message)
}

// RetryAfterSeconds reads the server's retry-after signal, if present.
func (e *HTTPStatusError) RetryAfterSeconds() (int, bool) {
	if e == nil || e.Headers == nil {
		return 0, false
	}
	v := e.Headers.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	var seconds int
	if _, err := fmt.Sscanf(v, "%d", &seconds); err != nil {
		return 0, false
	}
	return seconds, true
}

// TransportError wraps a connect/read/TLS failure.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError wraps a length-prefixed-binary decode failure.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode: %v", e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }
