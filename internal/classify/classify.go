// Package classify maps transport/protocol errors to a retry decision and a
// log level; NetworkClient consults this instead of replicating the
// decision inline.
package classify

import (
	"errors"

	"github.com/nexusprover/client/internal/events"
	"github.com/nexusprover/client/internal/wireerr"
)

// Decision is the outcome of classifying one call failure.
type Decision struct {
	Retry bool
	Level events.Level
}

// Classify inspects err and returns whether the inner retry loop should try
// again, and at what level the event should be logged. HTTP 429 is never
// retried here: the outer RequestTimer's server-directed backoff is the
// only thing allowed to govern rate-limit waits.
func Classify(err error) Decision {
	if err == nil {
		return Decision{Retry: false, Level: events.LevelInfo}
	}

	var httpErr *wireerr.HTTPStatusError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.Status == 429:
			return Decision{Retry: false, Level: events.LevelDebug}
		case httpErr.Status == 401 || httpErr.Status == 403:
			return Decision{Retry: false, Level: events.LevelError}
		case httpErr.Status >= 500 && httpErr.Status <= 599:
			return Decision{Retry: true, Level: events.LevelWarn}
		case httpErr.Status >= 400 && httpErr.Status <= 499:
			return Decision{Retry: true, Level: events.LevelWarn}
		default:
			return Decision{Retry: true, Level: events.LevelWarn}
		}
	}

	var decErr *wireerr.DecodeError
	if errors.As(err, &decErr) {
		return Decision{Retry: true, Level: events.LevelWarn}
	}

	var transportErr *wireerr.TransportError
	if errors.As(err, &transportErr) {
		return Decision{Retry: true, Level: events.LevelWarn}
	}

	return Decision{Retry: true, Level: events.LevelWarn}
}
