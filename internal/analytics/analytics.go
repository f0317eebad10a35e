// Package analytics is a fire-and-forget measurement sink: every Track call
// spawns its own short-lived goroutine to POST a JSON envelope, swallowing
// failures rather than blocking its caller on the request.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Sink posts named events with arbitrary params to a fixed measurement
// endpoint. A nil *Sink is valid and Track becomes a no-op, so callers
// never need a nil check of their own.
type Sink struct {
	endpoint string
	clientID string
	http     *http.Client
	logger   *slog.Logger
}

// New constructs a Sink posting to endpoint, tagging every envelope with
// clientID.
func New(endpoint, clientID string, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		endpoint: endpoint,
		clientID: clientID,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

type measurementEvent struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

type envelope struct {
	ClientID string             `json:"client_id"`
	Events   []measurementEvent `json:"events"`
}

// Track fires name/params at the measurement endpoint without blocking the
// caller. Errors are logged at debug level and otherwise swallowed, per the
// spec's fire-and-forget analytics contract.
func (s *Sink) Track(name string, params map[string]any) {
	if s == nil {
		return
	}
	env := envelope{ClientID: s.clientID, Events: []measurementEvent{{Name: name, Params: params}}}
	go s.send(env)
}

func (s *Sink) send(env envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		s.logger.Debug("analytics: marshal failed", "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		s.logger.Debug("analytics: build request failed", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		s.logger.Debug("analytics: post failed", "err", err)
		return
	}
	resp.Body.Close()
}
