// Package netclient wraps orchestrator.API with the retry/parking layer
// described for NetworkClient: before every attempt it parks on a
// RequestTimer, classifies failures, clamps and jitters server-directed
// retry delays, and gives up once the classifier says "don't retry" or the
// attempt cap is reached.
package netclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/nexusprover/client/internal/classify"
	"github.com/nexusprover/client/internal/events"
	"github.com/nexusprover/client/internal/ratelimit"
	"github.com/nexusprover/client/internal/wireerr"
)

var (
	meter           = otel.Meter("nexus-prover")
	retryAttempts   metric.Int64Counter
	requestWaitSecs metric.Float64Histogram
)

func init() {
	retryAttempts, _ = meter.Int64Counter("nexus_prover_retry_attempts_total")
	requestWaitSecs, _ = meter.Float64Histogram("nexus_prover_request_wait_seconds")
}

// clampExtra and clampMax bound how a server-supplied retry-after value
// is interpreted: never shorter than what the server asked for plus a small
// cushion, never longer than ten minutes regardless of what it claims.
const (
	clampExtra = 2 * time.Second
	clampMax   = 10 * time.Minute
)

// Policy configures one operation's retry behavior. Fetch and submit each
// get their own Policy: submit affords far more attempts because discarding
// a completed proof is expensive.
type Policy struct {
	MaxAttempts int
}

// Client wraps a RequestTimer shared across every operation that goes
// through it, publishing classifier-selected events as attempts fail.
type Client struct {
	timer  *ratelimit.RequestTimer
	bus    *events.Bus
	worker events.Worker
	jitter func() time.Duration
}

// New constructs a Client.
func New(timer *ratelimit.RequestTimer, bus *events.Bus, worker events.Worker) *Client {
	return &Client{
		timer:  timer,
		bus:    bus,
		worker: worker,
		jitter: defaultJitter,
	}
}

func defaultJitter() time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.RandomizationFactor = 0.5
	return b.NextBackOff()
}

// ErrAttemptsExhausted is wrapped into the final error once Do gives up:
// either MaxAttempts attempts have all failed or the classifier marked a
// failure as not retryable. The last call error is wrapped alongside it.
var ErrAttemptsExhausted = errors.New("netclient: attempts exhausted")

// Do parks on the RequestTimer, invokes call, and retries on classifiable
// failures until success, a no-retry classification, or Policy.MaxAttempts
// is reached. call should perform exactly one orchestrator round trip.
func (c *Client) Do(ctx context.Context, policy Policy, call func(ctx context.Context) error) error {
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.park(ctx); err != nil {
			return err
		}

		err := call(ctx)
		if err == nil {
			c.timer.RecordSuccess()
			return nil
		}
		lastErr = err

		serverDelay := c.clampedRetryAfter(err)
		c.timer.RecordFailure(serverDelay)

		decision := classify.Classify(err)
		c.publish(ctx, decision, err)
		if !decision.Retry || attempt == maxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempt, err)
		}
		retryAttempts.Add(ctx, 1)
	}
	return lastErr
}

// clampedRetryAfter extracts a server-suggested retry delay from err (if
// any), clamps it to [provided+extra, 10min], and adds jitter so concurrent
// workers don't all wake at once.
func (c *Client) clampedRetryAfter(err error) *time.Duration {
	var httpErr *wireerr.HTTPStatusError
	if !errors.As(err, &httpErr) {
		return nil
	}
	seconds, ok := httpErr.RetryAfterSeconds()
	if !ok {
		return nil
	}
	d := time.Duration(seconds)*time.Second + clampExtra + c.jitter()
	if d > clampMax {
		d = clampMax
	}
	return &d
}

// park blocks until the RequestTimer says an attempt may proceed, or ctx is
// canceled.
func (c *Client) park(ctx context.Context) error {
	for !c.timer.CanProceed() {
		wait := c.timer.TimeUntilNext()
		requestWaitSecs.Record(ctx, wait.Seconds())
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return nil
}

func (c *Client) publish(ctx context.Context, decision classify.Decision, err error) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(ctx, events.Event{
		Worker:  c.worker,
		Kind:    events.KindError,
		Level:   decision.Level,
		Message: err.Error(),
	})
}
