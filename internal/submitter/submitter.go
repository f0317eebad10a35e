// Package submitter implements ProofSubmitter: dedup against a
// recently-submitted cache, submission assembly and signing, retried
// delivery through NetworkClient, and the analytics events attached to
// each outcome.
package submitter

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/nexusprover/client/internal/analytics"
	"github.com/nexusprover/client/internal/cache"
	"github.com/nexusprover/client/internal/events"
	"github.com/nexusprover/client/internal/netclient"
	"github.com/nexusprover/client/internal/orchestrator"
	"github.com/nexusprover/client/internal/proof"
	"github.com/nexusprover/client/internal/task"
	"github.com/nexusprover/client/internal/wireerr"
)

var proofsSubmitted metric.Int64Counter

func init() {
	proofsSubmitted, _ = otel.Meter("nexus-prover").Int64Counter("nexus_prover_proofs_submitted_total")
}

// Config bundles ProofSubmitter's collaborators.
type Config struct {
	Client       orchestrator.API
	Net          *netclient.Client
	Bus          *events.Bus
	Analytics    *analytics.Sink
	Submitted    *cache.FIFO
	SigningKey   ed25519.PrivateKey
	SubmitPolicy netclient.Policy
}

// ProofSubmitter signs and posts completed proof bundles.
type ProofSubmitter struct {
	cfg Config
}

func New(cfg Config) *ProofSubmitter {
	return &ProofSubmitter{cfg: cfg}
}

// Submit builds, signs, and delivers a submission for t/bundle. A task id
// already present in the submitted-tasks cache is skipped outright: two
// successful submissions for the same task never both reach the network
// within one process lifetime.
func (s *ProofSubmitter) Submit(ctx context.Context, t task.Task, bundle proof.Bundle) error {
	if s.cfg.Submitted.Contains(t.TaskID) {
		err := fmt.Errorf("submitter: task %s already submitted", t.TaskID)
		s.trackFailure(t, err)
		return nil
	}

	sub, err := proof.BuildSubmission(t, bundle, s.cfg.SigningKey)
	if err != nil {
		s.trackFailure(t, err)
		return fmt.Errorf("submitter: build submission: %w", err)
	}

	err = s.cfg.Net.Do(ctx, s.cfg.SubmitPolicy, func(ctx context.Context) error {
		return s.cfg.Client.SubmitProof(ctx, sub)
	})
	if err != nil {
		s.trackFailure(t, err)
		return err
	}

	s.cfg.Submitted.Insert(t.TaskID)
	s.trackSuccess(t)
	return nil
}

func (s *ProofSubmitter) trackSuccess(t task.Task) {
	proofsSubmitted.Add(context.Background(), 1)
	if s.cfg.Bus != nil {
		s.cfg.Bus.Publish(context.Background(), events.Event{
			Worker:  events.Submitter(),
			Kind:    events.KindSuccess,
			Level:   events.LevelInfo,
			Message: fmt.Sprintf("submitted task %s", t.TaskID),
		})
	}
	if s.cfg.Analytics == nil {
		return
	}
	if t.TaskType == task.ProofHash {
		s.cfg.Analytics.Track("proof_accepted", map[string]any{"task_id": t.TaskID})
	} else {
		s.cfg.Analytics.Track("proof_submission_success", map[string]any{"task_id": t.TaskID})
	}
}

func (s *ProofSubmitter) trackFailure(t task.Task, err error) {
	if s.cfg.Bus != nil {
		s.cfg.Bus.Publish(context.Background(), events.Event{
			Worker:  events.Submitter(),
			Kind:    events.KindError,
			Level:   events.LevelWarn,
			Message: err.Error(),
		})
	}
	if s.cfg.Analytics == nil {
		return
	}
	params := map[string]any{"task_id": t.TaskID, "error": err.Error()}
	var httpErr *wireerr.HTTPStatusError
	if errors.As(err, &httpErr) {
		params["status"] = httpErr.Status
	}
	s.cfg.Analytics.Track("proof_submission_error", params)
}
