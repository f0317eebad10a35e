// Package prover implements TaskProver: dispatch by program_id, isolated
// subprocess execution of the guest program, post-proof verification, and
// hash computation. Proving never runs on the caller's goroutine stack so
// an out-of-memory or crash in the guest program cannot take the worker
// process down with it.
package prover

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/nexusprover/client/internal/analytics"
	"github.com/nexusprover/client/internal/events"
	"github.com/nexusprover/client/internal/proof"
	"github.com/nexusprover/client/internal/subprocessproto"
	"github.com/nexusprover/client/internal/task"
	"github.com/nexusprover/client/internal/taskerr"
)

var proofsComputed metric.Int64Counter

func init() {
	proofsComputed, _ = otel.Meter("nexus-prover").Int64Counter("nexus_prover_proofs_computed_total")
}

// Verifier checks a freshly produced proof bundle against the inputs that
// generated it. TaskProver calls Verify once per bundle on the single
// instance it was configured with; no fresh instance is made per proof.
type Verifier interface {
	Verify(ctx context.Context, t task.Task, bundle proof.Bundle) error
}

// NoopVerifier always succeeds; it stands in until a real guest-program
// verifier is wired, and is also what tests use to isolate TaskProver from
// the subprocess's actual cryptographic correctness.
type NoopVerifier struct{}

func (NoopVerifier) Verify(context.Context, task.Task, proof.Bundle) error { return nil }

// Runner executes one proving subprocess invocation and returns the
// serialized proof bytes written to stdout. It exists so tests can swap in
// a fake without forking a real process.
type Runner interface {
	Run(ctx context.Context, selfPath string, req subprocessproto.Request) ([]byte, error)
}

// SubprocessRunner forks `selfPath prove-fib-subprocess --inputs <json>`
// and captures stdout, killing the child promptly if ctx is canceled.
type SubprocessRunner struct{}

func (SubprocessRunner) Run(ctx context.Context, selfPath string, req subprocessproto.Request) ([]byte, error) {
	encoded, err := req.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode subprocess request: %w", err)
	}

	cmd := exec.CommandContext(ctx, selfPath, "prove-fib-subprocess", "--inputs", encoded)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return nil, &taskerr.GuestProgram{
			Reason: fmt.Sprintf("subprocess exited %d: %s", exitCode, stderr.String()),
			Err:    err,
		}
	}
	return stdout.Bytes(), nil
}

// TaskProver dispatches tasks to the appropriate guest program, runs it in
// a subprocess, verifies the result, and computes the proof hashes the
// submitter needs.
type TaskProver struct {
	bus       *events.Bus
	analytics *analytics.Sink
	runner    Runner
	verifier  Verifier
	selfPath  string
}

// Config bundles TaskProver's collaborators.
type Config struct {
	Bus       *events.Bus
	Analytics *analytics.Sink
	Runner    Runner
	Verifier  Verifier
	SelfPath  string // path to re-exec for prove-fib-subprocess, typically os.Args[0]
}

func New(cfg Config) *TaskProver {
	runner := cfg.Runner
	if runner == nil {
		runner = SubprocessRunner{}
	}
	verifier := cfg.Verifier
	if verifier == nil {
		verifier = NoopVerifier{}
	}
	return &TaskProver{bus: cfg.Bus, analytics: cfg.Analytics, runner: runner, verifier: verifier, selfPath: cfg.SelfPath}
}

// Prove runs t to completion and returns the resulting proof bundle.
func (p *TaskProver) Prove(ctx context.Context, workerID int, t task.Task) (proof.Bundle, error) {
	switch t.ProgramID {
	case task.ProgramFibInputInitial:
		return p.proveFib(ctx, workerID, t)
	default:
		return proof.Bundle{}, &taskerr.Malformed{Reason: fmt.Sprintf("unknown program_id %q", t.ProgramID)}
	}
}

func (p *TaskProver) proveFib(ctx context.Context, workerID int, t task.Task) (proof.Bundle, error) {
	proofs := make([][]byte, 0, len(t.PublicInputsList))
	for _, raw := range t.PublicInputsList {
		fib, err := task.ParseFibInput(raw)
		if err != nil {
			return proof.Bundle{}, &taskerr.Malformed{Reason: err.Error()}
		}
		req := subprocessproto.Request{N: fib.N, InitA: fib.InitA, InitB: fib.InitB}
		out, err := p.runner.Run(ctx, p.selfPath, req)
		if err != nil {
			return proof.Bundle{}, err
		}
		proofs = append(proofs, out)
	}

	bundle, err := proof.NewBundle(proofs, t.TaskType)
	if err != nil {
		return proof.Bundle{}, &taskerr.Serialization{Err: err}
	}

	if err := p.verifier.Verify(ctx, t, bundle); err != nil {
		p.publish(ctx, workerID, events.KindError, events.LevelError, fmt.Sprintf("verification failed: %v", err))
		if p.analytics != nil {
			p.analytics.Track("stwo_verification_failed", map[string]any{"task_id": t.TaskID, "error": err.Error()})
		}
		return proof.Bundle{}, &taskerr.Stwo{Reason: "verification failed", Err: err}
	}
	proofsComputed.Add(ctx, 1)
	return bundle, nil
}

func (p *TaskProver) publish(ctx context.Context, workerID int, kind events.Kind, level events.Level, msg string) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(ctx, events.Event{Worker: events.Prover(workerID), Kind: kind, Level: level, Message: msg})
}
