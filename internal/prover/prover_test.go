package prover

import (
	"context"
	"errors"
	"testing"

	"github.com/nexusprover/client/internal/proof"
	"github.com/nexusprover/client/internal/subprocessproto"
	"github.com/nexusprover/client/internal/task"
	"github.com/nexusprover/client/internal/taskerr"
)

type fakeRunner struct {
	out []byte
	err error
}

func (f fakeRunner) Run(ctx context.Context, selfPath string, req subprocessproto.Request) ([]byte, error) {
	return f.out, f.err
}

func fibTask(t *testing.T, taskType task.Type) task.Task {
	t.Helper()
	input := task.FibInput{N: 10, InitA: 1, InitB: 1}.Encode()
	tk := task.Task{
		TaskID:           "task-1",
		ProgramID:        task.ProgramFibInputInitial,
		PublicInputsList: [][]byte{input},
		TaskType:         taskType,
		Difficulty:       task.Small,
	}
	if err := tk.Validate(); err != nil {
		t.Fatalf("fixture invalid: %v", err)
	}
	return tk
}

func TestProveFibReturnsBundle(t *testing.T) {
	p := New(Config{Runner: fakeRunner{out: []byte("fake-proof-bytes")}})
	bundle, err := p.Prove(context.Background(), 0, fibTask(t, task.ProofRequired))
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if len(bundle.Proofs) != 1 || bundle.CombinedHash == "" {
		t.Fatalf("unexpected bundle: %+v", bundle)
	}
}

func TestUnknownProgramIDIsMalformed(t *testing.T) {
	p := New(Config{Runner: fakeRunner{out: []byte("x")}})
	tk := fibTask(t, task.ProofRequired)
	tk.ProgramID = "something_else"
	_, err := p.Prove(context.Background(), 0, tk)
	var malformed *taskerr.Malformed
	if !errors.As(err, &malformed) {
		t.Fatalf("expected Malformed, got %T: %v", err, err)
	}
}

func TestSubprocessFailureSurfacesAsGuestProgram(t *testing.T) {
	p := New(Config{Runner: fakeRunner{err: &taskerr.GuestProgram{Reason: "exit 17"}}})
	_, err := p.Prove(context.Background(), 0, fibTask(t, task.ProofRequired))
	var guestErr *taskerr.GuestProgram
	if !errors.As(err, &guestErr) {
		t.Fatalf("expected GuestProgram, got %T: %v", err, err)
	}
}

type failingVerifier struct{}

func (failingVerifier) Verify(context.Context, task.Task, proof.Bundle) error {
	return errors.New("mismatch")
}

func TestVerificationFailureSurfacesAsStwo(t *testing.T) {
	p := New(Config{Runner: fakeRunner{out: []byte("fake-proof-bytes")}, Verifier: failingVerifier{}})
	_, err := p.Prove(context.Background(), 0, fibTask(t, task.ProofRequired))
	var stwoErr *taskerr.Stwo
	if !errors.As(err, &stwoErr) {
		t.Fatalf("expected Stwo from verification failure, got %T: %v", err, err)
	}
}
