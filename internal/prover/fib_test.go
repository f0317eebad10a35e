package prover

import (
	"testing"

	"github.com/nexusprover/client/internal/subprocessproto"
)

func TestRunGuestFibIsDeterministic(t *testing.T) {
	req := subprocessproto.Request{N: 10, InitA: 1, InitB: 1}
	a := RunGuestFib(req)
	b := RunGuestFib(req)
	if string(a) != string(b) {
		t.Fatalf("expected deterministic output, got %x vs %x", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("expected 16-byte blob, got %d", len(a))
	}
}

func TestFibIterMatchesGuestRecurrence(t *testing.T) {
	got := fibIter(0, 1, 1)
	if got != 2 {
		t.Fatalf("fibIter(0,1,1) = %d, want 2", got)
	}
}
