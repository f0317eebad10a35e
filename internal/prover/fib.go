package prover

import (
	"encoding/binary"

	"github.com/nexusprover/client/internal/subprocessproto"
)

// RunGuestFib is the body of the prove-fib-subprocess hidden command: the
// guest program re-executed in its own process, isolated from the worker
// that forked it. It stands in for the zkVM backend (see SPEC_FULL.md) by
// running the same iterative Fibonacci recurrence the guest program
// computes and packaging the inputs and result into a deterministic byte
// blob, which is what gets Keccak-256 hashed upstream as the "proof".
func RunGuestFib(req subprocessproto.Request) []byte {
	result := fibIter(req.N, req.InitA, req.InitB)

	out := make([]byte, 16)
	binary.LittleEndian.PutUint32(out[0:4], req.N)
	binary.LittleEndian.PutUint32(out[4:8], req.InitA)
	binary.LittleEndian.PutUint32(out[8:12], req.InitB)
	binary.LittleEndian.PutUint32(out[12:16], result)
	return out
}

// fibIter mirrors the guest program's fib_iter: n+1 rounds of the additive
// recurrence starting from (init_a, init_b), returning b.
func fibIter(n, initA, initB uint32) uint32 {
	a, b := initA, initB
	for i := uint32(0); i < n+1; i++ {
		a, b = b, a+b
	}
	return b
}
