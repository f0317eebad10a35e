// Package task defines the Task record pulled from the orchestrator and the
// fib_input_initial input encoding it carries.
package task

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Difficulty is a totally ordered enum; comparison is by ordinal.
type Difficulty int

const (
	Small Difficulty = iota
	SmallMedium
	Medium
	Large
	ExtraLarge
	ExtraLarge2
	ExtraLarge3
	ExtraLarge4
	ExtraLarge5
)

var difficultyNames = [...]string{
	"SMALL", "SMALL_MEDIUM", "MEDIUM", "LARGE",
	"EXTRA_LARGE", "EXTRA_LARGE_2", "EXTRA_LARGE_3", "EXTRA_LARGE_4", "EXTRA_LARGE_5",
}

func (d Difficulty) String() string {
	if int(d) < 0 || int(d) >= len(difficultyNames) {
		return "UNKNOWN"
	}
	return difficultyNames[d]
}

// ParseDifficulty validates a case-insensitive difficulty name, as consumed
// by the `start --max-difficulty` flag.
func ParseDifficulty(s string) (Difficulty, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range difficultyNames {
		if name == up {
			return Difficulty(i), nil
		}
	}
	return 0, fmt.Errorf("unknown difficulty %q", s)
}

// Type is the kind of proof response the orchestrator expects back.
type Type int

const (
	ProofRequired Type = iota
	ProofHash
	AllProofHashes
)

func (t Type) String() string {
	switch t {
	case ProofRequired:
		return "PROOF_REQUIRED"
	case ProofHash:
		return "PROOF_HASH"
	case AllProofHashes:
		return "ALL_PROOF_HASHES"
	default:
		return "UNKNOWN"
	}
}

// ParseType parses the wire string form of Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "PROOF_REQUIRED":
		return ProofRequired, nil
	case "PROOF_HASH":
		return ProofHash, nil
	case "ALL_PROOF_HASHES":
		return AllProofHashes, nil
	default:
		return 0, fmt.Errorf("unknown task type %q", s)
	}
}

// ProgramFibInputInitial is the only program_id the prover currently honors.
const ProgramFibInputInitial = "fib_input_initial"

// Task is the immutable record obtained from the orchestrator.
type Task struct {
	TaskID           string
	ProgramID        string
	PublicInputsList [][]byte
	TaskType         Type
	Difficulty       Difficulty
}

// Validate enforces the per-input shape invariant: each element must be
// at least 12 bytes (three little-endian u32 fields).
func (t Task) Validate() error {
	if t.TaskID == "" {
		return fmt.Errorf("task: missing task_id")
	}
	if len(t.PublicInputsList) == 0 {
		return fmt.Errorf("task %s: empty public_inputs_list", t.TaskID)
	}
	for i, in := range t.PublicInputsList {
		if len(in) < 12 {
			return fmt.Errorf("task %s: input %d is %d bytes, need >= 12", t.TaskID, i, len(in))
		}
	}
	return nil
}

// FibInput is the parsed (n, init_a, init_b) triple encoded in the first 12
// bytes of a public-input element.
type FibInput struct {
	N     uint32
	InitA uint32
	InitB uint32
}

// ParseFibInput decodes the first 12 bytes of b as three little-endian u32s.
func ParseFibInput(b []byte) (FibInput, error) {
	if len(b) < 12 {
		return FibInput{}, fmt.Errorf("fib input: need >= 12 bytes, got %d", len(b))
	}
	return FibInput{
		N:     binary.LittleEndian.Uint32(b[0:4]),
		InitA: binary.LittleEndian.Uint32(b[4:8]),
		InitB: binary.LittleEndian.Uint32(b[8:12]),
	}, nil
}

// Encode is the inverse of ParseFibInput, used by round-trip tests and by
// whatever constructs synthetic public inputs.
func (f FibInput) Encode() []byte {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint32(b[0:4], f.N)
	binary.LittleEndian.PutUint32(b[4:8], f.InitA)
	binary.LittleEndian.PutUint32(b[8:12], f.InitB)
	return b
}
