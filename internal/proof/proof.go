// Package proof builds ProofBundle and ProofSubmission values: the Keccak
// digests a proof is identified by, and the payload shape the orchestrator
// expects back for each task type.
package proof

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/nexusprover/client/internal/task"
)

// Bundle is the output of TaskProver: one proof blob per public input, plus
// the derived digests used as the task-level identifier.
type Bundle struct {
	Proofs                [][]byte
	IndividualProofHashes []string // lowercase hex Keccak-256
	CombinedHash          string   // lowercase hex
}

// keccak256Hex returns the lowercase-hex Keccak-256 digest of b.
func keccak256Hex(b []byte) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}

// NewBundle hashes each proof and derives the combined hash. For
// PROOF_HASH/ALL_PROOF_HASHES tasks the combined hash is the Keccak-256 of
// the ordered concatenation of the raw-hash bytes of each individual hash;
// otherwise it is simply the first individual hash.
func NewBundle(proofs [][]byte, taskType task.Type) (Bundle, error) {
	if len(proofs) == 0 {
		return Bundle{}, fmt.Errorf("proof: empty proof list")
	}
	hashes := make([]string, len(proofs))
	for i, p := range proofs {
		hashes[i] = keccak256Hex(p)
	}

	var combined string
	switch taskType {
	case task.ProofHash, task.AllProofHashes:
		concat := make([]byte, 0, len(hashes)*32)
		for _, h := range hashes {
			raw, err := hex.DecodeString(h)
			if err != nil {
				return Bundle{}, fmt.Errorf("proof: decode hash: %w", err)
			}
			concat = append(concat, raw...)
		}
		combined = keccak256Hex(concat)
	default:
		combined = hashes[0]
	}

	return Bundle{Proofs: proofs, IndividualProofHashes: hashes, CombinedHash: combined}, nil
}

// Submission is what gets signed and posted to /v3/tasks/submit.
type Submission struct {
	TaskID                string
	CombinedHash          string
	TaskType              task.Type
	ProofBytes            []byte   // legacy scalar: first proof blob
	ProofsBytes           [][]byte // PROOF_REQUIRED: all proof blobs
	IndividualProofHashes []string // ALL_PROOF_HASHES only
	SigningKey            ed25519.PublicKey
	Signature             []byte
}

// signingMessage builds the exact byte string that gets Ed25519-signed:
// "0 | {task_id} | {combined_hash}".
func signingMessage(taskID, combinedHash string) []byte {
	return []byte(fmt.Sprintf("0 | %s | %s", taskID, combinedHash))
}

// BuildSubmission assembles and signs a Submission for t/bundle. Both the
// legacy scalar field and the full list are populated whenever the task
// requires proof bytes, so the submission satisfies older and newer server
// expectations simultaneously (see SPEC_FULL.md open-question decision #1).
func BuildSubmission(t task.Task, bundle Bundle, signer ed25519.PrivateKey) (Submission, error) {
	if len(bundle.Proofs) == 0 {
		return Submission{}, fmt.Errorf("proof: bundle has no proofs for task %s", t.TaskID)
	}
	sub := Submission{
		TaskID:       t.TaskID,
		CombinedHash: bundle.CombinedHash,
		TaskType:     t.TaskType,
		SigningKey:   signer.Public().(ed25519.PublicKey),
	}
	switch t.TaskType {
	case task.ProofRequired:
		sub.ProofBytes = bundle.Proofs[0]
		sub.ProofsBytes = bundle.Proofs
	case task.AllProofHashes:
		sub.IndividualProofHashes = bundle.IndividualProofHashes
	case task.ProofHash:
		// neither proof bytes nor individual hashes are sent
	default:
		return Submission{}, fmt.Errorf("proof: unknown task type %v", t.TaskType)
	}
	sub.Signature = ed25519.Sign(signer, signingMessage(t.TaskID, bundle.CombinedHash))
	return sub, nil
}
