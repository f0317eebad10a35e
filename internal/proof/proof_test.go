package proof

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	"golang.org/x/crypto/sha3"

	"github.com/nexusprover/client/internal/task"
)

func TestCombinedHashForProofHash(t *testing.T) {
	proofs := [][]byte{[]byte("proof-a"), []byte("proof-b")}
	bundle, err := NewBundle(proofs, task.ProofHash)
	if err != nil {
		t.Fatalf("NewBundle: %v", err)
	}

	concat := make([]byte, 0, 64)
	for _, h := range bundle.IndividualProofHashes {
		raw, _ := hex.DecodeString(h)
		concat = append(concat, raw...)
	}
	hh := sha3.NewLegacyKeccak256()
	hh.Write(concat)
	want := hex.EncodeToString(hh.Sum(nil))

	if bundle.CombinedHash != want {
		t.Fatalf("combined hash mismatch: got %s want %s", bundle.CombinedHash, want)
	}
}

func TestCombinedHashForProofRequiredIsFirstIndividual(t *testing.T) {
	proofs := [][]byte{[]byte("proof-a"), []byte("proof-b")}
	bundle, err := NewBundle(proofs, task.ProofRequired)
	if err != nil {
		t.Fatalf("NewBundle: %v", err)
	}
	if bundle.CombinedHash != bundle.IndividualProofHashes[0] {
		t.Fatalf("expected combined hash to equal first individual hash")
	}
}

func TestBuildSubmissionFieldsByTaskType(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(nil)
	proofs := [][]byte{[]byte("proof-a")}

	required := task.Task{TaskID: "t1", TaskType: task.ProofRequired}
	bundle, _ := NewBundle(proofs, required.TaskType)
	sub, err := BuildSubmission(required, bundle, priv)
	if err != nil {
		t.Fatalf("BuildSubmission: %v", err)
	}
	if sub.ProofBytes == nil || sub.ProofsBytes == nil {
		t.Fatalf("expected both legacy and list proof fields populated for PROOF_REQUIRED")
	}
	if sub.IndividualProofHashes != nil {
		t.Fatalf("expected no individual hashes for PROOF_REQUIRED")
	}
	if !ed25519.Verify(sub.SigningKey, signingMessage(sub.TaskID, sub.CombinedHash), sub.Signature) {
		t.Fatalf("signature does not verify")
	}

	hashOnly := task.Task{TaskID: "t2", TaskType: task.AllProofHashes}
	bundle2, _ := NewBundle(proofs, hashOnly.TaskType)
	sub2, err := BuildSubmission(hashOnly, bundle2, priv)
	if err != nil {
		t.Fatalf("BuildSubmission: %v", err)
	}
	if sub2.ProofBytes != nil || sub2.ProofsBytes != nil {
		t.Fatalf("expected no proof bytes for ALL_PROOF_HASHES")
	}
	if sub2.IndividualProofHashes == nil {
		t.Fatalf("expected individual hashes for ALL_PROOF_HASHES")
	}

	proofHash := task.Task{TaskID: "t3", TaskType: task.ProofHash}
	bundle3, _ := NewBundle(proofs, proofHash.TaskType)
	sub3, err := BuildSubmission(proofHash, bundle3, priv)
	if err != nil {
		t.Fatalf("BuildSubmission: %v", err)
	}
	if sub3.ProofBytes != nil || sub3.ProofsBytes != nil || sub3.IndividualProofHashes != nil {
		t.Fatalf("expected neither field populated for PROOF_HASH")
	}
}
