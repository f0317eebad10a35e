package orchestrator

import (
	"encoding/json"

	"github.com/nexusprover/client/internal/proof"
	"github.com/nexusprover/client/internal/task"
)

// wireTask is the JSON shape of a Task on the wire. []byte fields are
// automatically base64-encoded/decoded by encoding/json, giving an opaque
// byte-string transport without a custom codec.
type wireTask struct {
	TaskID           string   `json:"task_id"`
	ProgramID        string   `json:"program_id"`
	PublicInputsList [][]byte `json:"public_inputs_list"`
	TaskType         string   `json:"task_type"`
	Difficulty       string   `json:"difficulty"`
}

func (w wireTask) toTask() (task.Task, error) {
	tt, err := task.ParseType(w.TaskType)
	if err != nil {
		return task.Task{}, err
	}
	diff, err := task.ParseDifficulty(w.Difficulty)
	if err != nil {
		return task.Task{}, err
	}
	t := task.Task{
		TaskID:           w.TaskID,
		ProgramID:        w.ProgramID,
		PublicInputsList: w.PublicInputsList,
		TaskType:         tt,
		Difficulty:       diff,
	}
	return t, t.Validate()
}

// wireSubmission is the JSON shape of a ProofSubmission on the wire.
type wireSubmission struct {
	TaskID                string   `json:"task_id"`
	CombinedHash          string   `json:"combined_hash"`
	TaskType              string   `json:"task_type"`
	ProofBytes            []byte   `json:"proof_bytes,omitempty"`
	ProofsBytes           [][]byte `json:"proofs_bytes,omitempty"`
	IndividualProofHashes []string `json:"individual_proof_hashes,omitempty"`
	SigningKey            []byte   `json:"signing_key"`
	Signature             []byte   `json:"signature"`
}

// FromSubmission converts the internal proof.Submission into its wire shape.
func FromSubmission(sub proof.Submission) wireSubmission {
	return wireSubmission{
		TaskID:                sub.TaskID,
		CombinedHash:          sub.CombinedHash,
		TaskType:              sub.TaskType.String(),
		ProofBytes:            sub.ProofBytes,
		ProofsBytes:           sub.ProofsBytes,
		IndividualProofHashes: sub.IndividualProofHashes,
		SigningKey:            []byte(sub.SigningKey),
		Signature:             sub.Signature,
	}
}

func unmarshalInto(payload []byte, out any) error {
	return json.Unmarshal(payload, out)
}
