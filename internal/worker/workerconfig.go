package worker

import "github.com/nexusprover/client/internal/task"

// WorkerConfig is the resolved, validated session configuration a run of
// `start` is built from: which environment to talk to, the stable
// identifiers presented to the orchestrator, and the knobs bounding how
// much work the pool takes on before stopping.
type WorkerConfig struct {
	OrchestratorURL string
	ClientID        string
	NodeID          string
	MaxDifficulty   task.Difficulty
	NumWorkers      int
	MaxTasks        int // 0 means unlimited
}

// Clamp returns wc with NumWorkers bounded to [1, 8], the same ceiling the
// original CLI used to avoid hammering the orchestrator from one client.
func (wc WorkerConfig) Clamp() WorkerConfig {
	n := wc.NumWorkers
	if n < 1 {
		n = 1
	}
	if n > 8 {
		n = 8
	}
	wc.NumWorkers = n
	return wc
}
