package worker

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/nexusprover/client/internal/cache"
	"github.com/nexusprover/client/internal/events"
	"github.com/nexusprover/client/internal/fetcher"
	"github.com/nexusprover/client/internal/netclient"
	"github.com/nexusprover/client/internal/proof"
	"github.com/nexusprover/client/internal/prover"
	"github.com/nexusprover/client/internal/ratelimit"
	"github.com/nexusprover/client/internal/submitter"
	"github.com/nexusprover/client/internal/subprocessproto"
	"github.com/nexusprover/client/internal/task"
)

type stubAPI struct {
	nextID int
}

func (s *stubAPI) GetUser(ctx context.Context, wallet string) (string, error) { return "", nil }
func (s *stubAPI) RegisterUser(ctx context.Context, uuid, wallet string) error { return nil }
func (s *stubAPI) RegisterNode(ctx context.Context, userID string) (string, error) {
	return "", nil
}
func (s *stubAPI) GetNode(ctx context.Context, nodeID string) (string, error) { return "", nil }
func (s *stubAPI) GetTasks(ctx context.Context, nodeID string) ([]task.Task, error) {
	return nil, nil
}
func (s *stubAPI) GetProofTask(ctx context.Context, nodeID, pubKey string, maxDifficulty task.Difficulty) (task.Task, error) {
	s.nextID++
	return task.Task{
		TaskID:           taskIDFor(s.nextID),
		ProgramID:        task.ProgramFibInputInitial,
		PublicInputsList: [][]byte{task.FibInput{N: 1, InitA: 1, InitB: 1}.Encode()},
		TaskType:         task.ProofRequired,
		Difficulty:       task.Small,
	}, nil
}
func (s *stubAPI) SubmitProof(ctx context.Context, sub proof.Submission) error { return nil }

func taskIDFor(n int) string {
	return "task-" + string(rune('a'+n))
}

type stubRunner struct{}

func (stubRunner) Run(ctx context.Context, selfPath string, req subprocessproto.Request) ([]byte, error) {
	return []byte("fake-proof"), nil
}

func newTestNet() *netclient.Client {
	timer := ratelimit.New(ratelimit.Config{MaxRequests: 1000, TimeWindow: time.Second, DefaultRetryDelay: time.Millisecond})
	return netclient.New(timer, nil, events.Worker{})
}

func TestAuthenticatedWorkerStopsAtMaxTasks(t *testing.T) {
	api := &stubAPI{}
	net := newTestNet()
	f := fetcher.New(fetcher.Config{
		Client:            api,
		Net:               net,
		Seen:              cache.New(100),
		CeilingDifficulty: task.Large,
		FetchPolicy:       netclient.Policy{MaxAttempts: 1},
	})
	p := prover.New(prover.Config{Runner: stubRunner{}})
	_, priv, _ := ed25519.GenerateKey(nil)
	s := submitter.New(submitter.Config{
		Client:       api,
		Net:          net,
		Submitted:    cache.New(100),
		SigningKey:   priv,
		SubmitPolicy: netclient.Policy{MaxAttempts: 1},
	})

	w := New(0, Config{Fetcher: f, Prover: p, Submitter: s, MaxTasks: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx, cancel)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop after reaching max tasks")
	}
	if w.completed != 2 {
		t.Fatalf("expected 2 completed tasks, got %d", w.completed)
	}
}
