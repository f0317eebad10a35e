// Package worker implements AuthenticatedWorker: the fetch->prove->submit
// cycle state machine, and the pool that runs several of them
// concurrently, each feeding off the same shared RequestTimer through the
// NetworkClients its collaborators were built with. The pool's shutdown wiring is a context cancellation
// plus a WaitGroup drain.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nexusprover/client/internal/events"
	"github.com/nexusprover/client/internal/fetcher"
	"github.com/nexusprover/client/internal/prover"
	"github.com/nexusprover/client/internal/submitter"
	"github.com/nexusprover/client/internal/telemetry"
)

// waitingRetryPause is how long a worker sleeps after a fetch failure
// before retrying, remaining in the Waiting state. A prove failure starts
// the next cycle without this pause.
const waitingRetryPause = time.Second

// maxTasksGrace is how long the pool waits after the max-tasks cap is hit
// before broadcasting shutdown, so pending events can flush.
const maxTasksGrace = 100 * time.Millisecond

// Config is the static policy shared by every worker in a pool, plus the
// id-scoped collaborators a single worker needs for one cycle.
type Config struct {
	Fetcher   *fetcher.TaskFetcher
	Prover    *prover.TaskProver
	Submitter *submitter.ProofSubmitter
	Bus       *events.Bus
	MaxTasks  int // 0 means unlimited
}

// AuthenticatedWorker runs one fetch->prove->submit cycle repeatedly until
// ctx is canceled or MaxTasks completions are reached.
type AuthenticatedWorker struct {
	id        int
	cfg       Config
	completed int
}

// New constructs a worker identified by id within its pool.
func New(id int, cfg Config) *AuthenticatedWorker {
	return &AuthenticatedWorker{id: id, cfg: cfg}
}

// Run drives the cycle state machine until ctx is canceled or the
// configured MaxTasks completions are reached, at which point it
// broadcasts shutdown via cancelPool.
func (w *AuthenticatedWorker) Run(ctx context.Context, cancelPool context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		t, err := w.cfg.Fetcher.Fetch(ctx)
		if err != nil {
			if !w.sleep(ctx, waitingRetryPause) {
				return
			}
			continue
		}

		w.publish(ctx, events.KindStateChange, events.LevelInfo, "proving", events.ProverStateProving)
		start := time.Now()
		spanCtx, endSpan := telemetry.WithSpan(ctx, "prove_task")
		bundle, err := w.cfg.Prover.Prove(spanCtx, w.id, t)
		endSpan()
		if err != nil {
			w.publish(ctx, events.KindError, events.LevelWarn, err.Error(), nil)
			continue
		}
		duration := time.Since(start)

		if err := w.cfg.Submitter.Submit(ctx, t, bundle); err != nil {
			// NetworkClient already retried exhaustively; stay in Waiting.
			continue
		}

		w.completed++
		w.cfg.Fetcher.RecordCompletion(t.Difficulty, duration)
		w.publish(ctx, events.KindStateChange, events.LevelInfo,
			fmt.Sprintf("task %s completed, size=%d, duration=%.1fs, difficulty=%s",
				t.TaskID, len(t.PublicInputsList), duration.Seconds(), t.Difficulty), nil)

		if w.cfg.MaxTasks > 0 && w.completed >= w.cfg.MaxTasks {
			time.Sleep(maxTasksGrace)
			w.publish(ctx, events.KindStateChange, events.LevelInfo, "shutting down: max-tasks reached", nil)
			cancelPool()
			return
		}

		w.publish(ctx, events.KindStateChange, events.LevelInfo, "waiting", events.ProverStateWaiting)
	}
}

func (w *AuthenticatedWorker) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (w *AuthenticatedWorker) publish(ctx context.Context, kind events.Kind, level events.Level, msg string, state *events.ProverState) {
	if w.cfg.Bus == nil {
		return
	}
	w.cfg.Bus.Publish(ctx, events.Event{
		Worker:      events.Prover(w.id),
		Kind:        kind,
		Level:       level,
		Message:     msg,
		ProverState: state,
	})
}

// Pool runs N AuthenticatedWorkers concurrently, each with its own Config
// (so each can hold a distinct fetcher/prover/submitter if desired, though
// typically all workers share the same NetworkClient-backed collaborators).
type Pool struct {
	workers []*AuthenticatedWorker
}

// NewPool constructs a Pool from one Config per worker.
func NewPool(configs []Config) *Pool {
	workers := make([]*AuthenticatedWorker, len(configs))
	for i, cfg := range configs {
		workers[i] = New(i, cfg)
	}
	return &Pool{workers: workers}
}

// Run starts every worker and blocks until all have returned, which happens
// when ctx is canceled (externally, e.g. Ctrl-C) or any worker's max-tasks
// cap triggers a pool-wide shutdown.
func (p *Pool) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *AuthenticatedWorker) {
			defer wg.Done()
			w.Run(ctx, cancel)
		}(w)
	}
	wg.Wait()
}
