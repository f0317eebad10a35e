// Package fetcher implements TaskFetcher: batch-then-poll task retrieval,
// difficulty auto-promotion, dedup against recently-seen task ids, and the
// Refresh/Waiting/Success/Error event sequence the worker loop depends on.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/nexusprover/client/internal/analytics"
	"github.com/nexusprover/client/internal/cache"
	"github.com/nexusprover/client/internal/events"
	"github.com/nexusprover/client/internal/netclient"
	"github.com/nexusprover/client/internal/orchestrator"
	"github.com/nexusprover/client/internal/task"
)

var tasksFetched metric.Int64Counter

func init() {
	tasksFetched, _ = otel.Meter("nexus-prover").Int64Counter("nexus_prover_tasks_fetched_total")
}

// promotionWindow is how fast a task must have completed at the current
// target difficulty for the next request to try one level higher.
const promotionWindow = 7 * time.Minute

// Config bundles TaskFetcher's collaborators and static policy.
type Config struct {
	Client              orchestrator.API
	Net                 *netclient.Client
	Bus                 *events.Bus
	Analytics           *analytics.Sink
	Seen                *cache.FIFO
	NodeID              string
	Ed25519PublicKeyHex string
	CeilingDifficulty   task.Difficulty
	FetchPolicy         netclient.Policy
}

// TaskFetcher requests work from the orchestrator, preferring the batch
// "already assigned" endpoint and falling back to the one-at-a-time
// endpoint only once the batch is drained (see SPEC_FULL.md's resolution of
// the fetch-vs-poll open question).
type TaskFetcher struct {
	cfg Config

	currentTarget task.Difficulty
	lastDuration  time.Duration
}

// New constructs a TaskFetcher whose initial request target is the lowest
// difficulty, Small; RecordCompletion promotes it toward CeilingDifficulty
// one level at a time as tasks complete quickly enough.
func New(cfg Config) *TaskFetcher {
	return &TaskFetcher{cfg: cfg, currentTarget: task.Small}
}

// RecordCompletion feeds back the duration and difficulty of the most
// recently completed task so the next Fetch call can decide whether to
// auto-promote by one level.
func (f *TaskFetcher) RecordCompletion(difficulty task.Difficulty, duration time.Duration) {
	if difficulty == f.currentTarget && duration < promotionWindow {
		if f.currentTarget < f.cfg.CeilingDifficulty {
			f.currentTarget++
		}
	}
	f.lastDuration = duration
}

func (f *TaskFetcher) publish(ctx context.Context, kind events.Kind, level events.Level, msg string) {
	if f.cfg.Bus == nil {
		return
	}
	f.cfg.Bus.Publish(ctx, events.Event{Worker: events.Fetcher(), Kind: kind, Level: level, Message: msg})
}

// Fetch drains the batch endpoint first; if it returns nothing new, it
// falls back to requesting a single task at the current (possibly
// promoted) difficulty target. It parks on its own via NetworkClient.
func (f *TaskFetcher) Fetch(ctx context.Context) (task.Task, error) {
	f.publish(ctx, events.KindRefresh, events.LevelInfo, "refreshing task list")

	if t, ok, err := f.drainBatch(ctx); err != nil {
		f.publish(ctx, events.KindError, events.LevelWarn, err.Error())
		return task.Task{}, err
	} else if ok {
		f.onSuccess(ctx, t)
		return t, nil
	}

	t, err := f.fetchSingle(ctx)
	if err != nil {
		f.publish(ctx, events.KindError, events.LevelWarn, err.Error())
		return task.Task{}, err
	}
	f.onSuccess(ctx, t)
	return t, nil
}

func (f *TaskFetcher) drainBatch(ctx context.Context) (task.Task, bool, error) {
	var tasks []task.Task
	err := f.cfg.Net.Do(ctx, f.cfg.FetchPolicy, func(ctx context.Context) error {
		var callErr error
		tasks, callErr = f.cfg.Client.GetTasks(ctx, f.cfg.NodeID)
		return callErr
	})
	if err != nil {
		return task.Task{}, false, err
	}
	for _, t := range tasks {
		if f.cfg.Seen.Contains(t.TaskID) {
			continue
		}
		f.cfg.Seen.Insert(t.TaskID)
		return t, true, nil
	}
	return task.Task{}, false, nil
}

func (f *TaskFetcher) fetchSingle(ctx context.Context) (task.Task, error) {
	var t task.Task
	waited := 0
	err := f.cfg.Net.Do(ctx, f.cfg.FetchPolicy, func(ctx context.Context) error {
		var callErr error
		t, callErr = f.cfg.Client.GetProofTask(ctx, f.cfg.NodeID, f.cfg.Ed25519PublicKeyHex, f.currentTarget)
		if callErr != nil {
			waited++
			f.publish(ctx, events.KindWaiting, events.LevelInfo, fmt.Sprintf("%d", waited))
		}
		return callErr
	})
	if err != nil {
		return task.Task{}, err
	}
	f.cfg.Seen.Insert(t.TaskID)
	return t, nil
}

func (f *TaskFetcher) onSuccess(ctx context.Context, t task.Task) {
	f.publish(ctx, events.KindSuccess, events.LevelInfo, fmt.Sprintf("fetched task %s", t.TaskID))
	tasksFetched.Add(ctx, 1)
	if f.cfg.Analytics != nil {
		f.cfg.Analytics.Track("task_fetched", map[string]any{"task_id": t.TaskID, "difficulty": t.Difficulty.String()})
	}
}
