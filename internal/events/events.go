// Package events implements the in-process fan-out bus described for the
// prover pipeline: every significant transition in a worker's cycle is
// published here and drained by the headless/TUI consumer.
package events

import (
	"context"
	"sync"
	"time"
)

// Level mirrors the five-level severity scale used throughout the pipeline,
// both for events and for classified errors.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// WorkerKind identifies which stage of the pipeline produced an event.
type WorkerKind int

const (
	WorkerFetcher WorkerKind = iota
	WorkerProver
	WorkerSubmitter
)

// Worker identifies the emitting component, including the prover's worker id.
type Worker struct {
	Kind WorkerKind
	ID   int
}

func Fetcher() Worker      { return Worker{Kind: WorkerFetcher} }
func Prover(id int) Worker { return Worker{Kind: WorkerProver, ID: id} }
func Submitter() Worker    { return Worker{Kind: WorkerSubmitter} }

func (w Worker) String() string {
	switch w.Kind {
	case WorkerFetcher:
		return "fetcher"
	case WorkerProver:
		return "prover"
	case WorkerSubmitter:
		return "submitter"
	default:
		return "unknown"
	}
}

// Kind is the event taxonomy: progress, failure, and lifecycle.
type Kind int

const (
	KindSuccess Kind = iota
	KindError
	KindRefresh
	KindWaiting
	KindStateChange
)

// ProverState is attached to StateChange events emitted around proving.
type ProverState int

const (
	ProverStateProving ProverState = iota
	ProverStateWaiting
)

// Event is one timestamped record of pipeline progress.
type Event struct {
	Worker      Worker
	Kind        Kind
	Level       Level
	Message     string
	Timestamp   time.Time
	ProverState *ProverState
}

// Bus is a bounded, per-subscriber fan-out of events. Within a single
// sender, events are delivered to every subscriber in send order; there is
// no ordering guarantee across senders.
type Bus struct {
	mu   sync.Mutex
	subs []chan Event
}

// NewBus constructs an empty event bus.
func NewBus() *Bus { return &Bus{} }

// Subscribe registers a new bounded channel and returns it for draining.
// Capacity defaults to a 100-event backpressure budget.
func (b *Bus) Subscribe(capacity int) <-chan Event {
	if capacity <= 0 {
		capacity = 100
	}
	ch := make(chan Event, capacity)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers e to every subscriber, blocking on a full channel unless
// ctx is canceled first (the bus's only suspension point).
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	b.mu.Lock()
	subs := make([]chan Event, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- e:
		case <-ctx.Done():
			return
		}
	}
}
