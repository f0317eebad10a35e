package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestTrackPostsEnvelope(t *testing.T) {
	var mu sync.Mutex
	var received envelope
	done := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		json.NewDecoder(r.Body).Decode(&received)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
		close(done)
	}))
	defer srv.Close()

	s := New(srv.URL, "client-1", nil)
	s.Track("task_fetched", map[string]any{"task_id": "t1"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for analytics post")
	}

	mu.Lock()
	defer mu.Unlock()
	if received.ClientID != "client-1" {
		t.Fatalf("expected client-1, got %s", received.ClientID)
	}
	if len(received.Events) != 1 || received.Events[0].Name != "task_fetched" {
		t.Fatalf("unexpected events: %+v", received.Events)
	}
}

func TestTrackOnNilSinkIsNoop(t *testing.T) {
	var s *Sink
	s.Track("whatever", nil) // must not panic
}
