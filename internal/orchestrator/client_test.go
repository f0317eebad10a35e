package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nexusprover/client/internal/wire"
	"github.com/nexusprover/client/internal/wireerr"
)

func writeFramed(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	body, err := wire.Encode(v)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	w.Write(body)
}

func TestGetUserDecodesFramedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/users/0xabc" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		writeFramed(t, w, struct {
			UserID string `json:"user_id"`
		}{UserID: "user-1"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	userID, err := c.GetUser(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1, got %s", userID)
	}
}

func TestNonSuccessStatusBecomesHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetUser(context.Background(), "0xabc")
	if err == nil {
		t.Fatalf("expected error")
	}
	var httpErr *wireerr.HTTPStatusError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPStatusError, got %T: %v", err, err)
	}
	if httpErr.Status != 429 {
		t.Fatalf("expected status 429, got %d", httpErr.Status)
	}
	if seconds, ok := httpErr.RetryAfterSeconds(); !ok || seconds != 7 {
		t.Fatalf("expected retry-after 7s, got %d ok=%v", seconds, ok)
	}
}

func TestGetTasksParsesWireTasks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inputs, _ := json.Marshal([][]byte{make([]byte, 12)})
		var raw [][]byte
		json.Unmarshal(inputs, &raw)
		writeFramed(t, w, struct {
			Tasks []wireTask `json:"tasks"`
		}{Tasks: []wireTask{{
			TaskID:           "t1",
			ProgramID:        "fib_input_initial",
			PublicInputsList: raw,
			TaskType:         "PROOF_REQUIRED",
			Difficulty:       "LARGE",
		}}})
	}))
	defer srv.Close()

	c := New(srv.URL)
	tasks, err := c.GetTasks(context.Background(), "node-1")
	if err != nil {
		t.Fatalf("GetTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].TaskID != "t1" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

