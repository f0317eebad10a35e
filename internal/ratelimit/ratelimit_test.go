package ratelimit

import (
	"testing"
	"time"
)

func TestServerRetryOverridesLocalLimit(t *testing.T) {
	r := New(Config{
		MinInterval:       100 * time.Millisecond,
		MaxRequests:       3,
		TimeWindow:        time.Second,
		DefaultRetryDelay: 50 * time.Millisecond,
	})
	r.RecordSuccess()
	delay := 5 * time.Second
	r.RecordFailure(&delay)

	if r.CanProceed() {
		t.Fatalf("expected CanProceed false after server retry")
	}
	wait := r.TimeUntilNext()
	if wait <= 4900*time.Millisecond || wait > 5*time.Second {
		t.Fatalf("expected wait in (4.9s, 5s], got %v", wait)
	}
}

func TestDefaultRetryAppliesWhenServerGivesNone(t *testing.T) {
	r := New(Config{MinInterval: 10 * time.Millisecond, DefaultRetryDelay: time.Second})
	r.RecordFailure(nil)
	if wait := r.TimeUntilNext(); wait <= 900*time.Millisecond {
		t.Fatalf("expected wait > 900ms, got %v", wait)
	}
}

func TestCanProceedImpliesZeroWait(t *testing.T) {
	r := New(Config{MinInterval: time.Millisecond, MaxRequests: 100, TimeWindow: time.Second})
	if !r.CanProceed() {
		t.Fatalf("expected initial CanProceed true")
	}
	if wait := r.TimeUntilNext(); wait != 0 {
		t.Fatalf("expected zero wait when CanProceed, got %v", wait)
	}
}

func TestRecordSuccessNeverShortensServerRetry(t *testing.T) {
	r := New(Config{DefaultRetryDelay: 10 * time.Millisecond})
	delay := 2 * time.Second
	r.RecordFailure(&delay)
	before := r.TimeUntilNext()
	r.RecordSuccess()
	after := r.TimeUntilNext()
	if after < before-50*time.Millisecond {
		t.Fatalf("expected success to not shorten server retry: before=%v after=%v", before, after)
	}
}

func TestWindowBoundary(t *testing.T) {
	r := New(Config{MaxRequests: 3, TimeWindow: 200 * time.Millisecond})
	for i := 0; i < 3; i++ {
		if !r.CanProceed() {
			t.Fatalf("expected allow %d", i)
		}
		r.RecordSuccess()
	}
	if r.CanProceed() {
		t.Fatalf("expected 4th request parked")
	}
	time.Sleep(250 * time.Millisecond)
	if !r.CanProceed() {
		t.Fatalf("expected allow after window rolls over")
	}
}
