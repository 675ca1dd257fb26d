package executor

import (
	"context"
	"testing"
)

type testJob struct{ name string }

func (j *testJob) Run(context.Context) {}

func TestWorkQueue_AddAndGet(t *testing.T) {
	q := newWorkQueue()
	a, b := &testJob{"a"}, &testJob{"b"}

	q.Add(a)
	q.Add(b)
	q.Add(a) // deduplicated while waiting

	if q.Len() != 2 {
		t.Fatalf("Expected queue length 2, got %d", q.Len())
	}

	got, ok := q.Get()
	if !ok || got != a {
		t.Fatalf("Expected job a first, got %v", got)
	}
	got, ok = q.Get()
	if !ok || got != b {
		t.Fatalf("Expected job b second, got %v", got)
	}
	q.Done(a)
	q.Done(b)

	if q.Len() != 0 {
		t.Errorf("Expected empty queue, got %d", q.Len())
	}
}

func TestWorkQueue_DirtyRequeue(t *testing.T) {
	q := newWorkQueue()
	a := &testJob{"a"}

	q.Add(a)
	got, _ := q.Get()

	// Added twice while processing: requeued exactly once.
	q.Add(got)
	q.Add(got)
	if q.Len() != 0 {
		t.Fatalf("Job being processed must not be queued, length %d", q.Len())
	}

	q.Done(got)
	if q.Len() != 1 {
		t.Fatalf("Expected dirty job to be requeued once, length %d", q.Len())
	}
}

func TestWorkQueue_Shutdown(t *testing.T) {
	q := newWorkQueue()
	a := &testJob{"a"}
	q.Add(a)
	q.Shutdown()

	if q.Add(&testJob{"late"}) {
		t.Error("Add after shutdown should be rejected")
	}

	// Already queued work is still handed out.
	if got, ok := q.Get(); !ok || got != a {
		t.Fatalf("Expected queued job after shutdown, got %v %v", got, ok)
	}
	if _, ok := q.Get(); ok {
		t.Error("Get on a drained, shut down queue should return false")
	}
}

func TestWorkQueue_GetBlocksUntilShutdown(t *testing.T) {
	q := newWorkQueue()
	done := make(chan bool)
	go func() {
		_, ok := q.Get()
		done <- ok
	}()

	q.Shutdown()
	if ok := <-done; ok {
		t.Error("Expected Get to return false after shutdown")
	}
}
