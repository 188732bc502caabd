package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

type fakeStore struct {
	removeOnNextSweep bool
	sweptCount        int32
	size              int
}

func (f *fakeStore) Sweep(now int64) bool {
	atomic.AddInt32(&f.sweptCount, 1)
	return f.removeOnNextSweep
}

func (f *fakeStore) Len() int { return f.size }

func TestSchedulerInvokesFlushWhenSweepRemovesSomething(t *testing.T) {
	store := &fakeStore{removeOnNextSweep: true}
	var flushCalls int32

	sc, err := New(store, 10*time.Millisecond, func() error {
		atomic.AddInt32(&flushCalls, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	sc.Start()
	defer sc.Shutdown()

	deadline := time.After(500 * time.Millisecond)
	for atomic.LoadInt32(&flushCalls) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for a flush to be triggered by the sweep")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSchedulerSkipsFlushWhenSweepRemovesNothing(t *testing.T) {
	store := &fakeStore{removeOnNextSweep: false}
	var flushCalls int32

	sc, err := New(store, 10*time.Millisecond, func() error {
		atomic.AddInt32(&flushCalls, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	sc.Start()
	defer sc.Shutdown()

	deadline := time.After(200 * time.Millisecond)
	for atomic.LoadInt32(&store.sweptCount) < 3 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for sweeps to run")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if atomic.LoadInt32(&flushCalls) != 0 {
		t.Errorf("got %d flush calls, want 0", flushCalls)
	}
}
