package lamport

import (
	"sync"
	"testing"
)

func TestTickIncrements(t *testing.T) {
	var c Clock
	if got := c.Tick(); got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
	if got := c.Tick(); got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
}

func TestMergeTakesMaxPlusOne(t *testing.T) {
	var c Clock
	c.Tick() // 1
	c.Tick() // 2

	if got := c.Merge(10); got != 11 {
		t.Fatalf("got %d, want 11", got)
	}

	// A received value lower than the current clock still advances by one.
	if got := c.Merge(3); got != 12 {
		t.Fatalf("got %d, want 12", got)
	}
}

func TestCurrentDoesNotAdvance(t *testing.T) {
	var c Clock
	c.Tick()
	c.Tick()
	first := c.Current()
	second := c.Current()
	if first != second {
		t.Fatalf("Current advanced the clock: %d != %d", first, second)
	}
}

func TestClockIsMonotonicUnderConcurrentUse(t *testing.T) {
	var c Clock
	var wg sync.WaitGroup
	const n = 200
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			c.Tick()
		}()
	}
	wg.Wait()
	if got := c.Current(); got != n {
		t.Fatalf("got %d, want %d", got, n)
	}
}
