// Package lamport implements a Lamport logical clock: a single counter
// that orders events across the aggregator and its clients without
// relying on wall-clock time.
package lamport

import "sync"

// Clock is a mutex-guarded Lamport counter. The zero value starts at 0,
// matching a process that has observed no events yet.
//
// A plain atomic counter is not enough here: Merge is a read-compare-write
// over two values (the local clock and a received one), not a single
// read-modify-write, so it needs the same mutex that guards Tick.
type Clock struct {
	mu    sync.Mutex
	value int64
}

// Tick advances the clock by one and returns the new value, for an event
// that originates locally.
func (c *Clock) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value++
	return c.value
}

// Merge folds in a value observed from a peer: the clock becomes one more
// than the greater of its current value and received, then returns the
// new value. This is the standard Lamport receive rule.
func (c *Clock) Merge(received int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if received > c.value {
		c.value = received
	}
	c.value++
	return c.value
}

// Current returns the clock's value without advancing it.
func (c *Clock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}
