// Package scheduler runs the aggregator's periodic background work -
// the expiry sweep and the optional backup hook - on a gocron.Scheduler,
// registering each job with s.NewJob(gocron.DurationJob(d), gocron.NewTask(...)).
package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/weathermesh/wxfabric/internal/metrics"
	"github.com/weathermesh/wxfabric/pkg/log"
)

// Store is the subset of wxstore.Store the sweep needs.
type Store interface {
	Sweep(now int64) bool
	Len() int
}

// FlushFunc performs a persistence flush (and, if configured, a backup
// upload); it is invoked whenever the sweep actually removed something.
type FlushFunc func() error

// Scheduler wraps a gocron.Scheduler configured with the expiry sweep.
type Scheduler struct {
	sched    gocron.Scheduler
	store    Store
	flush    FlushFunc
	interval time.Duration
}

// New builds a Scheduler that sweeps store every interval, calling
// flush whenever the sweep removes at least one entry.
func New(store Store, interval time.Duration, flush FlushFunc) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("scheduler: create gocron scheduler: %w", err)
	}

	sc := &Scheduler{sched: sched, store: store, flush: flush, interval: interval}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(sc.runSweep),
	)
	if err != nil {
		return nil, fmt.Errorf("scheduler: register sweep job: %w", err)
	}

	return sc, nil
}

func (sc *Scheduler) runSweep() {
	now := time.Now().UnixMilli()
	removed := sc.store.Sweep(now)
	metrics.SetStoreSize(sc.store.Len())

	metrics.ObserveSweep(removed)

	if !removed {
		return
	}

	if sc.flush == nil {
		return
	}
	if err := sc.flush(); err != nil {
		log.Warnf("scheduler: flush after sweep failed: %s", err)
	}
}

// Start begins running registered jobs in the background.
func (sc *Scheduler) Start() {
	sc.sched.Start()
}

// Shutdown stops the scheduler, blocking until its jobs have finished
// their current run.
func (sc *Scheduler) Shutdown() error {
	return sc.sched.Shutdown()
}
