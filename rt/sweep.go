package rt

import (
	"sync"
	"sync/atomic"
	"time"
)

// ---------------------------------------------------------------------------
// Sweeper: Periodic cleanup of the future registry
// ---------------------------------------------------------------------------

// SweepStats holds statistics from a single sweep.
type SweepStats struct {
	Futures       int
	SweepDuration time.Duration
	Timestamp     time.Time
}

// Sweeper periodically removes consumed futures from the scheduler's
// registry. This prevents registry growth in long-running programs
// (daemons, REPLs) that schedule continuously.
type Sweeper struct {
	sched    *Scheduler
	interval time.Duration
	enabled  atomic.Bool
	stop     chan struct{}
	stopped  chan struct{}
	mu       sync.Mutex // protects start/stop lifecycle

	sweepCount atomic.Uint64
	lastStats  atomic.Value // *SweepStats
}

// DefaultSweepInterval is the default interval between registry sweeps.
const DefaultSweepInterval = 30 * time.Second

// NewSweeper creates a sweeper for the given scheduler. A non-positive
// interval selects DefaultSweepInterval.
func NewSweeper(sched *Scheduler, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	sw := &Sweeper{
		sched:    sched,
		interval: interval,
	}
	sw.enabled.Store(true)
	return sw
}

// Start begins the periodic sweep goroutine. It is safe to call Start
// multiple times; only one sweep loop will run.
func (sw *Sweeper) Start() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.stop != nil {
		return // already running
	}

	sw.stop = make(chan struct{})
	sw.stopped = make(chan struct{})

	// Capture channels locally so the goroutine does not read sw.stop and
	// sw.stopped after Stop() has nilled them out.
	stopCh := sw.stop
	stoppedCh := sw.stopped
	go sw.loop(stopCh, stoppedCh)
}

// Stop halts the periodic sweep goroutine and waits for it to finish.
// It is safe to call Stop multiple times or on a sweeper never started.
func (sw *Sweeper) Stop() {
	sw.mu.Lock()
	stopCh := sw.stop
	stoppedCh := sw.stopped
	sw.stop = nil
	sw.stopped = nil
	sw.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-stoppedCh
	}
}

// SetEnabled enables or disables sweeping. When disabled, the goroutine
// still runs but skips sweep operations.
func (sw *Sweeper) SetEnabled(enabled bool) {
	sw.enabled.Store(enabled)
}

// Interval returns the sweep interval.
func (sw *Sweeper) Interval() time.Duration {
	return sw.interval
}

// SweepCount returns the total number of sweeps performed.
func (sw *Sweeper) SweepCount() uint64 {
	return sw.sweepCount.Load()
}

// LastStats returns statistics from the most recent sweep, or nil if no
// sweep has been performed yet.
func (sw *Sweeper) LastStats() *SweepStats {
	v := sw.lastStats.Load()
	if v == nil {
		return nil
	}
	return v.(*SweepStats)
}

// SweepNow performs an immediate sweep regardless of the timer.
func (sw *Sweeper) SweepNow() *SweepStats {
	return sw.sweep()
}

func (sw *Sweeper) loop(stopCh <-chan struct{}, stoppedCh chan struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if sw.enabled.Load() {
				sw.sweep()
			}
		}
	}
}

func (sw *Sweeper) sweep() *SweepStats {
	start := time.Now()
	stats := &SweepStats{
		Timestamp: start,
	}

	stats.Futures = sw.sched.SweepFutures()
	stats.SweepDuration = time.Since(start)

	sw.sweepCount.Add(1)
	sw.lastStats.Store(stats)

	return stats
}
