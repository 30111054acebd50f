package rt

import (
	"sync"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

// Runtime is the main entry point for the Loom kernel. It coordinates the
// heap, the scheduler, and the registry sweeper.
type Runtime struct {
	Heap  *Heap
	Sched *Scheduler

	id      string
	cfg     *Config
	sweeper *Sweeper
	log     commonlog.Logger

	mu     sync.Mutex
	closed bool
}

// New creates a runtime with the given configuration. A nil configuration
// selects defaults.
func New(cfg *Config) *Runtime {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	r := &Runtime{
		id:  uuid.New().String(),
		cfg: cfg,
		log: commonlog.GetLogger("loom.runtime"),
	}

	r.Heap = NewHeap()
	r.Sched = NewScheduler(r.Heap, cfg.PinThreads)

	if cfg.SweepInterval >= 0 {
		r.sweeper = NewSweeper(r.Sched, cfg.SweepInterval)
		r.sweeper.Start()
	}

	r.log.Infof("runtime %s (%s) initialized", r.id, cfg.Name)
	return r
}

// ID returns the runtime instance's unique identifier.
func (r *Runtime) ID() string {
	return r.id
}

// Config returns the runtime's configuration.
func (r *Runtime) Config() *Config {
	return r.cfg
}

// Sweeper returns the registry sweeper, or nil if sweeping is disabled.
func (r *Runtime) Sweeper() *Sweeper {
	return r.sweeper
}

// StartWorker starts a named worker.
func (r *Runtime) StartWorker(name string) *Worker {
	return r.Sched.StartWorker(name)
}

// Close shuts down the runtime: every worker is asked to terminate
// without draining, and the sweeper is stopped. Close is idempotent.
func (r *Runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	r.Sched.TerminateAll(false)
	if r.sweeper != nil {
		r.sweeper.Stop()
	}
	r.log.Infof("runtime %s closed", r.id)
}

// ============================================================================
// Global runtime instance (process-wide default)
// ============================================================================

var (
	globalRuntime *Runtime
	globalMu      sync.Mutex
)

// GlobalRuntime returns the global runtime instance, or nil if InitGlobal
// has not been called.
func GlobalRuntime() *Runtime {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalRuntime
}

// InitGlobal initializes the global runtime. Calling it again before
// CloseGlobal is a no-op.
func InitGlobal(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalRuntime != nil {
		return // already initialized
	}
	globalRuntime = New(cfg)
}

// CloseGlobal shuts down the global runtime.
func CloseGlobal() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalRuntime != nil {
		globalRuntime.Close()
		globalRuntime = nil
	}
}
