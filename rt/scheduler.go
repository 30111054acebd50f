package rt

import (
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Scheduler: Worker and future registries
// ---------------------------------------------------------------------------

// Scheduler owns the process-wide worker and future registries. Workers
// register on start and retire only after their goroutine has exited;
// futures register on schedule and are swept once consumed.
type Scheduler struct {
	heap       *Heap
	log        commonlog.Logger
	pinThreads bool

	workers   map[WorkerID]*Worker
	workersMu sync.RWMutex
	workerID  atomic.Int32

	futures   map[FutureID]*Future
	futuresMu sync.RWMutex
	futureID  atomic.Uint32
}

// NewScheduler creates a scheduler over the given heap. With pinThreads,
// each worker's goroutine is locked to an OS thread for its lifetime.
func NewScheduler(heap *Heap, pinThreads bool) *Scheduler {
	s := &Scheduler{
		heap:       heap,
		log:        commonlog.GetLogger("loom.scheduler"),
		pinThreads: pinThreads,
		workers:    make(map[WorkerID]*Worker),
		futures:    make(map[FutureID]*Future),
	}
	// Start IDs at 1 (0 could be confused with nil/uninitialized)
	s.workerID.Store(1)
	s.futureID.Store(1)
	return s
}

// Heap returns the heap this scheduler transfers graphs through.
func (s *Scheduler) Heap() *Heap {
	return s.heap
}

// ---------------------------------------------------------------------------
// Worker registry
// ---------------------------------------------------------------------------

// StartWorker allocates a worker ID, registers the worker, and starts its
// backing goroutine.
func (s *Scheduler) StartWorker(name string) *Worker {
	id := WorkerID(s.workerID.Add(1) - 1)
	w := newWorker(id, name, s)

	s.workersMu.Lock()
	s.workers[id] = w
	s.workersMu.Unlock()

	s.log.Debugf("worker %d (%s) started", id, name)
	go w.run()
	return w
}

// GetWorker retrieves a live worker by ID, or nil.
func (s *Scheduler) GetWorker(id WorkerID) *Worker {
	s.workersMu.RLock()
	defer s.workersMu.RUnlock()
	return s.workers[id]
}

// WorkerCount returns the number of live workers.
func (s *Scheduler) WorkerCount() int {
	s.workersMu.RLock()
	defer s.workersMu.RUnlock()
	return len(s.workers)
}

// removeWorker retires a worker ID. Called from the worker's goroutine as
// it exits.
func (s *Scheduler) removeWorker(id WorkerID) {
	s.workersMu.Lock()
	delete(s.workers, id)
	s.workersMu.Unlock()
	s.log.Debugf("worker %d retired", id)
}

// TerminateAll requests termination of every live worker and waits for
// their goroutines to exit.
func (s *Scheduler) TerminateAll(drain bool) {
	s.workersMu.RLock()
	workers := make([]*Worker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.workersMu.RUnlock()

	for _, w := range workers {
		if _, err := w.RequestTermination(drain); err != nil {
			continue // already terminating
		}
	}
	for _, w := range workers {
		w.Join()
	}
}

// ---------------------------------------------------------------------------
// Future registry
// ---------------------------------------------------------------------------

// newFuture allocates and registers a future owned by the given worker.
func (s *Scheduler) newFuture(worker WorkerID) *Future {
	id := FutureID(s.futureID.Add(1) - 1)
	f := newFuture(id, worker)

	s.futuresMu.Lock()
	s.futures[id] = f
	s.futuresMu.Unlock()

	return f
}

// GetFuture retrieves a future by ID, or nil.
func (s *Scheduler) GetFuture(id FutureID) *Future {
	s.futuresMu.RLock()
	defer s.futuresMu.RUnlock()
	return s.futures[id]
}

// FutureCount returns the number of registered futures.
func (s *Scheduler) FutureCount() int {
	s.futuresMu.RLock()
	defer s.futuresMu.RUnlock()
	return len(s.futures)
}

// SweepFutures removes consumed futures from the registry.
// Returns the number of futures swept.
func (s *Scheduler) SweepFutures() int {
	s.futuresMu.Lock()
	defer s.futuresMu.Unlock()

	swept := 0
	for id, f := range s.futures {
		if f.Consumed() {
			delete(s.futures, id)
			swept++
		}
	}
	return swept
}
