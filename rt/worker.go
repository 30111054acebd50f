package rt

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Worker: Independently scheduled execution context
// ---------------------------------------------------------------------------

// WorkerID identifies a live worker. IDs are positive, unique among live
// workers, and released only after the backing goroutine has fully exited.
type WorkerID int32

// WorkerState represents the lifecycle of a worker.
type WorkerState int32

const (
	// WorkerRunning: accepting and executing jobs.
	WorkerRunning WorkerState = iota

	// WorkerTerminating: termination requested, winding down.
	WorkerTerminating

	// WorkerTerminated: the backing goroutine has exited.
	WorkerTerminated
)

// String returns a short name for the state.
func (s WorkerState) String() string {
	switch s {
	case WorkerRunning:
		return "running"
	case WorkerTerminating:
		return "terminating"
	case WorkerTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Producer builds the value handed to a scheduled job. It runs
// synchronously in the scheduling caller's context.
type Producer func() Value

// JobFunc is a unit of work executed on a worker. It must not reference
// state outside its parameter; the dynamic transfer checks backstop that
// convention but cannot see captured Go variables.
type JobFunc func(input Value) Value

// job is a pending unit of work on a worker's queue.
type job struct {
	fn     JobFunc
	input  Value
	mode   TransferMode
	future *Future

	// terminate marks the drain sentinel enqueued by RequestTermination.
	terminate bool
}

// Worker is a named execution context with a private FIFO job queue,
// backed by one dedicated goroutine. Jobs run strictly sequentially per
// worker; distinct workers run concurrently.
type Worker struct {
	id    WorkerID
	name  string
	sched *Scheduler
	state atomic.Int32

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*job
	closed  bool // no further enqueue
	discard bool // stop before the next dequeue

	termFuture *Future
	exited     chan struct{}
}

func newWorker(id WorkerID, name string, sched *Scheduler) *Worker {
	w := &Worker{
		id:     id,
		name:   name,
		sched:  sched,
		exited: make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// ID returns the worker's identifier.
func (w *Worker) ID() WorkerID {
	return w.id
}

// Name returns the worker's name.
func (w *Worker) Name() string {
	return w.name
}

// State returns the worker's current lifecycle state.
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// ToValue returns the worker as a handle Value.
func (w *Worker) ToValue() Value {
	return FromWorkerID(w.id)
}

// QueueLen returns the number of queued, not-yet-started jobs.
func (w *Worker) QueueLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, j := range w.queue {
		if !j.terminate {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Scheduling
// ---------------------------------------------------------------------------

// Schedule runs producer in the calling context, passes its result through
// the transfer checker per mode, and enqueues the job. The returned future
// resolves when the worker has executed the job and transferred its result
// out. A transfer violation of the producer's result fails synchronously:
// isolation is a property of the sender's state at call time, so the
// future is never created.
func (w *Worker) Schedule(mode TransferMode, producer Producer, fn JobFunc) (*Future, error) {
	candidate := Nil
	if producer != nil {
		candidate = producer()
	}

	prevOwner := OwnerShared
	if candidate.IsObject() {
		prevOwner = ObjectFromValue(candidate).owner.Load()
	}

	input, err := transferOut(w.sched.heap, mode, candidate)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	if w.closed || w.State() != WorkerRunning {
		w.mu.Unlock()
		w.undoTransfer(mode, candidate, input, prevOwner)
		return nil, ErrWorkerUnavailable
	}
	future := w.sched.newFuture(w.id)
	w.queue = append(w.queue, &job{
		fn:     fn,
		input:  input,
		mode:   mode,
		future: future,
	})
	w.cond.Signal()
	w.mu.Unlock()

	return future, nil
}

// undoTransfer reverses transferOut for a job that was never enqueued.
// A detached graph re-joins the sender's domain so the sender can
// schedule it elsewhere; a copied replica, which nothing will ever
// claim, is discarded.
func (w *Worker) undoTransfer(mode TransferMode, candidate, input Value, prevOwner int32) {
	switch mode {
	case TransferChecked:
		claimGraph(candidate, prevOwner)
	case TransferCopy:
		w.sched.heap.discardGraph(input)
	}
}

// RequestTermination asks the worker to stop. With drain, every
// already-enqueued job executes first; without, the current job (if any)
// finishes but undrained jobs fail with ErrWorkerTerminated. The returned
// future resolves to Nil once the backing goroutine has fully exited.
// Requesting termination twice fails with ErrWorkerUnavailable.
func (w *Worker) RequestTermination(drain bool) (*Future, error) {
	w.mu.Lock()
	if !w.state.CompareAndSwap(int32(WorkerRunning), int32(WorkerTerminating)) {
		w.mu.Unlock()
		return nil, ErrWorkerUnavailable
	}

	future := w.sched.newFuture(w.id)
	w.termFuture = future
	w.closed = true

	var undrained []*job
	if drain {
		w.queue = append(w.queue, &job{terminate: true})
	} else {
		w.discard = true
		undrained = w.queue
		w.queue = nil
	}
	w.cond.Broadcast()
	w.mu.Unlock()

	for _, j := range undrained {
		if !j.terminate {
			j.future.fail(ErrWorkerTerminated)
		}
	}

	return future, nil
}

// Join blocks until the worker's goroutine has exited.
func (w *Worker) Join() {
	<-w.exited
}

// ---------------------------------------------------------------------------
// Execution loop
// ---------------------------------------------------------------------------

// run is the worker's goroutine body.
func (w *Worker) run() {
	if w.sched.pinThreads {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	for {
		j, ok := w.dequeue()
		if !ok || j.terminate {
			break
		}
		w.execute(j)
	}

	w.shutdown()
}

// dequeue blocks until a job is available. It returns false when the
// worker should stop: either the queue was discarded, or it was closed
// and has drained.
func (w *Worker) dequeue() (*job, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for {
		if w.discard {
			return nil, false
		}
		if len(w.queue) > 0 {
			j := w.queue[0]
			w.queue = w.queue[1:]
			return j, true
		}
		if w.closed {
			return nil, false
		}
		w.cond.Wait()
	}
}

// execute runs one job, transfers its result out, and resolves the
// future. Panics inside the job are captured as job faults; the worker
// survives them.
func (w *Worker) execute(j *job) {
	j.future.markComputing()
	claimGraph(j.input, int32(w.id))

	var result Value
	fault := func() (fault error) {
		defer func() {
			if r := recover(); r != nil {
				fault = &JobFault{Recovered: r}
			}
		}()
		result = j.fn(j.input)
		return nil
	}()

	if fault != nil {
		w.sched.log.Errorf("worker %d (%s): %s", w.id, w.name, fault.Error())
		j.future.fail(fault)
		return
	}

	out, err := transferOut(w.sched.heap, j.mode, result)
	if err != nil {
		j.future.fail(err)
		return
	}
	j.future.complete(out)
}

// shutdown retires the worker: the registry entry is removed, the state
// becomes terminated, and the termination future (if any) resolves.
func (w *Worker) shutdown() {
	w.state.Store(int32(WorkerTerminated))
	w.sched.removeWorker(w.id)

	w.mu.Lock()
	termFuture := w.termFuture
	w.mu.Unlock()

	close(w.exited)
	if termFuture != nil {
		termFuture.complete(Nil)
	}
}
