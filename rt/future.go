package rt

import (
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Future: One-shot handle to an asynchronous result
// ---------------------------------------------------------------------------

// FutureID identifies a future, unique per scheduled job.
type FutureID uint32

// FutureState represents the lifecycle of a future.
type FutureState int32

const (
	// FutureScheduled: the job is queued but not yet running.
	FutureScheduled FutureState = iota

	// FutureComputing: the worker is executing the job.
	FutureComputing

	// FutureReady: the job finished; a result or job failure is available.
	FutureReady

	// FutureCancelled: the worker terminated before the job ran.
	FutureCancelled
)

// String returns a short name for the state.
func (s FutureState) String() string {
	switch s {
	case FutureScheduled:
		return "scheduled"
	case FutureComputing:
		return "computing"
	case FutureReady:
		return "ready"
	case FutureCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Future is the handle to the eventual result of one scheduled job.
// Exactly one producer (the worker) resolves it exactly once; the result
// may be consumed exactly once, by Wait or Poll.
type Future struct {
	id     FutureID
	worker WorkerID

	state atomic.Int32
	done  chan struct{}

	mu       sync.Mutex
	result   Value
	err      error
	consumed bool
}

func newFuture(id FutureID, worker WorkerID) *Future {
	return &Future{
		id:     id,
		worker: worker,
		done:   make(chan struct{}),
	}
}

// ID returns the future's identifier.
func (f *Future) ID() FutureID {
	return f.id
}

// WorkerID returns the worker that owns the future's job.
func (f *Future) WorkerID() WorkerID {
	return f.worker
}

// State returns the future's current lifecycle state.
func (f *Future) State() FutureState {
	return FutureState(f.state.Load())
}

// ToValue returns the future as a handle Value.
func (f *Future) ToValue() Value {
	return FromFutureID(f.id)
}

// Consumed reports whether the future's result has been consumed.
func (f *Future) Consumed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.consumed
}

// markComputing records that the worker has dequeued the job.
func (f *Future) markComputing() {
	f.state.CompareAndSwap(int32(FutureScheduled), int32(FutureComputing))
}

// complete resolves the future with a transferred result.
// Called exactly once, by the owning worker.
func (f *Future) complete(result Value) {
	f.mu.Lock()
	f.result = result
	f.mu.Unlock()
	f.state.Store(int32(FutureReady))
	close(f.done)
}

// fail resolves the future with a failure: a transfer violation, a job
// fault, or worker termination.
func (f *Future) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	if err == ErrWorkerTerminated {
		f.state.Store(int32(FutureCancelled))
	} else {
		f.state.Store(int32(FutureReady))
	}
	close(f.done)
}

// Wait blocks until the future resolves, then consumes and returns the
// result. A second consumption fails with ErrFutureAlreadyConsumed. If the
// job failed, the failure is returned instead of a value.
func (f *Future) Wait() (Value, error) {
	<-f.done
	return f.consume()
}

// Poll is the non-blocking variant of Wait. The second return is false
// while the future is unresolved; once true, the result has been consumed
// exactly as Wait would have consumed it.
func (f *Future) Poll() (Value, bool, error) {
	select {
	case <-f.done:
		v, err := f.consume()
		return v, true, err
	default:
		return Nil, false, nil
	}
}

// consume hands the resolved result to the caller, exactly once. A
// transferred graph joins the caller's ownership domain here: the caller
// never observes a partially-transferred result.
func (f *Future) consume() (Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.consumed {
		return Nil, ErrFutureAlreadyConsumed
	}
	f.consumed = true

	if f.err != nil {
		return Nil, f.err
	}
	claimGraph(f.result, OwnerShared)
	return f.result, nil
}
