package rt

import (
	"testing"
)

func TestSchedulerStartWorker(t *testing.T) {
	s := newTestScheduler()

	a := s.StartWorker("a")
	b := s.StartWorker("b")

	if a.ID() == b.ID() {
		t.Error("worker IDs must be unique")
	}
	if a.ID() < 1 || b.ID() < 1 {
		t.Error("worker IDs start at 1")
	}
	if s.WorkerCount() != 2 {
		t.Errorf("WorkerCount() = %d, want 2", s.WorkerCount())
	}
	if s.GetWorker(a.ID()) != a {
		t.Error("GetWorker should find a registered worker")
	}
	if s.GetWorker(9999) != nil {
		t.Error("GetWorker on an unknown ID should return nil")
	}
}

func TestSchedulerWorkerRetiresAfterExit(t *testing.T) {
	s := newTestScheduler()
	w := s.StartWorker("short-lived")
	id := w.ID()

	if _, err := w.RequestTermination(true); err != nil {
		t.Fatalf("RequestTermination: %v", err)
	}
	w.Join()

	if s.GetWorker(id) != nil {
		t.Error("terminated worker should be removed from the registry")
	}
	if s.WorkerCount() != 0 {
		t.Errorf("WorkerCount() = %d, want 0", s.WorkerCount())
	}
}

func TestSchedulerTerminateAll(t *testing.T) {
	s := newTestScheduler()
	workers := []*Worker{
		s.StartWorker("a"),
		s.StartWorker("b"),
		s.StartWorker("c"),
	}

	s.TerminateAll(true)

	if s.WorkerCount() != 0 {
		t.Errorf("WorkerCount() = %d after TerminateAll, want 0", s.WorkerCount())
	}
	for _, w := range workers {
		if w.State() != WorkerTerminated {
			t.Errorf("worker %d state = %v, want terminated", w.ID(), w.State())
		}
	}
}

func TestSchedulerFutureRegistry(t *testing.T) {
	s := newTestScheduler()
	w := s.StartWorker("test")

	future, err := w.Schedule(TransferChecked, nil,
		func(input Value) Value { return Nil })
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if future.ID() < 1 {
		t.Error("future IDs start at 1")
	}
	if s.GetFuture(future.ID()) != future {
		t.Error("GetFuture should find a registered future")
	}
	if s.FutureCount() != 1 {
		t.Errorf("FutureCount() = %d, want 1", s.FutureCount())
	}
	future.Wait()
}

func TestSchedulerSweepFutures(t *testing.T) {
	s := newTestScheduler()
	w := s.StartWorker("test")

	consumed, err := w.Schedule(TransferChecked, nil,
		func(input Value) Value { return Nil })
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	gate := make(chan struct{})
	pending, err := w.Schedule(TransferUnsafe, nil,
		func(input Value) Value {
			<-gate
			return Nil
		})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if _, err := consumed.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	swept := s.SweepFutures()
	if swept != 1 {
		t.Errorf("SweepFutures() = %d, want 1", swept)
	}
	if s.GetFuture(consumed.ID()) != nil {
		t.Error("consumed future should be swept")
	}
	if s.GetFuture(pending.ID()) != pending {
		t.Error("unconsumed future must survive the sweep")
	}

	close(gate)
	pending.Wait()
}
