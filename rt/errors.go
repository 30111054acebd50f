package rt

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------

var (
	// ErrWorkerUnavailable is returned when scheduling on a worker that is
	// terminating, terminated, or unknown to the registry.
	ErrWorkerUnavailable = errors.New("worker unavailable")

	// ErrWorkerTerminated resolves the future of a job whose worker stopped
	// before the job ran.
	ErrWorkerTerminated = errors.New("worker terminated")

	// ErrFutureAlreadyConsumed is returned when a future's result is
	// requested after it has been consumed.
	ErrFutureAlreadyConsumed = errors.New("future already consumed")
)

// ViolationKind classifies a transfer violation.
type ViolationKind int

const (
	// ViolationNotIsolated: the graph has an incoming reference from
	// outside the root's reachable set, or a node is claimed by another
	// in-flight transfer.
	ViolationNotIsolated ViolationKind = iota

	// ViolationUnsupported: the graph contains a value category that
	// cannot be moved between workers (worker handles, future handles).
	ViolationUnsupported
)

// String returns a short name for the violation kind.
func (k ViolationKind) String() string {
	switch k {
	case ViolationNotIsolated:
		return "graph not isolated"
	case ViolationUnsupported:
		return "unsupported value category"
	default:
		return "unknown violation"
	}
}

// TransferViolation reports why an object graph could not be transferred.
// It is surfaced synchronously to the caller for transfer-in failures, and
// as a future failure for transfer-out-of-job failures.
type TransferViolation struct {
	Kind   ViolationKind
	Detail string
}

// Error implements the error interface.
func (v *TransferViolation) Error() string {
	if v.Detail == "" {
		return fmt.Sprintf("transfer violation: %s", v.Kind)
	}
	return fmt.Sprintf("transfer violation: %s: %s", v.Kind, v.Detail)
}

// AsTransferViolation extracts a *TransferViolation from err, or nil.
func AsTransferViolation(err error) *TransferViolation {
	var tv *TransferViolation
	if errors.As(err, &tv) {
		return tv
	}
	return nil
}

// JobFault wraps a panic recovered from a job function. The worker thread
// survives; the fault is attached to the job's future.
type JobFault struct {
	Recovered any
}

// Error implements the error interface.
func (f *JobFault) Error() string {
	return fmt.Sprintf("job fault: %v", f.Recovered)
}
