package rt

import (
	"runtime"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// SpinLock: Minimal mutual exclusion over a single word
// ---------------------------------------------------------------------------

// SpinLock is a minimal mutual-exclusion primitive over one int32 word.
// It is suitable only for critical sections bounded to a few loads and
// stores; callers must not allocate or block while holding it. There is
// no fairness guarantee.
//
// The zero value is an unlocked SpinLock.
type SpinLock struct {
	word int32
}

// maxSpinBackoff bounds the exponential backoff before a waiter yields
// the scheduler.
const maxSpinBackoff = 64

// Acquire busy-waits until the lock word transitions 0→1.
// Contended waiters back off exponentially, then yield to the scheduler.
func (l *SpinLock) Acquire() {
	backoff := 1
	for !atomic.CompareAndSwapInt32(&l.word, 0, 1) {
		for i := 0; i < backoff; i++ {
			if atomic.LoadInt32(&l.word) == 0 {
				break
			}
		}
		if backoff < maxSpinBackoff {
			backoff <<= 1
		} else {
			runtime.Gosched()
		}
	}
}

// TryAcquire attempts to take the lock without spinning.
// Returns true if the lock was acquired.
func (l *SpinLock) TryAcquire() bool {
	return atomic.CompareAndSwapInt32(&l.word, 0, 1)
}

// Release transitions the lock word 1→0.
// Releasing an unheld lock indicates memory corruption risk and is fatal.
func (l *SpinLock) Release() {
	if !atomic.CompareAndSwapInt32(&l.word, 1, 0) {
		panic("SpinLock.Release: incorrect lock state")
	}
}

// Held reports whether the lock is currently held by someone.
func (l *SpinLock) Held() bool {
	return atomic.LoadInt32(&l.word) == 1
}
