package rt

// ---------------------------------------------------------------------------
// WeakCounter: Shared cell behind every weak reference
// ---------------------------------------------------------------------------

// WeakCounter is the shared, lock-protected cell that makes weak-reference
// materialization atomic relative to collection. One counter exists per
// weakly-referenced object, cached on the object and reused by every weak
// reference to it. The counter outlives its referent: collection nulls the
// referred slot but the cell itself stays valid for any observer still
// holding it.
//
// The spinlock's critical sections are a pointer load, an atomic increment,
// or a pointer store. Nothing in them can block or allocate.
type WeakCounter struct {
	referred *Object // nil once the referent has been collected
	lock     SpinLock
}

// GetOrCreateWeakCounter returns obj's cached counter, creating one if
// absent. Concurrent first calls race through a compare-and-swap on the
// object's counter slot: exactly one candidate wins, losers discard theirs,
// and every caller observes the same counter.
func GetOrCreateWeakCounter(obj *Object) *WeakCounter {
	if counter := obj.weak.Load(); counter != nil {
		return counter
	}
	candidate := &WeakCounter{referred: obj}
	obj.weak.CompareAndSwap(nil, candidate)
	return obj.weak.Load()
}

// Materialize promotes the weak reference to a strong one, or reports the
// referent gone. A non-nil result carries a fresh strong reference (the
// referent's retain count was incremented under the counter's lock); the
// caller owns it and must Release it through the heap when done. Returns
// Nil if the referent has been collected.
func (c *WeakCounter) Materialize() Value {
	c.lock.Acquire()
	r := c.referred
	if r != nil {
		r.retains.Add(1)
	}
	c.lock.Release()

	if r == nil {
		return Nil
	}
	return r.ToValue()
}

// Clear nulls the referred slot. Invoked exactly once by the memory
// manager when the referent is about to be reclaimed; every Materialize
// call that completes afterwards observes Nil.
func (c *WeakCounter) Clear() {
	c.lock.Acquire()
	c.referred = nil
	c.lock.Release()
}

// clearUnlessRetained is the collector-side variant of Clear: under the
// counter's lock it re-checks the referent's retain count, because a
// Materialize racing ahead of the collector may have resurrected the
// object. Returns false if collection must be abandoned.
func (c *WeakCounter) clearUnlessRetained(obj *Object) bool {
	c.lock.Acquire()
	if obj.retains.Load() > 0 {
		c.lock.Release()
		return false
	}
	c.referred = nil
	c.lock.Release()
	return true
}

// IsCleared reports whether the referent has been collected.
func (c *WeakCounter) IsCleared() bool {
	c.lock.Acquire()
	cleared := c.referred == nil
	c.lock.Release()
	return cleared
}
