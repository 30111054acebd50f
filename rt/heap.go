package rt

import (
	"sync"
)

// ---------------------------------------------------------------------------
// Heap: The memory-manager seam
// ---------------------------------------------------------------------------

// Heap tracks every live kernel object. It is the seam between this kernel
// and the excluded general memory manager: allocation registers an object,
// Release drops a strong reference, and Collect is the reclamation hook
// that clears weak counters before an object is forgotten.
//
// Retain counts live on the objects themselves so that weak-reference
// materialization can take a strong reference with a single atomic
// increment while holding a spinlock.
type Heap struct {
	objects map[*Object]struct{}
	mu      sync.RWMutex
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{
		objects: make(map[*Object]struct{}),
	}
}

// Alloc creates a new object with the given class and slot count,
// registered with one strong reference owned by the allocator.
func (h *Heap) Alloc(class string, numSlots int) *Object {
	obj := newObject(class, numSlots)
	obj.retains.Store(1)
	obj.owner.Store(OwnerShared)

	h.mu.Lock()
	h.objects[obj] = struct{}{}
	h.mu.Unlock()

	return obj
}

// Contains reports whether obj is a live object in this heap.
func (h *Heap) Contains(obj *Object) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.objects[obj]
	return ok
}

// Live returns the number of live objects.
func (h *Heap) Live() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.objects)
}

// Retain adds a strong reference to obj.
func (h *Heap) Retain(obj *Object) {
	obj.retains.Add(1)
}

// Release drops a strong reference to obj. When the count reaches zero the
// object is collected.
func (h *Heap) Release(obj *Object) {
	if obj.retains.Add(-1) == 0 {
		h.Collect(obj)
	}
}

// RetainCount returns the number of strong references to obj.
func (h *Heap) RetainCount(obj *Object) int32 {
	return obj.retains.Load()
}

// Collect reclaims obj: its weak counter (if any) is cleared so that no
// materialization can observe the object afterwards, and the object is
// removed from the live set.
//
// If a concurrent materialization resurrected the object (retain count
// rose above zero while the counter lock was contended), collection is
// abandoned. This mirrors how the owning thread's collector and foreign
// observers coordinate through the counter's spinlock alone.
func (h *Heap) Collect(obj *Object) bool {
	if counter := obj.weak.Load(); counter != nil {
		if !counter.clearUnlessRetained(obj) {
			return false
		}
	}

	h.mu.Lock()
	delete(h.objects, obj)
	h.mu.Unlock()
	return true
}

// ForEach calls fn for every live object. The heap lock is held for the
// duration; fn must not allocate or release.
func (h *Heap) ForEach(fn func(obj *Object)) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for obj := range h.objects {
		fn(obj)
	}
}

// SetSlot stores v into obj's slot, keeping retain counts in step: an
// object value stored in a slot gains a reference, the value it displaces
// loses its (and may be collected).
func (h *Heap) SetSlot(obj *Object, index int, v Value) {
	old := obj.GetSlot(index)
	if v.IsObject() {
		ObjectFromValue(v).retains.Add(1)
	}
	obj.SetSlot(index, v)
	if old.IsObject() {
		h.Release(ObjectFromValue(old))
	}
}

// discardGraph removes every object reachable from root from the live
// set. Only for graphs no domain will ever claim (a replica whose
// enqueue failed); refcounts are not consulted.
func (h *Heap) discardGraph(root Value) {
	if !root.IsObject() {
		return
	}

	seen := make(map[*Object]struct{})
	stack := []*Object{ObjectFromValue(root)}
	seen[stack[0]] = struct{}{}
	for len(stack) > 0 {
		obj := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		obj.ForEachReference(func(ref *Object) {
			if _, ok := seen[ref]; !ok {
				seen[ref] = struct{}{}
				stack = append(stack, ref)
			}
		})
	}

	h.mu.Lock()
	for obj := range seen {
		delete(h.objects, obj)
	}
	h.mu.Unlock()
}

// register adds an already-built object (wire decoding, graph copies) to
// the live set without touching its retain count.
func (h *Heap) register(obj *Object) {
	obj.owner.Store(OwnerShared)

	h.mu.Lock()
	h.objects[obj] = struct{}{}
	h.mu.Unlock()
}
