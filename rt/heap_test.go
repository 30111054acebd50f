package rt

import (
	"testing"
)

func TestHeapAlloc(t *testing.T) {
	h := NewHeap()

	obj := h.Alloc("Point", 2)
	if !h.Contains(obj) {
		t.Error("allocated object should be in the heap")
	}
	if h.Live() != 1 {
		t.Errorf("Live() = %d, want 1", h.Live())
	}
	if h.RetainCount(obj) != 1 {
		t.Errorf("RetainCount = %d, want 1", h.RetainCount(obj))
	}
	if obj.Owner() != OwnerShared {
		t.Errorf("Owner() = %d, want OwnerShared", obj.Owner())
	}
}

func TestHeapRetainRelease(t *testing.T) {
	h := NewHeap()
	obj := h.Alloc("Point", 2)

	h.Retain(obj)
	if h.RetainCount(obj) != 2 {
		t.Errorf("RetainCount = %d, want 2", h.RetainCount(obj))
	}

	h.Release(obj)
	if !h.Contains(obj) {
		t.Error("object with remaining references should survive Release")
	}

	h.Release(obj)
	if h.Contains(obj) {
		t.Error("object should be collected when the count reaches zero")
	}
	if h.Live() != 0 {
		t.Errorf("Live() = %d, want 0", h.Live())
	}
}

func TestHeapSetSlotRefCounting(t *testing.T) {
	h := NewHeap()
	parent := h.Alloc("Parent", 2)
	child := h.Alloc("Child", 1)

	h.SetSlot(parent, 0, child.ToValue())
	if h.RetainCount(child) != 2 {
		t.Errorf("RetainCount(child) = %d after store, want 2", h.RetainCount(child))
	}

	// Drop the allocator's reference; the slot edge keeps the child alive.
	h.Release(child)
	if !h.Contains(child) {
		t.Error("child should survive on its slot edge")
	}

	// Overwriting the slot drops the last reference.
	h.SetSlot(parent, 0, Nil)
	if h.Contains(child) {
		t.Error("child should be collected after its slot edge is removed")
	}
}

func TestHeapSetSlotReplaceObject(t *testing.T) {
	h := NewHeap()
	parent := h.Alloc("Parent", 1)
	first := h.Alloc("First", 1)
	second := h.Alloc("Second", 1)

	h.SetSlot(parent, 0, first.ToValue())
	h.Release(first)
	h.SetSlot(parent, 0, second.ToValue())

	if h.Contains(first) {
		t.Error("displaced object should be collected")
	}
	if !h.Contains(second) {
		t.Error("stored object should be live")
	}
	if h.RetainCount(second) != 2 {
		t.Errorf("RetainCount(second) = %d, want 2", h.RetainCount(second))
	}
}

func TestHeapCollectClearsWeakCounter(t *testing.T) {
	h := NewHeap()
	obj := h.Alloc("Point", 2)
	counter := GetOrCreateWeakCounter(obj)

	h.Release(obj)

	if !counter.IsCleared() {
		t.Error("weak counter should be cleared on collection")
	}
	if counter.Materialize() != Nil {
		t.Error("Materialize after collection should return Nil")
	}
}

func TestHeapForEach(t *testing.T) {
	h := NewHeap()
	h.Alloc("A", 1)
	h.Alloc("B", 1)
	h.Alloc("C", 1)

	seen := 0
	h.ForEach(func(obj *Object) {
		seen++
	})
	if seen != 3 {
		t.Errorf("ForEach visited %d objects, want 3", seen)
	}
}
