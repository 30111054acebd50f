package rt

import (
	"sync/atomic"
	"unsafe"
)

// Object represents a heap-allocated Loom object.
//
// Objects use a hybrid slot layout optimized for common cases:
//   - 4 inline slots for objects with ≤4 fields (most objects)
//   - Overflow slice for objects with >4 fields
//
// Beyond its slots, every object carries the bookkeeping the kernel needs:
// a retain count (strong references held by roots, not by slots), the
// ownership domain it currently belongs to, and a lazily created weak
// reference counter slot.
type Object struct {
	class string // Class name, informational only

	// Inline slots for the first 4 fields.
	slot0 Value
	slot1 Value
	slot2 Value
	slot3 Value

	// Overflow for objects with >4 fields.
	// Only allocated when needed.
	overflow []Value

	// Strong reference count: external references (locals, worker inputs,
	// future results) plus slot edges maintained through Heap.SetSlot.
	retains atomic.Int32

	// Ownership domain: a worker ID, OwnerShared for caller-context
	// objects, or ownerInFlight while a transfer is pending.
	owner atomic.Int32

	// Weak reference counter, installed on first use by compare-and-swap.
	weak atomic.Pointer[WeakCounter]
}

// NumInlineSlots is the number of slots stored directly in the Object struct.
const NumInlineSlots = 4

// Ownership domain markers. Worker IDs are always positive.
const (
	// OwnerShared marks objects owned by no worker (caller context).
	OwnerShared int32 = 0

	// ownerInFlight marks objects detached by a pending transfer.
	ownerInFlight int32 = -1
)

// ---------------------------------------------------------------------------
// Object creation
// ---------------------------------------------------------------------------

// newObject creates an Object with the given class and slot count.
// All slots are initialized to Nil. Callers go through Heap.Alloc so the
// object is registered with the collector seam.
func newObject(class string, numSlots int) *Object {
	obj := &Object{class: class}

	obj.slot0 = Nil
	obj.slot1 = Nil
	obj.slot2 = Nil
	obj.slot3 = Nil

	if numSlots > NumInlineSlots {
		obj.overflow = make([]Value, numSlots-NumInlineSlots)
		for i := range obj.overflow {
			obj.overflow[i] = Nil
		}
	}

	return obj
}

// ---------------------------------------------------------------------------
// Slot access
// ---------------------------------------------------------------------------

// GetSlot returns the value at the given slot index.
// Panics if index is out of range.
func (obj *Object) GetSlot(index int) Value {
	switch index {
	case 0:
		return obj.slot0
	case 1:
		return obj.slot1
	case 2:
		return obj.slot2
	case 3:
		return obj.slot3
	default:
		overflowIdx := index - NumInlineSlots
		if overflowIdx < 0 || overflowIdx >= len(obj.overflow) {
			panic("Object.GetSlot: index out of range")
		}
		return obj.overflow[overflowIdx]
	}
}

// SetSlot sets the value at the given slot index.
// Panics if index is out of range.
func (obj *Object) SetSlot(index int, value Value) {
	switch index {
	case 0:
		obj.slot0 = value
	case 1:
		obj.slot1 = value
	case 2:
		obj.slot2 = value
	case 3:
		obj.slot3 = value
	default:
		overflowIdx := index - NumInlineSlots
		if overflowIdx < 0 || overflowIdx >= len(obj.overflow) {
			panic("Object.SetSlot: index out of range")
		}
		obj.overflow[overflowIdx] = value
	}
}

// NumSlots returns the total number of slots in this object.
func (obj *Object) NumSlots() int {
	return NumInlineSlots + len(obj.overflow)
}

// Class returns the object's class name.
func (obj *Object) Class() string {
	return obj.class
}

// Owner returns the object's current ownership domain.
func (obj *Object) Owner() int32 {
	return obj.owner.Load()
}

// ---------------------------------------------------------------------------
// Value conversion helpers
// ---------------------------------------------------------------------------

// ToValue converts an Object pointer to a NaN-boxed Value.
func (obj *Object) ToValue() Value {
	return FromObjectPtr(unsafe.Pointer(obj))
}

// ObjectFromValue extracts an Object pointer from a NaN-boxed Value.
// Returns nil if the value is not an object.
func ObjectFromValue(v Value) *Object {
	if !v.IsObject() {
		return nil
	}
	return (*Object)(v.ObjectPtr())
}

// MustObjectFromValue extracts an Object pointer from a NaN-boxed Value.
// Panics if the value is not an object.
func MustObjectFromValue(v Value) *Object {
	if !v.IsObject() {
		panic("MustObjectFromValue: not an object")
	}
	return (*Object)(v.ObjectPtr())
}

// ---------------------------------------------------------------------------
// Slot iteration
// ---------------------------------------------------------------------------

// ForEachSlot calls fn for each slot in the object.
// This is the edge-enumeration primitive the transfer checker, the wire
// codec, and the collector seam walk graphs with.
func (obj *Object) ForEachSlot(fn func(index int, value Value)) {
	fn(0, obj.slot0)
	fn(1, obj.slot1)
	fn(2, obj.slot2)
	fn(3, obj.slot3)
	for i, v := range obj.overflow {
		fn(NumInlineSlots+i, v)
	}
}

// ForEachReference calls fn for each object-valued slot in the object.
func (obj *Object) ForEachReference(fn func(ref *Object)) {
	obj.ForEachSlot(func(_ int, v Value) {
		if v.IsObject() {
			fn(ObjectFromValue(v))
		}
	})
}
