package rt

import (
	"math"
	"unsafe"
)

// Value represents a Loom value using NaN-boxing.
//
// All values are represented as 64-bit IEEE 754 doubles. Non-float values
// are encoded in the NaN (Not-a-Number) space using the quiet NaN prefix
// and tag bits to distinguish types.
//
// Encoding scheme:
//   - Float: Native IEEE 754 double (if not a NaN, it's a float)
//   - SmallInt: Quiet NaN + tagInt + 48-bit signed payload
//   - Object: Quiet NaN + tagObject + 48-bit pointer
//   - Special: Quiet NaN + tagSpecial + special value ID (nil/true/false)
//   - Handle: Quiet NaN + tagHandle + marker byte + 24-bit registry ID
type Value uint64

// NaN-boxing constants
const (
	// Quiet NaN prefix: exponent all 1s, quiet bit set, sign bit 0
	// 0x7FF8_0000_0000_0000
	nanBits uint64 = 0x7FF8000000000000

	// Tag mask: 3 bits within the NaN mantissa space
	tagMask uint64 = 0x0007000000000000

	// Payload mask: 48 bits for pointer/int/id
	payloadMask uint64 = 0x0000FFFFFFFFFFFF

	// Tag values (shifted into position)
	tagObject  uint64 = 0x0001000000000000 // Heap object pointer
	tagInt     uint64 = 0x0002000000000000 // 48-bit signed integer
	tagSpecial uint64 = 0x0003000000000000 // nil, true, false
	tagHandle  uint64 = 0x0004000000000000 // Worker/future handle ID

	// Sign bit for 48-bit integer sign extension
	intSignBit uint64 = 0x0000800000000000

	// Mask for sign extension
	intSignExtend uint64 = 0xFFFF000000000000
)

// Special value payloads
const (
	specialNil   uint64 = 0
	specialTrue  uint64 = 1
	specialFalse uint64 = 2
)

// Pre-defined special values
const (
	Nil   Value = Value(nanBits | tagSpecial | specialNil)
	True  Value = Value(nanBits | tagSpecial | specialTrue)
	False Value = Value(nanBits | tagSpecial | specialFalse)
)

// SmallInt range (48-bit signed)
const (
	MaxSmallInt int64 = (1 << 47) - 1
	MinSmallInt int64 = -(1 << 47)
)

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// IsFloat returns true if v represents a float64 value.
// A value is a float if it's not one of our tagged NaN values.
// This includes regular numbers, infinities, and "real" NaN values.
func (v Value) IsFloat() bool {
	bits := uint64(v)

	if (bits & 0x7FF0000000000000) != 0x7FF0000000000000 {
		// Exponent is not all 1s, so it's a regular float
		return true
	}

	// Exponent is all 1s. Could be Infinity or NaN.
	mantissa := bits & 0x000FFFFFFFFFFFFF
	if mantissa == 0 {
		// +Inf or -Inf, which are valid floats
		return true
	}

	if (bits & nanBits) != nanBits {
		// Quiet NaN bit not set - signaling NaN, treat as float
		return true
	}

	tag := bits & tagMask
	if tag == 0 {
		// No tag bits set - a "real" quiet NaN, treat as float
		return true
	}

	return false
}

// IsSmallInt returns true if v represents a small integer.
func (v Value) IsSmallInt() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagInt)
}

// IsObject returns true if v represents a heap object pointer.
func (v Value) IsObject() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagObject)
}

// IsHandle returns true if v represents a worker or future handle.
func (v Value) IsHandle() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagHandle)
}

// IsNil returns true if v is the nil value.
func (v Value) IsNil() bool {
	return v == Nil
}

// IsBool returns true if v is true or false.
func (v Value) IsBool() bool {
	return v == True || v == False
}

// IsSpecial returns true if v is nil, true, or false.
func (v Value) IsSpecial() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagSpecial)
}

// ---------------------------------------------------------------------------
// Float operations
// ---------------------------------------------------------------------------

// Float64 returns v as a float64.
// Panics if v is not a float.
func (v Value) Float64() float64 {
	if !v.IsFloat() {
		panic("Value.Float64: not a float")
	}
	return math.Float64frombits(uint64(v))
}

// FromFloat64 creates a Value from a float64.
func FromFloat64(f float64) Value {
	return Value(math.Float64bits(f))
}

// ---------------------------------------------------------------------------
// SmallInt operations
// ---------------------------------------------------------------------------

// SmallInt returns v as an int64.
// Panics if v is not a small integer.
func (v Value) SmallInt() int64 {
	if !v.IsSmallInt() {
		panic("Value.SmallInt: not a small integer")
	}
	payload := uint64(v) & payloadMask

	// Sign extend from 48 bits to 64 bits
	if (payload & intSignBit) != 0 {
		payload |= intSignExtend
	}
	return int64(payload)
}

// FromSmallInt creates a Value from an int64.
// Panics if n is outside the SmallInt range.
func FromSmallInt(n int64) Value {
	if n > MaxSmallInt || n < MinSmallInt {
		panic("FromSmallInt: value out of range")
	}
	return Value(nanBits | tagInt | (uint64(n) & payloadMask))
}

// ---------------------------------------------------------------------------
// Object pointer operations
// ---------------------------------------------------------------------------

// ObjectPtr returns v as an unsafe.Pointer to the heap object.
// Panics if v is not an object.
func (v Value) ObjectPtr() unsafe.Pointer {
	if !v.IsObject() {
		panic("Value.ObjectPtr: not an object")
	}
	ptr := uintptr(uint64(v) & payloadMask)
	return unsafe.Pointer(ptr)
}

// FromObjectPtr creates a Value from an unsafe.Pointer.
// The pointer must fit in 48 bits (true for all current architectures).
func FromObjectPtr(ptr unsafe.Pointer) Value {
	return Value(nanBits | tagObject | uint64(uintptr(ptr)))
}

// ---------------------------------------------------------------------------
// Handle operations
// ---------------------------------------------------------------------------

// Handle marker bytes distinguish the registry a handle refers to.
// The registry ID itself gets the low 24 bits.
const (
	workerMarker uint32 = 1 << 24
	futureMarker uint32 = 2 << 24

	handleIDMask uint32 = 0x00FFFFFF
)

// handleID returns the raw marker+ID payload of a handle value.
func (v Value) handleID() uint32 {
	if !v.IsHandle() {
		panic("Value.handleID: not a handle")
	}
	return uint32(uint64(v) & payloadMask)
}

// FromWorkerID creates a handle Value for a worker ID.
// Panics if the ID does not fit the 24-bit handle payload.
func FromWorkerID(id WorkerID) Value {
	if uint32(id)&^handleIDMask != 0 {
		panic("FromWorkerID: id exceeds handle range")
	}
	return Value(nanBits | tagHandle | uint64(uint32(id)|workerMarker))
}

// IsWorkerHandle returns true if v is a worker handle.
func (v Value) IsWorkerHandle() bool {
	return v.IsHandle() && (v.handleID()&(0xFF<<24)) == workerMarker
}

// WorkerID extracts the worker ID from a worker handle.
// Panics if v is not a worker handle.
func (v Value) WorkerID() WorkerID {
	if !v.IsWorkerHandle() {
		panic("Value.WorkerID: not a worker handle")
	}
	return WorkerID(v.handleID() & handleIDMask)
}

// FromFutureID creates a handle Value for a future ID.
// Panics if the ID does not fit the 24-bit handle payload.
func FromFutureID(id FutureID) Value {
	if uint32(id)&^handleIDMask != 0 {
		panic("FromFutureID: id exceeds handle range")
	}
	return Value(nanBits | tagHandle | uint64(uint32(id)|futureMarker))
}

// IsFutureHandle returns true if v is a future handle.
func (v Value) IsFutureHandle() bool {
	return v.IsHandle() && (v.handleID()&(0xFF<<24)) == futureMarker
}

// FutureID extracts the future ID from a future handle.
// Panics if v is not a future handle.
func (v Value) FutureID() FutureID {
	if !v.IsFutureHandle() {
		panic("Value.FutureID: not a future handle")
	}
	return FutureID(v.handleID() & handleIDMask)
}

// ---------------------------------------------------------------------------
// Boolean operations
// ---------------------------------------------------------------------------

// Bool returns v as a bool.
// Panics if v is not true or false.
func (v Value) Bool() bool {
	switch v {
	case True:
		return true
	case False:
		return false
	default:
		panic("Value.Bool: not a boolean")
	}
}

// FromBool creates a Value from a bool.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}
