package rt

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeScalarRoot(t *testing.T) {
	h := NewHeap()

	for _, v := range []Value{Nil, True, False, FromSmallInt(-17), FromFloat64(2.5)} {
		data, err := EncodeGraph(h, v)
		if err != nil {
			t.Fatalf("encode %v: %v", v, err)
		}
		back, err := DecodeGraph(h, data)
		if err != nil {
			t.Fatalf("decode %v: %v", v, err)
		}
		if back != v {
			t.Errorf("roundtrip of %v produced %v", v, back)
		}
	}
}

func TestEncodeDecodeObjectGraph(t *testing.T) {
	h := NewHeap()
	obj := h.Alloc("Point", 2)
	h.SetSlot(obj, 0, FromSmallInt(3))
	h.SetSlot(obj, 1, FromFloat64(4.5))

	data, err := EncodeGraph(h, obj.ToValue())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	root, err := DecodeGraph(h, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	back := MustObjectFromValue(root)
	if back == obj {
		t.Fatal("decode should build a fresh object")
	}
	if back.Class() != "Point" {
		t.Errorf("Class() = %q, want %q", back.Class(), "Point")
	}
	if back.GetSlot(0).SmallInt() != 3 {
		t.Error("slot 0 mismatch")
	}
	if back.GetSlot(1).Float64() != 4.5 {
		t.Error("slot 1 mismatch")
	}
	if !h.Contains(back) {
		t.Error("decoded object should be registered with the heap")
	}
	if h.RetainCount(back) != 1 {
		t.Errorf("decoded root RetainCount = %d, want 1", h.RetainCount(back))
	}
}

func TestEncodeDecodeCycle(t *testing.T) {
	h := NewHeap()
	a := h.Alloc("A", 1)
	b := h.Alloc("B", 1)
	h.SetSlot(a, 0, b.ToValue())
	h.SetSlot(b, 0, a.ToValue())
	h.Release(b)

	data, err := EncodeGraph(h, a.ToValue())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	root, err := DecodeGraph(h, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	ra := MustObjectFromValue(root)
	rb := MustObjectFromValue(ra.GetSlot(0))
	if MustObjectFromValue(rb.GetSlot(0)) != ra {
		t.Error("cycle should survive the roundtrip")
	}
	if ra.Class() != "A" || rb.Class() != "B" {
		t.Error("class names lost in roundtrip")
	}
}

func TestEncodeDecodeSharedStructure(t *testing.T) {
	h := NewHeap()
	root := h.Alloc("Pair", 2)
	shared := h.Alloc("Shared", 1)
	h.SetSlot(shared, 0, FromSmallInt(9))
	h.SetSlot(root, 0, shared.ToValue())
	h.SetSlot(root, 1, shared.ToValue())
	h.Release(shared)

	data, err := EncodeGraph(h, root.ToValue())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	back, err := DecodeGraph(h, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	r := MustObjectFromValue(back)
	left := MustObjectFromValue(r.GetSlot(0))
	right := MustObjectFromValue(r.GetSlot(1))
	if left != right {
		t.Error("shared structure should decode to one object, not two")
	}
	if left.GetSlot(0).SmallInt() != 9 {
		t.Error("shared node slot mismatch")
	}
}

func TestEncodeDeterministic(t *testing.T) {
	h := NewHeap()
	obj := h.Alloc("Point", 2)
	h.SetSlot(obj, 0, FromSmallInt(1))
	h.SetSlot(obj, 1, FromSmallInt(2))

	first, err := EncodeGraph(h, obj.ToValue())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	second, err := EncodeGraph(h, obj.ToValue())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("equal graphs should encode to equal bytes")
	}
}

func TestEncodeRejectsHandles(t *testing.T) {
	h := NewHeap()
	obj := h.Alloc("Holder", 1)
	h.SetSlot(obj, 0, FromWorkerID(2))

	_, err := EncodeGraph(h, obj.ToValue())
	v := AsTransferViolation(err)
	if v == nil || v.Kind != ViolationUnsupported {
		t.Fatalf("want ViolationUnsupported, got %v", err)
	}
}

func TestDecodeRejectsBadRef(t *testing.T) {
	h := NewHeap()
	// Root reference with no node table.
	data, err := cborEncMode.Marshal(wireGraph{
		Root: wireSlot{Kind: wireRef, Ref: 5},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if _, err := DecodeGraph(h, data); err == nil {
		t.Error("out-of-range node reference should fail decode")
	}
}

func TestDecodeRejectsOutOfRangeInt(t *testing.T) {
	h := NewHeap()
	// An integer outside the 48-bit boxed range, as a tampered blob
	// could carry.
	data, err := cborEncMode.Marshal(wireGraph{
		Root: wireSlot{Kind: wireInt, Int: MaxSmallInt + 1},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if _, err := DecodeGraph(h, data); err == nil {
		t.Error("out-of-range integer should fail decode, not panic")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	h := NewHeap()
	if _, err := DecodeGraph(h, []byte{0xff, 0x00, 0x12}); err == nil {
		t.Error("garbage bytes should fail decode")
	}
}

func TestCopyGraphIsolatedReplica(t *testing.T) {
	h := NewHeap()
	head := buildChain(h, 4)

	out, err := CopyGraph(h, head.ToValue())
	if err != nil {
		t.Fatalf("copy: %v", err)
	}

	// The replica must itself pass the isolation check.
	if err := CheckIsolated(h, out); err != nil {
		t.Errorf("replica should be isolated: %v", err)
	}

	// Mutating the replica must not touch the original.
	replica := MustObjectFromValue(out)
	h.SetSlot(replica, 0, FromSmallInt(999))
	if head.GetSlot(0).SmallInt() == 999 {
		t.Error("replica mutation leaked into the original")
	}
}

func TestCopyGraphScalar(t *testing.T) {
	h := NewHeap()

	out, err := CopyGraph(h, FromSmallInt(5))
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if out.SmallInt() != 5 {
		t.Error("scalar should copy as itself")
	}

	_, err = CopyGraph(h, FromFutureID(1))
	v := AsTransferViolation(err)
	if v == nil || v.Kind != ViolationUnsupported {
		t.Fatalf("want ViolationUnsupported for handle, got %v", err)
	}
}
