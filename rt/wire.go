package rt

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Graph wire codec
// ---------------------------------------------------------------------------

// cborEncMode uses canonical options so that equal graphs encode to equal
// bytes, which keeps snapshot contents deterministic.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("rt: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Slot kinds in the wire encoding.
const (
	wireNil   uint8 = 0
	wireTrue  uint8 = 1
	wireFalse uint8 = 2
	wireInt   uint8 = 3
	wireFloat uint8 = 4
	wireRef   uint8 = 5
)

// wireSlot is one encoded slot value. Object references are node-table
// indices, so shared structure and cycles survive a round trip.
type wireSlot struct {
	Kind  uint8   `cbor:"k"`
	Int   int64   `cbor:"i,omitempty"`
	Float float64 `cbor:"f,omitempty"`
	Ref   int     `cbor:"r,omitempty"`
}

// wireNode is one encoded object.
type wireNode struct {
	Class string     `cbor:"c"`
	Slots []wireSlot `cbor:"s"`
}

// wireGraph is an encoded object graph: a node table in breadth-first
// order from the root, plus the root slot itself.
type wireGraph struct {
	Nodes []wireNode `cbor:"n,omitempty"`
	Root  wireSlot   `cbor:"r"`
}

func encodeSlot(v Value, index map[*Object]int) (wireSlot, error) {
	switch {
	case v.IsNil():
		return wireSlot{Kind: wireNil}, nil
	case v == True:
		return wireSlot{Kind: wireTrue}, nil
	case v == False:
		return wireSlot{Kind: wireFalse}, nil
	case v.IsSmallInt():
		return wireSlot{Kind: wireInt, Int: v.SmallInt()}, nil
	case v.IsObject():
		return wireSlot{Kind: wireRef, Ref: index[ObjectFromValue(v)]}, nil
	case v.IsHandle():
		return wireSlot{}, &TransferViolation{
			Kind:   ViolationUnsupported,
			Detail: "runtime handles cannot be encoded",
		}
	default:
		return wireSlot{Kind: wireFloat, Float: v.Float64()}, nil
	}
}

func decodeSlot(s wireSlot, nodes []*Object) (Value, error) {
	switch s.Kind {
	case wireNil:
		return Nil, nil
	case wireTrue:
		return True, nil
	case wireFalse:
		return False, nil
	case wireInt:
		if s.Int > MaxSmallInt || s.Int < MinSmallInt {
			return Nil, fmt.Errorf("rt: decode graph: integer %d out of range", s.Int)
		}
		return FromSmallInt(s.Int), nil
	case wireFloat:
		return FromFloat64(s.Float), nil
	case wireRef:
		if s.Ref < 0 || s.Ref >= len(nodes) {
			return Nil, fmt.Errorf("rt: decode graph: node reference %d out of range", s.Ref)
		}
		return nodes[s.Ref].ToValue(), nil
	default:
		return Nil, fmt.Errorf("rt: decode graph: unknown slot kind %d", s.Kind)
	}
}

// EncodeGraph serializes the data graph reachable from root to canonical
// CBOR bytes. Graphs holding worker or future handles cannot be encoded.
func EncodeGraph(h *Heap, root Value) ([]byte, error) {
	g := wireGraph{}

	var order []*Object
	index := make(map[*Object]int)

	if root.IsObject() {
		// Breadth-first over the graph for a deterministic node table.
		queue := []*Object{ObjectFromValue(root)}
		index[queue[0]] = 0
		order = append(order, queue[0])
		for len(queue) > 0 {
			obj := queue[0]
			queue = queue[1:]
			obj.ForEachReference(func(ref *Object) {
				if _, seen := index[ref]; !seen {
					index[ref] = len(order)
					order = append(order, ref)
					queue = append(queue, ref)
				}
			})
		}
	}

	for _, obj := range order {
		node := wireNode{
			Class: obj.class,
			Slots: make([]wireSlot, 0, obj.NumSlots()),
		}
		var slotErr error
		obj.ForEachSlot(func(_ int, v Value) {
			if slotErr != nil {
				return
			}
			s, err := encodeSlot(v, index)
			if err != nil {
				slotErr = err
				return
			}
			node.Slots = append(node.Slots, s)
		})
		if slotErr != nil {
			return nil, slotErr
		}
		g.Nodes = append(g.Nodes, node)
	}

	rootSlot, err := encodeSlot(root, index)
	if err != nil {
		return nil, err
	}
	g.Root = rootSlot

	return cborEncMode.Marshal(g)
}

// DecodeGraph reconstructs an encoded graph into the heap and returns its
// root. The root carries one strong reference owned by the caller;
// interior nodes are kept alive by their in-graph edges.
func DecodeGraph(h *Heap, data []byte) (Value, error) {
	var g wireGraph
	if err := cbor.Unmarshal(data, &g); err != nil {
		return Nil, fmt.Errorf("rt: unmarshal graph: %w", err)
	}

	nodes := make([]*Object, len(g.Nodes))
	for i, n := range g.Nodes {
		nodes[i] = newObject(n.Class, len(n.Slots))
	}

	for i, n := range g.Nodes {
		for j, s := range n.Slots {
			v, err := decodeSlot(s, nodes)
			if err != nil {
				return Nil, err
			}
			nodes[i].SetSlot(j, v)
		}
	}

	root, err := decodeSlot(g.Root, nodes)
	if err != nil {
		return Nil, err
	}

	// Rebuild retain counts from in-graph edges, then register.
	for _, obj := range nodes {
		obj.retains.Store(0)
	}
	for _, obj := range nodes {
		obj.ForEachReference(func(ref *Object) {
			ref.retains.Add(1)
		})
	}
	if root.IsObject() {
		ObjectFromValue(root).retains.Add(1)
	}
	for _, obj := range nodes {
		h.register(obj)
	}

	return root, nil
}

// CopyGraph deep-copies a data-only graph by a canonical CBOR round trip.
// Scalar values copy as themselves; handle values are an unsupported
// category.
func CopyGraph(h *Heap, root Value) (Value, error) {
	if !root.IsObject() {
		if root.IsHandle() {
			return Nil, &TransferViolation{
				Kind:   ViolationUnsupported,
				Detail: "worker and future handles cannot be copied",
			}
		}
		return root, nil
	}
	data, err := EncodeGraph(h, root)
	if err != nil {
		return Nil, err
	}
	return DecodeGraph(h, data)
}
