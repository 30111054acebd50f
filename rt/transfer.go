package rt

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Transfer checker
// ---------------------------------------------------------------------------

// TransferMode selects how strictly a scheduled value is validated before
// it crosses a worker boundary.
type TransferMode int

const (
	// TransferChecked verifies the graph is isolated and detaches it from
	// the sender's ownership domain.
	TransferChecked TransferMode = iota

	// TransferUnsafe skips verification and trusts the caller. A violated
	// assumption here is undefined behavior, not a recoverable error.
	TransferUnsafe

	// TransferCopy deep-copies a data-only graph; the original stays with
	// the sender and the receiver gets a detached replica.
	TransferCopy
)

// String returns a short name for the mode.
func (m TransferMode) String() string {
	switch m {
	case TransferChecked:
		return "checked"
	case TransferUnsafe:
		return "unsafe"
	case TransferCopy:
		return "copy"
	default:
		return "unknown"
	}
}

// reachableSet collects every object reachable from root and counts the
// in-graph edges into each node. Handle-valued slots abort the walk: live
// worker or future state cannot be moved between threads.
func reachableSet(root *Object) (map[*Object]int, *TransferViolation) {
	edges := make(map[*Object]int)
	edges[root] = 0

	stack := []*Object{root}
	for len(stack) > 0 {
		obj := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var bad *TransferViolation
		obj.ForEachSlot(func(_ int, v Value) {
			if bad != nil {
				return
			}
			if v.IsHandle() {
				bad = &TransferViolation{
					Kind:   ViolationUnsupported,
					Detail: fmt.Sprintf("%s object holds a runtime handle", obj.class),
				}
				return
			}
			if !v.IsObject() {
				return
			}
			ref := ObjectFromValue(v)
			if _, seen := edges[ref]; !seen {
				edges[ref] = 0
				stack = append(stack, ref)
			}
			edges[ref]++
		})
		if bad != nil {
			return nil, bad
		}
	}
	return edges, nil
}

// CheckIsolated verifies the object graph reachable from root is isolated:
// reachable from exactly one external reference (the producer's), with no
// node retained from outside the graph and no node claimed by another
// in-flight transfer.
//
// A node is externally entangled when its retain count exceeds the number
// of in-graph edges into it; the root is allowed exactly one surplus
// reference. Non-object roots (nil, integers, floats, booleans) pass
// trivially; handle roots are an unsupported value category.
func CheckIsolated(h *Heap, root Value) error {
	if root.IsHandle() {
		return &TransferViolation{
			Kind:   ViolationUnsupported,
			Detail: "worker and future handles cannot be transferred",
		}
	}
	if !root.IsObject() {
		return nil
	}

	rootObj := ObjectFromValue(root)
	edges, violation := reachableSet(rootObj)
	if violation != nil {
		return violation
	}

	for obj, inGraph := range edges {
		if obj.owner.Load() == ownerInFlight {
			return &TransferViolation{
				Kind:   ViolationNotIsolated,
				Detail: fmt.Sprintf("%s object is claimed by another in-flight transfer", obj.class),
			}
		}
		allowed := int32(inGraph)
		if obj == rootObj {
			allowed++ // the producer's own reference
		}
		if obj.retains.Load() > allowed {
			return &TransferViolation{
				Kind:   ViolationNotIsolated,
				Detail: fmt.Sprintf("%s object is retained from outside the graph", obj.class),
			}
		}
	}
	return nil
}

// detachGraph moves every node reachable from root into the given
// ownership domain. Handle slots are skipped: unsafe-mode graphs may
// carry them, and ownership only applies to objects.
func detachGraph(root Value, owner int32) {
	if !root.IsObject() {
		return
	}

	seen := make(map[*Object]struct{})
	stack := []*Object{ObjectFromValue(root)}
	seen[stack[0]] = struct{}{}

	for len(stack) > 0 {
		obj := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		obj.owner.Store(owner)

		obj.ForEachReference(func(ref *Object) {
			if _, ok := seen[ref]; !ok {
				seen[ref] = struct{}{}
				stack = append(stack, ref)
			}
		})
	}
}

// transferOut validates a value leaving an ownership domain per mode and
// returns the value the receiver will see. Checked mode detaches the graph
// (marked in flight until the receiving side claims it); copy mode hands
// over a replica; unsafe mode passes the value through untouched.
func transferOut(h *Heap, mode TransferMode, v Value) (Value, error) {
	switch mode {
	case TransferUnsafe:
		return v, nil
	case TransferChecked:
		if err := CheckIsolated(h, v); err != nil {
			return Nil, err
		}
		detachGraph(v, ownerInFlight)
		return v, nil
	case TransferCopy:
		return CopyGraph(h, v)
	default:
		panic(fmt.Sprintf("transferOut: unknown transfer mode %d", mode))
	}
}

// claimGraph attaches an in-flight graph to its receiving domain.
func claimGraph(v Value, owner int32) {
	detachGraph(v, owner)
}
