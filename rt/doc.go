// Package rt implements the Loom runtime kernel.
//
// This package contains:
//   - NaN-boxed value representation
//   - Heap object layout and slot access
//   - Worker scheduling with checked ownership transfer
//   - One-shot futures for asynchronous results
//   - Weak reference counters integrated with the collector seam
package rt
