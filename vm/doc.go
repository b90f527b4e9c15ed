// Package vm implements the avmcore object model.
//
// This package contains:
//   - Tagged value representation
//   - Namespace-qualified names and their resolution
//   - Inheritance-chained trait tables built at link time
//   - Dynamic objects: slot storage plus an ordered property store
//   - Property dispatch (get/set/call/construct/delete) and super dispatch
//   - Snapshot-based for-in enumeration
//   - Per-object method closure caching
package vm
