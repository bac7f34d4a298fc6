// Package util provides helper data structures for the optimistic engine.
//
// The package contains:
//   - deadlineheap: a min-heap of deadlines with key based access, used by the
//     auto-rollback scheduler to sleep until the next due record and to cancel
//     the rollback of a record that was resolved early
package util
