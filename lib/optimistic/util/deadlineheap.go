// Package util
//
// This file provides the priority queue behind the auto-rollback scheduler.
//
// DeadlineHeap combines a binary min-heap ordered by deadline with a map from
// key to heap slot. The scheduler needs both views:
//
//   - the earliest deadline, to know how long to sleep (Peek)
//   - direct access by key, because a record resolved before its deadline
//     must drop its pending rollback (Remove)
//
// Time Complexity:
//   - O(log n) for Schedule, Remove and PopDue per item
//   - O(1) for Peek, Contains and Deadline
//
// Concurrency Considerations:
//
//	DeadlineHeap is not thread-safe. The scheduler guards it with its own mutex.
//
// Example usage:
//
//	h := NewDeadlineHeap[string]()
//	h.Schedule("a", time.Now().Add(time.Second))
//	h.Schedule("b", time.Now().Add(50*time.Millisecond))
//
//	next, _, ok := h.Peek() // "b"
//	h.Remove("a")
//	due := h.PopDue(time.Now())
package util

import (
	"container/heap"
	"fmt"
	"time"
)

// entry is one scheduled deadline inside the heap
type entry[K comparable] struct {
	Key      K         // Identifier of the scheduled item
	Deadline time.Time // When the item becomes due
	index    int       // Slot in the heap, maintained by the heap package
}

func (e *entry[K]) String() string {
	return fmt.Sprintf("{Key: %v, Deadline: %s}", e.Key, e.Deadline.Format(time.RFC3339Nano))
}

// DeadlineHeap is a min-heap of deadlines with key based access.
type DeadlineHeap[K comparable] struct {
	items []*entry[K]     // The actual heap slice
	index map[K]*entry[K] // Map for O(1) access by key
}

// NewDeadlineHeap creates an empty heap.
func NewDeadlineHeap[K comparable]() *DeadlineHeap[K] {
	return &DeadlineHeap[K]{
		items: make([]*entry[K], 0),
		index: make(map[K]*entry[K]),
	}
}

// --------------------------------------------------------------------------
// heap.Interface (use the exported helpers below instead)
// --------------------------------------------------------------------------

func (h *DeadlineHeap[K]) Len() int { return len(h.items) }

func (h *DeadlineHeap[K]) Less(i, j int) bool {
	return h.items[i].Deadline.Before(h.items[j].Deadline)
}

func (h *DeadlineHeap[K]) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *DeadlineHeap[K]) Push(x any) {
	e := x.(*entry[K])
	e.index = len(h.items)
	h.items = append(h.items, e)
	h.index[e.Key] = e
}

func (h *DeadlineHeap[K]) Pop() any {
	old := h.items
	n := len(old)
	e := old[n-1]
	old[n-1] = nil // avoid memory leak
	e.index = -1
	h.items = old[:n-1]
	delete(h.index, e.Key)
	return e
}

// --------------------------------------------------------------------------
// Key based operations
// --------------------------------------------------------------------------

// Schedule adds a deadline for key, or moves the existing one.
func (h *DeadlineHeap[K]) Schedule(key K, deadline time.Time) {
	if e, ok := h.index[key]; ok {
		e.Deadline = deadline
		heap.Fix(h, e.index)
		return
	}
	heap.Push(h, &entry[K]{Key: key, Deadline: deadline})
}

// Remove drops the deadline for key. It reports the removed deadline and
// whether the key was scheduled at all.
func (h *DeadlineHeap[K]) Remove(key K) (time.Time, bool) {
	e, ok := h.index[key]
	if !ok {
		return time.Time{}, false
	}
	heap.Remove(h, e.index)
	return e.Deadline, true
}

// Peek returns the key with the earliest deadline without removing it.
func (h *DeadlineHeap[K]) Peek() (K, time.Time, bool) {
	if len(h.items) == 0 {
		var zero K
		return zero, time.Time{}, false
	}
	return h.items[0].Key, h.items[0].Deadline, true
}

// PopDue removes and returns every key whose deadline is not after now,
// earliest first.
func (h *DeadlineHeap[K]) PopDue(now time.Time) []K {
	var due []K
	for len(h.items) > 0 && !h.items[0].Deadline.After(now) {
		e := heap.Pop(h).(*entry[K])
		due = append(due, e.Key)
	}
	return due
}

// Contains reports whether key is scheduled.
func (h *DeadlineHeap[K]) Contains(key K) bool {
	_, ok := h.index[key]
	return ok
}

// Deadline returns the scheduled deadline of key.
func (h *DeadlineHeap[K]) Deadline(key K) (time.Time, bool) {
	e, ok := h.index[key]
	if !ok {
		return time.Time{}, false
	}
	return e.Deadline, true
}

// Clear drops every scheduled deadline.
func (h *DeadlineHeap[K]) Clear() {
	for i := range h.items {
		h.items[i] = nil
	}
	h.items = h.items[:0]
	h.index = make(map[K]*entry[K])
}
