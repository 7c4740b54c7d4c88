// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package searchstate

import "container/heap"

// bestItem is one entry of the internal max-heap: the heap root is always the
// *worst* of the retained states, so Push can evict it in O(log K) when a
// better candidate arrives. seq records insertion order, used to break ties
// between equal-cost states deterministically (earlier insertions are kept).
type bestItem struct {
	state State
	seq   int
}

// bestHeap is a max-heap on cost (worst on top), ties broken by the highest
// seq on top (most recently inserted is evicted first among equal costs, so
// earlier insertions survive a tie).
type bestHeap []bestItem

func (h bestHeap) Len() int { return len(h) }
func (h bestHeap) Less(i, j int) bool {
	if h[i].state.Cost != h[j].state.Cost {
		return h[i].state.Cost > h[j].state.Cost
	}
	return h[i].seq > h[j].seq
}
func (h bestHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *bestHeap) Push(x any)        { *h = append(*h, x.(bestItem)) }
func (h *bestHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// BoundedBestSet retains the K lowest-cost SearchStates seen, with O(log K)
// insertion and eviction, matching spec.md §3's BoundedBestSet contract.
// It is not goroutine-safe: one BoundedBestSet is owned by exactly one search
// session, matching the single-threaded-cooperative-within-a-session
// concurrency model of spec.md §5.
type BoundedBestSet struct {
	capacity int
	heap     bestHeap
	nextSeq  int
}

// NewBoundedBestSet returns an empty set retaining at most capacity states.
// A non-positive capacity means unbounded (no eviction ever occurs).
func NewBoundedBestSet(capacity int) *BoundedBestSet {
	return &BoundedBestSet{capacity: capacity}
}

// Len returns the number of states currently retained.
func (b *BoundedBestSet) Len() int { return b.heap.Len() }

// Push offers a candidate state. If the set is below capacity, it is always
// retained. If the set is at capacity, it is retained only if its cost is
// strictly lower than the current worst retained state, which is then
// evicted. Returns true if state was retained.
func (b *BoundedBestSet) Push(state State) bool {
	item := bestItem{state: state, seq: b.nextSeq}
	b.nextSeq++
	if b.capacity <= 0 || b.heap.Len() < b.capacity {
		heap.Push(&b.heap, item)
		return true
	}
	if b.heap.Len() == 0 {
		return false
	}
	worst := b.heap[0]
	if state.Cost >= worst.state.Cost {
		return false
	}
	b.heap[0] = item
	heap.Fix(&b.heap, 0)
	return true
}

// States returns every retained state, ordered ascending by cost (best
// first), ties broken by insertion order (earliest first).
func (b *BoundedBestSet) States() []State {
	items := make([]bestItem, len(b.heap))
	copy(items, b.heap)
	// Sort ascending by cost, then by seq -- a small copy+sort is simpler and
	// cheap at the sizes BoundedBestSet is used at (spec.md's K is small).
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && less(items[j], items[j-1]); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
	out := make([]State, len(items))
	for i, it := range items {
		out[i] = it.state
	}
	return out
}

func less(a, b bestItem) bool {
	if a.state.Cost != b.state.Cost {
		return a.state.Cost < b.state.Cost
	}
	return a.seq < b.seq
}
