// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ir implements the schedulable intermediate representation used by the
// auto-scheduling search: a handle-based expression arena (BaseModule/Expr), the
// serializable trace of schedule primitives applied to it (ScheduleDescriptor),
// and the live, mutable schedule state a rule operates on (IRSchedule).
package ir

import (
	"fmt"
	"hash/fnv"
)

// Handle is a stable string identifier for a block or loop within a function's
// expression tree, as used by ScheduleDescriptor steps to refer to IR locations.
type Handle string

// NodeKind is the closed set of IR node kinds an Expr arena entry can be.
type NodeKind int

const (
	// NodeLoop is a single `for` loop over one axis, identified by its Handle.
	NodeLoop NodeKind = iota
	// NodeBlock is a basic block of statements/child loops.
	NodeBlock
	// NodeCompute is a leaf compute statement (e.g. a tensor element assignment).
	NodeCompute
)

func (k NodeKind) String() string {
	switch k {
	case NodeLoop:
		return "Loop"
	case NodeBlock:
		return "Block"
	case NodeCompute:
		return "Compute"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// node is one arena entry. Children are referenced by index into the owning
// Expr's node slice, never by pointer -- this is what makes DeepCopy a simple
// "clone the slice" operation with no aliasing possible between two Exprs.
type node struct {
	kind     NodeKind
	handle   Handle
	extent   int // loop extent, meaningful only for NodeLoop.
	children []int
}

// Expr is one function's body: a DAG of nodes stored in an arena. The root is
// the node no other node lists as a child (see Root).
type Expr struct {
	FuncName string
	nodes    []node
}

// NewLeafExpr builds a minimal single-loop-nest Expr with the given loop handles
// (outermost first), each with the given extent, wrapping one NodeCompute leaf.
// This is the shape every BaseModule function starts in before any rule runs.
func NewLeafExpr(funcName string, loopHandles []Handle, extents []int) *Expr {
	if len(loopHandles) != len(extents) {
		panic(fmt.Sprintf("ir.NewLeafExpr: %d loop handles but %d extents", len(loopHandles), len(extents)))
	}
	e := &Expr{FuncName: funcName}
	leafIdx := e.addNode(node{kind: NodeCompute, handle: "compute"})
	cur := leafIdx
	for ii := len(loopHandles) - 1; ii >= 0; ii-- {
		cur = e.addNode(node{kind: NodeLoop, handle: loopHandles[ii], extent: extents[ii], children: []int{cur}})
	}
	return e
}

func (e *Expr) addNode(n node) int {
	e.nodes = append(e.nodes, n)
	return len(e.nodes) - 1
}

// Root returns the index of the root node (the outermost loop, or the lone
// compute leaf if there are no loops). Split appends its new inner loop at the
// end of the arena, so the root is not necessarily the last arena entry.
func (e *Expr) Root() int {
	if len(e.nodes) == 0 {
		return -1
	}
	isChild := make([]bool, len(e.nodes))
	for _, n := range e.nodes {
		for _, c := range n.children {
			isChild[c] = true
		}
	}
	for idx := len(e.nodes) - 1; idx >= 0; idx-- {
		if !isChild[idx] {
			return idx
		}
	}
	return len(e.nodes) - 1
}

// FindHandle returns the arena index of the node with the given handle, or -1.
func (e *Expr) FindHandle(h Handle) int {
	for idx, n := range e.nodes {
		if n.handle == h {
			return idx
		}
	}
	return -1
}

// LoopHandles returns the handles of every NodeLoop in the expression, in arena
// (creation) order. For an Expr built by NewLeafExpr this is innermost-first,
// i.e. reversed from nesting order; loops added later by Split are appended
// after the original ones.
func (e *Expr) LoopHandles() []Handle {
	var handles []Handle
	for _, n := range e.nodes {
		if n.kind == NodeLoop {
			handles = append(handles, n.handle)
		}
	}
	return handles
}

// ExtentOf returns the loop extent of the node with the given handle, or 0 if
// the handle is unknown or not a loop.
func (e *Expr) ExtentOf(h Handle) int {
	idx := e.FindHandle(h)
	if idx < 0 || e.nodes[idx].kind != NodeLoop {
		return 0
	}
	return e.nodes[idx].extent
}

// ChildrenOf returns the handles of the direct children of the node with the
// given handle, in current order. Returns nil if the handle is unknown.
func (e *Expr) ChildrenOf(h Handle) []Handle {
	idx := e.FindHandle(h)
	if idx < 0 {
		return nil
	}
	return e.handlesOf(e.nodes[idx].children)
}

// RootChildren returns the handles of the direct children of the root node.
func (e *Expr) RootChildren() []Handle {
	root := e.Root()
	if root < 0 {
		return nil
	}
	return e.handlesOf(e.nodes[root].children)
}

// RootHandle returns the handle of the root node, or "" if the Expr is empty.
func (e *Expr) RootHandle() Handle {
	root := e.Root()
	if root < 0 {
		return ""
	}
	return e.nodes[root].handle
}

func (e *Expr) handlesOf(indices []int) []Handle {
	handles := make([]Handle, len(indices))
	for i, idx := range indices {
		handles[i] = e.nodes[idx].handle
	}
	return handles
}

// DeepCopy returns a structurally independent copy of the Expr: a fresh arena,
// so no node is shared (aliased) between the original and the copy.
func (e *Expr) DeepCopy() *Expr {
	cp := &Expr{FuncName: e.FuncName, nodes: make([]node, len(e.nodes))}
	for i, n := range e.nodes {
		cp.nodes[i] = node{
			kind:     n.kind,
			handle:   n.handle,
			extent:   n.extent,
			children: append([]int(nil), n.children...),
		}
	}
	return cp
}

// StructuralHash hashes the arena's shape and contents in arena (topological
// creation) order -- two Exprs produced by replaying the same descriptor on the
// same base module must hash equal, regardless of unrelated handle regeneration.
func (e *Expr) StructuralHash() uint64 {
	h := fnv.New64a()
	for _, n := range e.nodes {
		fmt.Fprintf(h, "%d|%d|%v|", n.kind, n.extent, n.children)
	}
	return h.Sum64()
}

// retile replaces the extent of the loop with the given handle. Used by the Tile
// primitive. Panics (caught at the IRSchedule.Replay boundary) if handle is unknown.
func (e *Expr) retile(h Handle, newExtent int) {
	idx := e.FindHandle(h)
	if idx < 0 {
		panic(fmt.Sprintf("ir.Expr.retile: unknown handle %q", h))
	}
	e.nodes[idx].extent = newExtent
}

// splitLoop splits the loop with the given handle into two nested loops, the outer
// with extent ceil(oldExtent/factor) and the inner with extent `factor`, introducing
// a new handle for the inner loop.
func (e *Expr) splitLoop(h Handle, factor int, innerHandle Handle) {
	idx := e.FindHandle(h)
	if idx < 0 {
		panic(fmt.Sprintf("ir.Expr.splitLoop: unknown handle %q", h))
	}
	old := e.nodes[idx]
	innerIdx := e.addNode(node{kind: NodeLoop, handle: innerHandle, extent: factor, children: old.children})
	outerExtent := (old.extent + factor - 1) / factor
	e.nodes[idx] = node{kind: NodeLoop, handle: h, extent: outerExtent, children: []int{innerIdx}}
}

// fuseLoops appends loopB's children to loopA's and multiplies loopA's extent by
// loopB's. loopB's node is turned in place into a childless NodeBlock tombstone:
// the arena size is unchanged, loopB's handle still resolves to the tombstone,
// and a parent that listed loopB as a child keeps listing it.
func (e *Expr) fuseLoops(a, b Handle) {
	ai, bi := e.FindHandle(a), e.FindHandle(b)
	if ai < 0 || bi < 0 {
		panic(fmt.Sprintf("ir.Expr.fuseLoops: unknown handle(s) %q, %q", a, b))
	}
	e.nodes[ai].children = append(e.nodes[ai].children, e.nodes[bi].children...)
	e.nodes[ai].extent *= e.nodes[bi].extent
	e.nodes[bi] = node{kind: NodeBlock, handle: e.nodes[bi].handle} // orphaned tombstone.
}

// reorderChildren reorders the direct children of the node with the given handle
// according to the given permutation of the handles of its current children.
func (e *Expr) reorderChildren(parent Handle, order []Handle) {
	pi := e.FindHandle(parent)
	if pi < 0 {
		panic(fmt.Sprintf("ir.Expr.reorderChildren: unknown handle %q", parent))
	}
	childByHandle := make(map[Handle]int, len(order))
	for _, ci := range e.nodes[pi].children {
		childByHandle[e.nodes[ci].handle] = ci
	}
	newChildren := make([]int, 0, len(order))
	for _, h := range order {
		ci, ok := childByHandle[h]
		if !ok {
			panic(fmt.Sprintf("ir.Expr.reorderChildren: handle %q is not a child of %q", h, parent))
		}
		newChildren = append(newChildren, ci)
	}
	if len(newChildren) != len(e.nodes[pi].children) {
		panic(fmt.Sprintf("ir.Expr.reorderChildren: order for %q must be a permutation of all children", parent))
	}
	e.nodes[pi].children = newChildren
}

// annotate is a no-op at the structural level: it records that a loop handle was
// bound/annotated (e.g. to a GPU thread axis) without changing the arena shape.
// Bind and Inline are implemented in terms of annotate alone.
func (e *Expr) annotate(h Handle) {
	if e.FindHandle(h) < 0 {
		panic(fmt.Sprintf("ir.Expr.annotate: unknown handle %q", h))
	}
	// Structural no-op by design: annotation is metadata carried on the Step,
	// not on the arena; see ScheduleDescriptor.
}
