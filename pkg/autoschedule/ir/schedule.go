// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"github.com/gomlx/autoschedule/pkg/support/exceptions"
	"github.com/pkg/errors"
)

// ErrReplayFailed wraps any panic raised while replaying a ScheduleDescriptor's
// steps against a BaseModule -- e.g. a step naming a function the module does
// not have, or a handle that does not exist in that function.
var ErrReplayFailed = errors.New("ir: schedule replay failed")

// ErrUnknownFunction is returned when a ScheduleDescriptor step names a function
// that does not exist in the BaseModule being replayed against.
var ErrUnknownFunction = errors.New("ir: unknown function")

// BaseModule is the immutable, un-scheduled starting point for a tuning task:
// one Expr per function to be scheduled. A BaseModule is never mutated once
// built; every search state clones it into a fresh IRSchedule before applying
// any primitive.
type BaseModule struct {
	Funcs map[string]*Expr
}

// NewBaseModule builds a BaseModule from the given named expressions.
func NewBaseModule(funcs map[string]*Expr) *BaseModule {
	cp := make(map[string]*Expr, len(funcs))
	for name, e := range funcs {
		cp[name] = e.DeepCopy()
	}
	return &BaseModule{Funcs: cp}
}

// IRSchedule is the live, mutable schedule state a rule or Replay operates on:
// a deep copy of a BaseModule's functions, plus the descriptor recording every
// primitive applied so far. Two IRSchedules derived from the same BaseModule
// never share arena storage, however many primitives have been applied to each.
type IRSchedule struct {
	base       *BaseModule
	funcs      map[string]*Expr
	Descriptor *ScheduleDescriptor
}

// NewFromModule creates an IRSchedule at the identity schedule (no steps applied)
// for the given BaseModule.
func NewFromModule(base *BaseModule) *IRSchedule {
	funcs := make(map[string]*Expr, len(base.Funcs))
	for name, e := range base.Funcs {
		funcs[name] = e.DeepCopy()
	}
	return &IRSchedule{base: base, funcs: funcs, Descriptor: NewScheduleDescriptor()}
}

// NewFromExprs creates a BaseModule from the given expressions and immediately
// wraps it in a fresh IRSchedule -- a convenience for tests and for sketch
// generation starting from a freshly lowered function body.
func NewFromExprs(funcs map[string]*Expr) *IRSchedule {
	return NewFromModule(NewBaseModule(funcs))
}

// GetModuleExpressions returns the current (post-schedule) expression for every
// function, keyed by function name. The returned Exprs are owned by the
// IRSchedule; callers that need to retain them across further mutation should
// call DeepCopy explicitly (mirrored by DeepCopy on IRSchedule itself).
func (s *IRSchedule) GetModuleExpressions() map[string]*Expr {
	return s.funcs
}

// DeepCopy returns an IRSchedule with the same base module, an independent copy
// of the current function arenas, and a cloned descriptor.
func (s *IRSchedule) DeepCopy() *IRSchedule {
	funcs := make(map[string]*Expr, len(s.funcs))
	for name, e := range s.funcs {
		funcs[name] = e.DeepCopy()
	}
	return &IRSchedule{base: s.base, funcs: funcs, Descriptor: s.Descriptor.Clone()}
}

func (s *IRSchedule) expr(funcName string) (*Expr, error) {
	e, ok := s.funcs[funcName]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFunction, "function %q", funcName)
	}
	return e, nil
}

// Tile changes the extent of the loop with the given handle within funcName,
// recording the primitive on the descriptor.
func (s *IRSchedule) Tile(funcName string, loop Handle, newExtent int) error {
	e, err := s.expr(funcName)
	if err != nil {
		return err
	}
	e.retile(loop, newExtent)
	s.Descriptor.Append(Step{FuncName: funcName, Primitive: PrimitiveTile, Target: loop, Attr: AttrValue{Int: newExtent}})
	return nil
}

// Split breaks the loop with the given handle into two nested loops (outer,
// inner), the inner with extent `factor` and handle `innerHandle`.
func (s *IRSchedule) Split(funcName string, loop Handle, factor int, innerHandle Handle) error {
	e, err := s.expr(funcName)
	if err != nil {
		return err
	}
	e.splitLoop(loop, factor, innerHandle)
	s.Descriptor.Append(Step{FuncName: funcName, Primitive: PrimitiveSplit, Target: loop, Secondary: innerHandle, Attr: AttrValue{Int: factor}})
	return nil
}

// Fuse merges loopB into loopA within funcName.
func (s *IRSchedule) Fuse(funcName string, loopA, loopB Handle) error {
	e, err := s.expr(funcName)
	if err != nil {
		return err
	}
	e.fuseLoops(loopA, loopB)
	s.Descriptor.Append(Step{FuncName: funcName, Primitive: PrimitiveFuse, Target: loopA, Secondary: loopB})
	return nil
}

// Reorder permutes the direct children of the node with the given handle.
func (s *IRSchedule) Reorder(funcName string, parent Handle, order []Handle) error {
	e, err := s.expr(funcName)
	if err != nil {
		return err
	}
	e.reorderChildren(parent, order)
	s.Descriptor.Append(Step{FuncName: funcName, Primitive: PrimitiveReorder, Target: parent, Attr: AttrValue{Handles: append([]Handle(nil), order...)}})
	return nil
}

// Bind annotates the loop with the given handle as bound to the given execution
// axis (e.g. "threadIdx.x"), for backends that target SIMT hardware.
func (s *IRSchedule) Bind(funcName string, loop Handle, axis string) error {
	e, err := s.expr(funcName)
	if err != nil {
		return err
	}
	e.annotate(loop)
	s.Descriptor.Append(Step{FuncName: funcName, Primitive: PrimitiveBind, Target: loop, Attr: AttrValue{Text: axis}})
	return nil
}

// Inline marks the loop with the given handle as inlined into its consumer.
func (s *IRSchedule) Inline(funcName string, loop Handle) error {
	e, err := s.expr(funcName)
	if err != nil {
		return err
	}
	e.annotate(loop)
	s.Descriptor.Append(Step{FuncName: funcName, Primitive: PrimitiveInline, Target: loop})
	return nil
}

// apply dispatches one step against the receiver's live arenas, without
// recording it again on the descriptor (used by Replay, which replaces the
// descriptor wholesale rather than rebuilding it step by step).
func (s *IRSchedule) apply(step Step) {
	e, ok := s.funcs[step.FuncName]
	if !ok {
		exceptions.Panicf("ir: unknown function %q in schedule step", step.FuncName)
	}
	switch step.Primitive {
	case PrimitiveTile:
		e.retile(step.Target, step.Attr.Int)
	case PrimitiveSplit:
		e.splitLoop(step.Target, step.Attr.Int, step.Secondary)
	case PrimitiveFuse:
		e.fuseLoops(step.Target, step.Secondary)
	case PrimitiveReorder:
		e.reorderChildren(step.Target, step.Attr.Handles)
	case PrimitiveBind:
		e.annotate(step.Target)
	case PrimitiveInline:
		e.annotate(step.Target)
	default:
		exceptions.Panicf("ir: unknown primitive %v in schedule step", step.Primitive)
	}
}

// Replay rebuilds an IRSchedule from base, applying every step of descriptor in
// order. It is the canonical way to materialize a ScheduleDescriptor fetched
// from a Database (or produced by crossover/mutation) back into live IR: any
// internal panic raised while applying a step (unknown handle, dangling
// reference left by an earlier Fuse, ...) is converted into an error wrapping
// ErrReplayFailed rather than propagating as a panic, since a malformed
// descriptor reaching this point reflects a bug in a rule, not a programming
// error the caller should crash on.
func Replay(base *BaseModule, descriptor *ScheduleDescriptor) (*IRSchedule, error) {
	schedule := NewFromModule(base)
	err := exceptions.TryCatch[error](func() {
		for _, step := range descriptor.Steps {
			schedule.apply(step)
		}
	})
	if err != nil {
		return nil, errors.Wrapf(ErrReplayFailed, "%v", err)
	}
	schedule.Descriptor = descriptor.Clone()
	return schedule, nil
}
