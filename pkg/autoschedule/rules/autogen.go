// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rules

import (
	"fmt"

	"github.com/gomlx/autoschedule/pkg/autoschedule/ir"
	"github.com/gomlx/autoschedule/pkg/autoschedule/rng"
)

// tileFactor is the fixed inner-loop extent sketch rules split into. A real
// scheduler would search over a set of candidate factors; for the sketch
// stage (cheap, coverage-oriented) a single representative factor is enough
// to produce a schedule shape worth mutating further during evolution.
const tileFactor = 32

// TileLoopsRule splits every loop wider than tileFactor into an outer/inner
// pair, the inner loop sized at tileFactor. This is the sketch-stage
// equivalent of CINN's TileFirstGeneralTactic.
type TileLoopsRule struct{}

func (r *TileLoopsRule) Name() string { return "TileLoops" }

func (r *TileLoopsRule) Apply(schedule *ir.IRSchedule, funcName string, rnd *rng.Engine) error {
	expr := schedule.GetModuleExpressions()[funcName]
	if expr == nil {
		return fmt.Errorf("rules.TileLoopsRule: unknown function %q", funcName)
	}
	applied := false
	for _, h := range expr.LoopHandles() {
		idx := expr.FindHandle(h)
		if idx < 0 {
			continue
		}
		extent := expr.ExtentOf(h)
		if extent <= tileFactor {
			continue
		}
		inner := ir.Handle(string(h) + "_inner")
		if err := schedule.Split(funcName, h, tileFactor, inner); err != nil {
			return err
		}
		applied = true
	}
	if !applied {
		return ErrNotApplicable
	}
	return nil
}

// FuseLoopsRule fuses the two outermost loops of a function, when there are
// at least two. This coarsens the iteration space sketch rules start from.
type FuseLoopsRule struct{}

func (r *FuseLoopsRule) Name() string { return "FuseLoops" }

func (r *FuseLoopsRule) Apply(schedule *ir.IRSchedule, funcName string, rnd *rng.Engine) error {
	expr := schedule.GetModuleExpressions()[funcName]
	if expr == nil {
		return fmt.Errorf("rules.FuseLoopsRule: unknown function %q", funcName)
	}
	handles := expr.LoopHandles()
	if len(handles) < 2 {
		return ErrNotApplicable
	}
	// LoopHandles is innermost-first; the two outermost are the last two.
	outer, second := handles[len(handles)-1], handles[len(handles)-2]
	return schedule.Fuse(funcName, outer, second)
}

// ReorderLoopsRule reverses the direct children order of the outermost node,
// a cheap way to seed sketches that explore both loop-nest orientations.
type ReorderLoopsRule struct{}

func (r *ReorderLoopsRule) Name() string { return "ReorderLoops" }

func (r *ReorderLoopsRule) Apply(schedule *ir.IRSchedule, funcName string, rnd *rng.Engine) error {
	expr := schedule.GetModuleExpressions()[funcName]
	if expr == nil {
		return fmt.Errorf("rules.ReorderLoopsRule: unknown function %q", funcName)
	}
	rootHandle := expr.RootHandle()
	if rootHandle == "" {
		return ErrNotApplicable
	}
	children := expr.RootChildren()
	if len(children) < 2 {
		return ErrNotApplicable
	}
	reversed := make([]ir.Handle, len(children))
	for i, h := range children {
		reversed[len(children)-1-i] = h
	}
	return schedule.Reorder(funcName, rootHandle, reversed)
}

// BindThreadsRule binds the outermost loop to the "blockIdx.x" axis and, if
// present, the next one to "threadIdx.x" -- the canonical SIMT binding shape
// for a two-level parallel loop nest.
type BindThreadsRule struct{}

func (r *BindThreadsRule) Name() string { return "BindThreads" }

func (r *BindThreadsRule) Apply(schedule *ir.IRSchedule, funcName string, rnd *rng.Engine) error {
	expr := schedule.GetModuleExpressions()[funcName]
	if expr == nil {
		return fmt.Errorf("rules.BindThreadsRule: unknown function %q", funcName)
	}
	handles := expr.LoopHandles()
	if len(handles) == 0 {
		return ErrNotApplicable
	}
	outer := handles[len(handles)-1]
	if err := schedule.Bind(funcName, outer, "blockIdx.x"); err != nil {
		return err
	}
	if len(handles) >= 2 {
		inner := handles[len(handles)-2]
		if err := schedule.Bind(funcName, inner, "threadIdx.x"); err != nil {
			return err
		}
	}
	return nil
}
