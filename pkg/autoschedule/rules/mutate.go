// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rules

import (
	"github.com/gomlx/autoschedule/pkg/autoschedule/ir"
	"github.com/gomlx/autoschedule/pkg/autoschedule/rng"
	"github.com/gomlx/autoschedule/pkg/support/xslices"
)

// retileFactorChoices are the candidate inner-loop extents RetileRule samples
// from. A fixed small set keeps the search space discrete and finite, matching
// the sketch stage's own fixed tileFactor.
var retileFactorChoices = []int{8, 16, 32, 64}

// RetileRule picks a random Tile or Split step already present in the
// descriptor and resamples its factor, exploring the tiling dimension of the
// search space without touching loop structure elsewhere.
type RetileRule struct{}

func (r *RetileRule) Name() string    { return "Retile" }
func (r *RetileRule) Weight() float64 { return 3.0 }

func (r *RetileRule) Apply(base *ir.BaseModule, descriptor *ir.ScheduleDescriptor, rnd *rng.Engine) (*ir.ScheduleDescriptor, error) {
	candidates := stepIndicesOf(descriptor, ir.PrimitiveTile, ir.PrimitiveSplit)
	if len(candidates) == 0 {
		return nil, ErrNotApplicable
	}
	idx, err := pick(rnd, candidates)
	if err != nil {
		return nil, err
	}
	factorIdx, err := rnd.SampleUniformInt(0, len(retileFactorChoices))
	if err != nil {
		return nil, err
	}
	step := descriptor.Steps[idx]
	step.Attr.Int = retileFactorChoices[factorIdx]
	return descriptor.WithStepReplaced(idx, step), nil
}

// SwapOrderRule picks a random Reorder step and shuffles its handle
// permutation, exploring loop-order variations of an already-reordered nest.
type SwapOrderRule struct{}

func (r *SwapOrderRule) Name() string    { return "SwapOrder" }
func (r *SwapOrderRule) Weight() float64 { return 2.0 }

func (r *SwapOrderRule) Apply(base *ir.BaseModule, descriptor *ir.ScheduleDescriptor, rnd *rng.Engine) (*ir.ScheduleDescriptor, error) {
	candidates := stepIndicesOf(descriptor, ir.PrimitiveReorder)
	if len(candidates) == 0 {
		return nil, ErrNotApplicable
	}
	idx, err := pick(rnd, candidates)
	if err != nil {
		return nil, err
	}
	step := descriptor.Steps[idx]
	handles := append([]ir.Handle(nil), step.Attr.Handles...)
	if len(handles) < 2 {
		return nil, ErrNotApplicable
	}
	// Fisher-Yates shuffle driven by the deterministic engine.
	for i := len(handles) - 1; i > 0; i-- {
		j, err := rnd.SampleUniformInt(0, i+1)
		if err != nil {
			return nil, err
		}
		handles[i], handles[j] = handles[j], handles[i]
	}
	step.Attr.Handles = handles
	return descriptor.WithStepReplaced(idx, step), nil
}

// ToggleFusionRule flips fusion on or off for one pair of sibling loops of one
// function: if a Fuse step already exists, it is removed (un-fusing); if
// none exists, the two outermost loops of the first multi-loop function found
// are fused. This requires replaying the descriptor so far, since adding a
// fusion needs to know the current (post-prior-steps) loop handles.
type ToggleFusionRule struct{}

func (r *ToggleFusionRule) Name() string    { return "ToggleFusion" }
func (r *ToggleFusionRule) Weight() float64 { return 1.5 }

func (r *ToggleFusionRule) Apply(base *ir.BaseModule, descriptor *ir.ScheduleDescriptor, rnd *rng.Engine) (*ir.ScheduleDescriptor, error) {
	fuseSteps := stepIndicesOf(descriptor, ir.PrimitiveFuse)
	if len(fuseSteps) > 0 {
		idx, err := pick(rnd, fuseSteps)
		if err != nil {
			return nil, err
		}
		return descriptor.WithStepsRemoved(idx), nil
	}

	schedule, err := ir.Replay(base, descriptor)
	if err != nil {
		return nil, err
	}
	funcs := schedule.GetModuleExpressions()
	for _, funcName := range xslices.SortedKeys(funcs) {
		expr := funcs[funcName]
		handles := expr.LoopHandles()
		if len(handles) < 2 {
			continue
		}
		outer, second := handles[len(handles)-1], handles[len(handles)-2]
		if err := schedule.Fuse(funcName, outer, second); err != nil {
			return nil, err
		}
		return schedule.Descriptor, nil
	}
	return nil, ErrNotApplicable
}

// ToggleInlineRule flips inlining on or off for one loop: if an Inline step
// exists, it is removed; otherwise the innermost loop of the first function
// that has one is inlined.
type ToggleInlineRule struct{}

func (r *ToggleInlineRule) Name() string    { return "ToggleInline" }
func (r *ToggleInlineRule) Weight() float64 { return 1.0 }

func (r *ToggleInlineRule) Apply(base *ir.BaseModule, descriptor *ir.ScheduleDescriptor, rnd *rng.Engine) (*ir.ScheduleDescriptor, error) {
	inlineSteps := stepIndicesOf(descriptor, ir.PrimitiveInline)
	if len(inlineSteps) > 0 {
		idx, err := pick(rnd, inlineSteps)
		if err != nil {
			return nil, err
		}
		return descriptor.WithStepsRemoved(idx), nil
	}

	schedule, err := ir.Replay(base, descriptor)
	if err != nil {
		return nil, err
	}
	funcs := schedule.GetModuleExpressions()
	for _, funcName := range xslices.SortedKeys(funcs) {
		expr := funcs[funcName]
		handles := expr.LoopHandles()
		if len(handles) == 0 {
			continue
		}
		if err := schedule.Inline(funcName, handles[0]); err != nil {
			return nil, err
		}
		return schedule.Descriptor, nil
	}
	return nil, ErrNotApplicable
}

// stepIndicesOf returns the indices of every step in descriptor whose
// Primitive is one of the given kinds, in descriptor order.
func stepIndicesOf(descriptor *ir.ScheduleDescriptor, kinds ...ir.Primitive) []int {
	var out []int
	for i, s := range descriptor.Steps {
		for _, k := range kinds {
			if s.Primitive == k {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// pick draws one element of candidates uniformly at random.
func pick(rnd *rng.Engine, candidates []int) (int, error) {
	i, err := rnd.SampleUniformInt(0, len(candidates))
	if err != nil {
		return 0, err
	}
	return candidates[i], nil
}
