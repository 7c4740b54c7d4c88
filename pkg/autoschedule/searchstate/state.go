// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package searchstate implements the per-candidate SearchState, the
// fixed-capacity BoundedBestSet that retains the K lowest-cost states seen,
// and the insert-only VisitedSet used to dedup candidates across generations
// within one search session.
package searchstate

import (
	"math"

	"github.com/gomlx/autoschedule/pkg/autoschedule/ir"
)

// State pairs a live schedule with its cost. Cost uses math.NaN() as the
// "unscored" sentinel, distinct from the cost model's own +Inf "unscorable"
// sentinel: NaN means "not yet scored by CostModel", +Inf means "scored and
// rejected as unusable".
type State struct {
	Schedule *ir.IRSchedule
	Cost     float64
}

// NewUnscoredState wraps schedule with the unscored (NaN) cost sentinel.
func NewUnscoredState(schedule *ir.IRSchedule) State {
	return State{Schedule: schedule, Cost: math.NaN()}
}

// IsScored reports whether Cost has been set by a CostModel.
func (s State) IsScored() bool {
	return !math.IsNaN(s.Cost)
}

// Hash delegates to the descriptor hash: two states replaying the same steps
// against the same base module hash equal regardless of arena regeneration.
func (s State) Hash() uint64 {
	return s.Schedule.Descriptor.Hash()
}

// Equal delegates to descriptor equality.
func (s State) Equal(other State) bool {
	return s.Schedule.Descriptor.Equal(other.Schedule.Descriptor)
}
