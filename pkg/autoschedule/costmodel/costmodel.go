// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package costmodel defines the opaque cost-prediction abstraction the search
// treats as a borrowed, side-effect-free oracle, plus a concrete analytical
// model usable without a trained snapshot.
package costmodel

import (
	"math"

	"github.com/gomlx/autoschedule/pkg/autoschedule/ir"
	"github.com/gomlx/autoschedule/pkg/support/exceptions"
)

// Model predicts a scalar cost for a given schedule. Lower is better.
// Implementations must be pure (no mutation of schedule) and deterministic
// for a fixed model snapshot; the search treats Model as an opaque borrow and
// never inspects its internals.
type Model interface {
	// Predict returns the predicted cost of schedule. math.Inf(1) signals the
	// schedule could not be scored (e.g. a shape the model was never trained
	// on) and must be treated as "worse than everything else" by the caller.
	Predict(schedule *ir.IRSchedule) float64
}

// SafePredict calls model.Predict and returns +Inf if it panics, and normalizes
// any NaN result to +Inf, since NaN fails every ordering comparison the search
// relies on (BoundedBestSet, ε-greedy tie-breaking) while +Inf sorts
// consistently to the bottom.
func SafePredict(model Model, schedule *ir.IRSchedule) float64 {
	var cost float64
	if exception := exceptions.Try(func() { cost = model.Predict(schedule) }); exception != nil {
		return math.Inf(1)
	}
	if math.IsNaN(cost) {
		return math.Inf(1)
	}
	return cost
}

// AnalyticalModel is a trained-snapshot-free cost model: it scores a schedule
// from static properties of its IR alone (loop-nest depth, total iteration
// volume, and whether the estimated working set fits an assumed cache budget;
// Bind and Inline steps leave the IR shape unchanged and so do not change the
// score), the same role a simple analytical cost function plays before a learned
// model is available, per spec.md §4.4.
type AnalyticalModel struct {
	// MemoryPenaltyWeight scales the penalty applied per byte of estimated
	// working-set size that exceeds CacheCapacityBytes.
	MemoryPenaltyWeight float64
	// CacheCapacityBytes is the assumed fast-memory budget used to penalize
	// loop nests whose estimated working set does not fit.
	CacheCapacityBytes int64
	// ElementSizeBytes is the assumed size of one scheduled element, used to
	// convert loop extents into a working-set estimate.
	ElementSizeBytes int64
}

// NewAnalyticalModel returns an AnalyticalModel with reasonable defaults for a
// 32KB L1-sized working set of 4-byte elements.
func NewAnalyticalModel() *AnalyticalModel {
	return &AnalyticalModel{
		MemoryPenaltyWeight: 1e-6,
		CacheCapacityBytes:  32 * 1024,
		ElementSizeBytes:    4,
	}
}

// Predict implements Model.
func (m *AnalyticalModel) Predict(schedule *ir.IRSchedule) float64 {
	var total float64
	for _, expr := range schedule.GetModuleExpressions() {
		total += m.predictExpr(expr)
	}
	return total
}

func (m *AnalyticalModel) predictExpr(expr *ir.Expr) float64 {
	handles := expr.LoopHandles()
	if len(handles) == 0 {
		return 0
	}
	// Base cost approximates total work as the product of loop extents (the
	// iteration volume), and penalizes deep nests (instruction overhead) and
	// working sets that exceed the assumed cache budget.
	volume := int64(1)
	for _, h := range handles {
		extent := expr.ExtentOf(h)
		if extent > 0 {
			volume *= int64(extent)
		}
	}
	depth := float64(len(handles))
	workingSet := volume * m.ElementSizeBytes
	cost := float64(volume) * (1.0 + 0.02*depth)
	if workingSet > m.CacheCapacityBytes {
		overflow := float64(workingSet - m.CacheCapacityBytes)
		cost += overflow * m.MemoryPenaltyWeight
	}
	return cost
}
