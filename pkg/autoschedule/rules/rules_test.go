// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rules

import (
	"testing"

	"github.com/gomlx/autoschedule/pkg/autoschedule/ir"
	"github.com/gomlx/autoschedule/pkg/autoschedule/rng"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBase() *ir.BaseModule {
	return ir.NewBaseModule(map[string]*ir.Expr{
		"matmul": ir.NewLeafExpr("matmul", []ir.Handle{"i", "j", "k"}, []int{128, 128, 128}),
	})
}

func TestTileLoopsRuleSplitsWideLoops(t *testing.T) {
	schedule := ir.NewFromModule(newTestBase())
	rnd := rng.New(1)
	rule := &TileLoopsRule{}
	require.NoError(t, rule.Apply(schedule, "matmul", rnd))
	assert.Equal(t, 3, schedule.Descriptor.Len())
}

func TestTileLoopsRuleNotApplicableOnNarrowLoops(t *testing.T) {
	base := ir.NewBaseModule(map[string]*ir.Expr{
		"tiny": ir.NewLeafExpr("tiny", []ir.Handle{"i"}, []int{4}),
	})
	schedule := ir.NewFromModule(base)
	rule := &TileLoopsRule{}
	err := rule.Apply(schedule, "tiny", rng.New(1))
	assert.ErrorIs(t, err, ErrNotApplicable)
}

func TestFuseLoopsRuleRequiresTwoLoops(t *testing.T) {
	base := ir.NewBaseModule(map[string]*ir.Expr{
		"single": ir.NewLeafExpr("single", []ir.Handle{"i"}, []int{128}),
	})
	schedule := ir.NewFromModule(base)
	rule := &FuseLoopsRule{}
	err := rule.Apply(schedule, "single", rng.New(1))
	assert.ErrorIs(t, err, ErrNotApplicable)
}

func TestBindThreadsRuleBindsOuterTwoLoops(t *testing.T) {
	schedule := ir.NewFromModule(newTestBase())
	rule := &BindThreadsRule{}
	require.NoError(t, rule.Apply(schedule, "matmul", rng.New(1)))
	assert.Equal(t, 2, schedule.Descriptor.Len())
	assert.Equal(t, ir.PrimitiveBind, schedule.Descriptor.Steps[0].Primitive)
}

func TestDefaultCatalogPickMutateRuleIsDeterministic(t *testing.T) {
	catalog := DefaultCatalog()
	r1, err1 := catalog.PickMutateRule(rng.New(99))
	r2, err2 := catalog.PickMutateRule(rng.New(99))
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, r1.Name(), r2.Name())
}

func TestRetileRuleChangesFactor(t *testing.T) {
	base := newTestBase()
	schedule := ir.NewFromModule(base)
	require.NoError(t, schedule.Split("matmul", "i", 32, "i_inner"))
	original := schedule.Descriptor.Clone()

	rule := &RetileRule{}
	mutated, err := rule.Apply(base, schedule.Descriptor, rng.New(5))
	require.NoError(t, err)
	assert.True(t, original.Equal(schedule.Descriptor), "input descriptor must be unmodified")
	assert.Equal(t, ir.PrimitiveSplit, mutated.Steps[0].Primitive)
}

func TestRetileRuleNotApplicableWithoutTileSteps(t *testing.T) {
	base := newTestBase()
	schedule := ir.NewFromModule(base)
	rule := &RetileRule{}
	_, err := rule.Apply(base, schedule.Descriptor, rng.New(5))
	assert.ErrorIs(t, err, ErrNotApplicable)
}

func TestToggleFusionRuleAddsThenRemoves(t *testing.T) {
	base := newTestBase()
	schedule := ir.NewFromModule(base)
	rule := &ToggleFusionRule{}

	afterAdd, err := rule.Apply(base, schedule.Descriptor, rng.New(2))
	require.NoError(t, err)
	require.Equal(t, 1, afterAdd.Len())
	assert.Equal(t, ir.PrimitiveFuse, afterAdd.Steps[0].Primitive)

	afterRemove, err := rule.Apply(base, afterAdd, rng.New(2))
	require.NoError(t, err)
	assert.Equal(t, 0, afterRemove.Len())
}

func TestToggleInlineRuleAddsThenRemoves(t *testing.T) {
	base := newTestBase()
	schedule := ir.NewFromModule(base)
	rule := &ToggleInlineRule{}

	afterAdd, err := rule.Apply(base, schedule.Descriptor, rng.New(3))
	require.NoError(t, err)
	require.Equal(t, 1, afterAdd.Len())
	assert.Equal(t, ir.PrimitiveInline, afterAdd.Steps[0].Primitive)

	afterRemove, err := rule.Apply(base, afterAdd, rng.New(3))
	require.NoError(t, err)
	assert.Equal(t, 0, afterRemove.Len())
}

func TestSwapOrderRuleShufflesHandles(t *testing.T) {
	base := newTestBase()
	schedule := ir.NewFromModule(base)
	// Fusing "j" into "i" gives "i" two children ("j" and "k") to reorder.
	require.NoError(t, schedule.Fuse("matmul", "i", "j"))
	require.NoError(t, schedule.Reorder("matmul", "i", []ir.Handle{"k", "j"}))

	rule := &SwapOrderRule{}
	mutated, err := rule.Apply(base, schedule.Descriptor, rng.New(11))
	require.NoError(t, err)
	require.Len(t, mutated.Steps[1].Attr.Handles, 2)
}
