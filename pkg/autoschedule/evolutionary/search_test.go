// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package evolutionary

import (
	"sort"
	"testing"

	"github.com/gomlx/autoschedule/pkg/autoschedule/costmodel"
	"github.com/gomlx/autoschedule/pkg/autoschedule/database"
	"github.com/gomlx/autoschedule/pkg/autoschedule/ir"
	"github.com/gomlx/autoschedule/pkg/autoschedule/registry"
	"github.com/gomlx/autoschedule/pkg/autoschedule/searchstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() (*registry.Registry, registry.TuneTask) {
	reg := registry.NewRegistry()
	base := ir.NewBaseModule(map[string]*ir.Expr{
		"matmul": ir.NewLeafExpr("matmul", []ir.Handle{"i", "j", "k"}, []int{128, 128, 128}),
	})
	reg.Register("matmul_task", base)
	return reg, registry.TuneTask{Key: "matmul_task", Target: registry.TargetDescriptor{Arch: "x86_64", NumCores: 8}}
}

func TestSearchBestsReturnsAscendingCostOrder(t *testing.T) {
	reg, task := newTestRegistry()
	model := costmodel.NewAnalyticalModel()
	db := database.NewMemoryDatabase()
	search, err := New(task, model, db, reg, 42)
	require.NoError(t, err)

	opts := TuningOptions{InitPopulationNum: 4, PickDatabaseTopK: 0, CrossOverNum: 0, NumSamplesPerIteration: 2, EpsGreedy: 0.0}
	states, err := search.SearchBests(opts)
	require.NoError(t, err)
	require.Len(t, states, 2)
	for _, st := range states {
		assert.True(t, st.IsScored())
	}
	assert.LessOrEqual(t, states[0].Cost, states[1].Cost)
}

func TestSearchBestsSeedsFromDatabase(t *testing.T) {
	reg, task := newTestRegistry()
	model := costmodel.NewAnalyticalModel()
	db := database.NewMemoryDatabase()

	lowCost := ir.NewScheduleDescriptor().Append(ir.Step{FuncName: "matmul", Primitive: ir.PrimitiveTile, Target: "i", Attr: ir.AttrValue{Int: 8}})
	require.NoError(t, db.Add("matmul_task", database.Record{Descriptor: lowCost, Cost: 1.0}))
	highCost := ir.NewScheduleDescriptor().Append(ir.Step{FuncName: "matmul", Primitive: ir.PrimitiveTile, Target: "i", Attr: ir.AttrValue{Int: 4}})
	require.NoError(t, db.Add("matmul_task", database.Record{Descriptor: highCost, Cost: 3.0}))

	search, err := New(task, model, db, reg, 42)
	require.NoError(t, err)
	opts := TuningOptions{InitPopulationNum: 4, PickDatabaseTopK: 2, CrossOverNum: 0, NumSamplesPerIteration: 2, EpsGreedy: 0.0}
	states, err := search.SearchBests(opts)
	require.NoError(t, err)
	require.NotEmpty(t, states)
}

func TestCrossOverArityMismatch(t *testing.T) {
	reg, task := newTestRegistry()
	search, err := New(task, costmodel.NewAnalyticalModel(), database.NewMemoryDatabase(), reg, 7)
	require.NoError(t, err)

	schedule1 := ir.NewFromExprs(map[string]*ir.Expr{"f": ir.NewLeafExpr("f", []ir.Handle{"i"}, []int{8})})
	schedule2 := ir.NewFromExprs(map[string]*ir.Expr{
		"f": ir.NewLeafExpr("f", []ir.Handle{"i"}, []int{8}),
		"g": ir.NewLeafExpr("g", []ir.Handle{"i"}, []int{8}),
	})
	_, err = search.CrossOver(
		searchstate.NewUnscoredState(schedule1),
		searchstate.NewUnscoredState(schedule2),
	)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCrossOverMultiFunctionDeterministic(t *testing.T) {
	reg, task := newTestRegistry()

	newParents := func() (searchstate.State, searchstate.State) {
		schedule1 := ir.NewFromExprs(map[string]*ir.Expr{
			"a": ir.NewLeafExpr("a", []ir.Handle{"i"}, []int{8}),
			"b": ir.NewLeafExpr("b", []ir.Handle{"i"}, []int{8}),
			"c": ir.NewLeafExpr("c", []ir.Handle{"i"}, []int{8}),
			"d": ir.NewLeafExpr("d", []ir.Handle{"i"}, []int{8}),
		})
		schedule2 := ir.NewFromExprs(map[string]*ir.Expr{
			"a": ir.NewLeafExpr("a", []ir.Handle{"i"}, []int{16}),
			"b": ir.NewLeafExpr("b", []ir.Handle{"i"}, []int{16}),
			"c": ir.NewLeafExpr("c", []ir.Handle{"i"}, []int{16}),
			"d": ir.NewLeafExpr("d", []ir.Handle{"i"}, []int{16}),
		})
		return searchstate.NewUnscoredState(schedule1), searchstate.NewUnscoredState(schedule2)
	}

	childSignature := func(child searchstate.State) []uint64 {
		funcs := child.Schedule.GetModuleExpressions()
		names := make([]string, 0, len(funcs))
		for name := range funcs {
			names = append(names, name)
		}
		sort.Strings(names)
		sig := make([]uint64, len(names))
		for i, name := range names {
			sig[i] = funcs[name].StructuralHash()
		}
		return sig
	}

	var signatures [][]uint64
	for i := 0; i < 5; i++ {
		search, err := New(task, costmodel.NewAnalyticalModel(), database.NewMemoryDatabase(), reg, 99)
		require.NoError(t, err)
		s1, s2 := newParents()
		child, err := search.CrossOver(s1, s2)
		require.NoError(t, err)
		signatures = append(signatures, childSignature(child))
	}
	for i := 1; i < len(signatures); i++ {
		assert.Equal(t, signatures[0], signatures[i],
			"CrossOver must deterministically assign the same per-function parent picks given the same seed, "+
				"regardless of map iteration order")
	}
}

func TestEvolveEmptyPopulation(t *testing.T) {
	reg, task := newTestRegistry()
	search, err := New(task, costmodel.NewAnalyticalModel(), database.NewMemoryDatabase(), reg, 1)
	require.NoError(t, err)

	states, err := search.Evolve(nil, 5, 3)
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestEvolveSinglePopulationSkipsCrossover(t *testing.T) {
	reg, task := newTestRegistry()
	search, err := New(task, costmodel.NewAnalyticalModel(), database.NewMemoryDatabase(), reg, 7)
	require.NoError(t, err)

	base, err := reg.Get(task.Key)
	require.NoError(t, err)
	schedule := ir.NewFromModule(base)
	population := []searchstate.State{searchstate.NewUnscoredState(schedule)}
	states, err := search.Evolve(population, 5, 3)
	require.NoError(t, err)
	assert.Len(t, states, 1, "no crossover possible with a single parent, only the mutated original survives")
}

func TestSearchEpsGreedyDedupsAcrossCalls(t *testing.T) {
	reg, task := newTestRegistry()
	search, err := New(task, costmodel.NewAnalyticalModel(), database.NewMemoryDatabase(), reg, 100)
	require.NoError(t, err)

	opts := TuningOptions{InitPopulationNum: 6, PickDatabaseTopK: 0, CrossOverNum: 1, NumSamplesPerIteration: 4, EpsGreedy: 0.3}
	first, err := search.SearchEpsGreedy(opts)
	require.NoError(t, err)
	second, err := search.SearchEpsGreedy(opts)
	require.NoError(t, err)

	seen := make(map[uint64]bool)
	for _, st := range first {
		seen[st.Hash()] = true
	}
	for _, st := range second {
		assert.False(t, seen[st.Hash()], "second call must not repeat a state from the first")
	}
}

func TestTuningOptionsValidatePickTopKExceedsInit(t *testing.T) {
	opts := TuningOptions{InitPopulationNum: 2, PickDatabaseTopK: 5, NumSamplesPerIteration: 1}
	err := opts.Validate()
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNewUnknownTask(t *testing.T) {
	reg := registry.NewRegistry()
	_, err := New(registry.TuneTask{Key: "ghost"}, costmodel.NewAnalyticalModel(), database.NewMemoryDatabase(), reg, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
