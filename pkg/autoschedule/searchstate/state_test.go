// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package searchstate

import (
	"testing"

	"github.com/gomlx/autoschedule/pkg/autoschedule/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSchedule(factor int) *ir.IRSchedule {
	base := ir.NewBaseModule(map[string]*ir.Expr{
		"f": ir.NewLeafExpr("f", []ir.Handle{"i"}, []int{128}),
	})
	s := ir.NewFromModule(base)
	_ = s.Tile("f", "i", factor)
	return s
}

func TestNewUnscoredStateIsNotScored(t *testing.T) {
	s := NewUnscoredState(newTestSchedule(8))
	assert.False(t, s.IsScored())
}

func TestStateEqualAndHash(t *testing.T) {
	a := State{Schedule: newTestSchedule(8), Cost: 1.0}
	b := State{Schedule: newTestSchedule(8), Cost: 2.0}
	assert.True(t, a.Equal(b), "equality is by descriptor, not cost")
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestBoundedBestSetRetainsLowestK(t *testing.T) {
	set := NewBoundedBestSet(2)
	costs := []float64{5.0, 1.0, 3.0, 0.5}
	for _, c := range costs {
		set.Push(State{Schedule: newTestSchedule(int(c*100) + 1), Cost: c})
	}
	require.Equal(t, 2, set.Len())
	states := set.States()
	assert.Equal(t, 0.5, states[0].Cost)
	assert.Equal(t, 1.0, states[1].Cost)
}

func TestBoundedBestSetUnboundedRetainsAll(t *testing.T) {
	set := NewBoundedBestSet(0)
	for i := 0; i < 10; i++ {
		set.Push(State{Schedule: newTestSchedule(i + 1), Cost: float64(i)})
	}
	assert.Equal(t, 10, set.Len())
}

func TestBoundedBestSetTieBreaksByInsertionOrder(t *testing.T) {
	set := NewBoundedBestSet(1)
	first := State{Schedule: newTestSchedule(1), Cost: 1.0}
	second := State{Schedule: newTestSchedule(2), Cost: 1.0}
	set.Push(first)
	accepted := set.Push(second)
	assert.False(t, accepted, "equal cost must not evict the earlier entry")
	assert.True(t, set.States()[0].Equal(first))
}

func TestVisitedSetInsertOnlyMonotonic(t *testing.T) {
	v := NewVisitedSet()
	s := State{Schedule: newTestSchedule(8)}
	assert.False(t, v.Contains(s))
	v.Insert(s)
	assert.True(t, v.Contains(s))
	assert.Equal(t, 1, v.Len())
	v.Insert(s)
	assert.Equal(t, 1, v.Len(), "re-inserting the same descriptor must not grow the set")
}
