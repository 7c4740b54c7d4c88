// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package costmodel

import (
	"math"
	"testing"

	"github.com/gomlx/autoschedule/pkg/autoschedule/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constModel struct{ cost float64 }

func (c constModel) Predict(*ir.IRSchedule) float64 { return c.cost }

func TestSafePredictNormalizesNaN(t *testing.T) {
	got := SafePredict(constModel{cost: math.NaN()}, nil)
	assert.True(t, math.IsInf(got, 1))
}

func TestSafePredictPassesThroughFinite(t *testing.T) {
	got := SafePredict(constModel{cost: 42.0}, nil)
	assert.Equal(t, 42.0, got)
}

func TestAnalyticalModelPenalizesLargerVolume(t *testing.T) {
	model := NewAnalyticalModel()
	small := ir.NewFromModule(ir.NewBaseModule(map[string]*ir.Expr{
		"f": ir.NewLeafExpr("f", []ir.Handle{"i"}, []int{8}),
	}))
	large := ir.NewFromModule(ir.NewBaseModule(map[string]*ir.Expr{
		"f": ir.NewLeafExpr("f", []ir.Handle{"i"}, []int{8192}),
	}))
	require.Less(t, model.Predict(small), model.Predict(large))
}

func TestAnalyticalModelPenalizesDeepNestsAtEqualVolume(t *testing.T) {
	model := NewAnalyticalModel()
	shallow := ir.NewFromModule(ir.NewBaseModule(map[string]*ir.Expr{
		"f": ir.NewLeafExpr("f", []ir.Handle{"i"}, []int{64}),
	}))
	deep := ir.NewFromModule(ir.NewBaseModule(map[string]*ir.Expr{
		"f": ir.NewLeafExpr("f", []ir.Handle{"i", "j"}, []int{8, 8}),
	}))
	assert.Less(t, model.Predict(shallow), model.Predict(deep))
}
