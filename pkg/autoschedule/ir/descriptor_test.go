// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSampleDescriptor() *ScheduleDescriptor {
	d := NewScheduleDescriptor()
	d.Append(Step{FuncName: "matmul", Primitive: PrimitiveSplit, Target: "i", Secondary: "i_inner", Attr: AttrValue{Int: 32}})
	d.Append(Step{FuncName: "matmul", Primitive: PrimitiveReorder, Target: "matmul", Attr: AttrValue{Handles: []Handle{"j", "i_inner"}}})
	d.Append(Step{FuncName: "matmul", Primitive: PrimitiveBind, Target: "j", Attr: AttrValue{Text: "threadIdx.x"}})
	return d
}

func TestDescriptorSerializeRoundTrip(t *testing.T) {
	d := buildSampleDescriptor()
	data, err := d.Serialize()
	require.NoError(t, err)

	got, err := DeserializeScheduleDescriptor(data)
	require.NoError(t, err)
	assert.True(t, d.Equal(got))
}

func TestDescriptorHashStableAcrossClone(t *testing.T) {
	d := buildSampleDescriptor()
	cp := d.Clone()
	assert.Equal(t, d.Hash(), cp.Hash())
	assert.True(t, d.Equal(cp))
}

func TestDescriptorCloneIndependence(t *testing.T) {
	d := buildSampleDescriptor()
	cp := d.Clone()
	cp.Steps[0].Attr.Int = 999
	assert.NotEqual(t, d.Steps[0].Attr.Int, cp.Steps[0].Attr.Int)
}

func TestWithStepsRemoved(t *testing.T) {
	d := buildSampleDescriptor()
	trimmed := d.WithStepsRemoved(1)
	assert.Equal(t, 2, trimmed.Len())
	assert.Equal(t, 3, d.Len(), "original must be unaffected")
	assert.Equal(t, PrimitiveSplit, trimmed.Steps[0].Primitive)
	assert.Equal(t, PrimitiveBind, trimmed.Steps[1].Primitive)
}

func TestWithStepReplaced(t *testing.T) {
	d := buildSampleDescriptor()
	replaced := d.WithStepReplaced(0, Step{FuncName: "matmul", Primitive: PrimitiveTile, Target: "i", Attr: AttrValue{Int: 16}})
	assert.Equal(t, PrimitiveTile, replaced.Steps[0].Primitive)
	assert.Equal(t, PrimitiveSplit, d.Steps[0].Primitive, "original must be unaffected")
}

func TestDescriptorNotEqualOnDifferentLength(t *testing.T) {
	d := buildSampleDescriptor()
	shorter := d.WithStepsRemoved(0)
	assert.False(t, d.Equal(shorter))
}
