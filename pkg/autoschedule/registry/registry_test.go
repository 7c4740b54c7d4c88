// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/autoschedule/pkg/autoschedule/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetUnknownKey(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get("nonexistent")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	base := ir.NewBaseModule(map[string]*ir.Expr{
		"matmul": ir.NewLeafExpr("matmul", []ir.Handle{"i"}, []int{128}),
	})
	reg.Register("task-a", base)

	got, err := reg.Get("task-a")
	require.NoError(t, err)
	assert.Same(t, base, got)
}

func TestTargetDescriptorIsSIMT(t *testing.T) {
	assert.True(t, TargetDescriptor{Arch: "nvgpu"}.IsSIMT())
	assert.False(t, TargetDescriptor{Arch: "x86_64"}.IsSIMT())
}

const sampleManifest = `
[[task]]
key = "matmul_128"
arch = "nvgpu"
num_cores = 80
func_name = "matmul"
loops = ["i", "j", "k"]
extents = [128, 128, 128]

[task.metadata]
precision = "fp32"

[[task]]
key = "reduce_sum"
arch = "x86_64"
num_cores = 16
func_name = "reduce"
loops = ["i"]
extents = [4096]
`

func TestLoadManifestParsesTasksAndRegisters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))

	reg, tasks, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "matmul_128", tasks[0].Key)
	assert.Equal(t, "nvgpu", tasks[0].Target.Arch)
	assert.Equal(t, "fp32", tasks[0].Metadata["precision"])

	base, err := reg.Get("reduce_sum")
	require.NoError(t, err)
	assert.Contains(t, base.Funcs, "reduce")
}

func TestLoadManifestMismatchedLoopsAndExtents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	bad := `
[[task]]
key = "broken"
func_name = "f"
loops = ["i", "j"]
extents = [8]
`
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o644))
	_, _, err := LoadManifest(path)
	assert.Error(t, err)
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, _, err := LoadManifest("/nonexistent/path/manifest.toml")
	assert.Error(t, err)
}
