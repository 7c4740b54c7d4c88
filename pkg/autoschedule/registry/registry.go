// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package registry implements the process-wide directory mapping task keys to
// their immutable base IR module, and the TOML-manifest-driven task discovery
// step that populates it before any search session begins.
package registry

import (
	"os"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/gomlx/autoschedule/pkg/autoschedule/ir"
	"github.com/pkg/errors"
)

// ErrNotFound is returned by Registry.Get for an unregistered task key.
var ErrNotFound = errors.New("registry: task not found")

// TargetDescriptor names the hardware target a TuneTask is being scheduled
// for. It supplements the distilled spec from CINN's `common::Target`
// concept. It is carried on TuneTask as metadata only: no sketch rule or cost
// model in this repository reads Arch or NumCores (BindThreadsRule binds
// loops whatever the target).
type TargetDescriptor struct {
	Arch     string
	NumCores int
}

// IsSIMT reports whether the target has a thread/block binding model (GPU-like).
func (t TargetDescriptor) IsSIMT() bool {
	switch t.Arch {
	case "nvgpu", "amdgpu":
		return true
	default:
		return false
	}
}

// TuneTask is an immutable record naming one schedulable unit: its registry
// key, target hardware, and free-form metadata. Read-only to the search.
type TuneTask struct {
	Key      string
	Target   TargetDescriptor
	Metadata map[string]string
}

// Registry is the process-wide, read-only-during-search directory from task
// key to base IR module. Guarded by sync.RWMutex: many readers are expected
// concurrently once search sessions start, and no writer once population is
// complete (spec.md §4.6's many-readers/no-writer lifecycle).
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*ir.BaseModule
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*ir.BaseModule)}
}

// Register populates the registry with the base module for taskKey. Intended
// to be called only during task discovery, before any session begins.
func (r *Registry) Register(taskKey string, base *ir.BaseModule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[taskKey] = base
}

// Get returns the base module registered for taskKey, or an error wrapping
// ErrNotFound.
func (r *Registry) Get(taskKey string) (*ir.BaseModule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	base, ok := r.modules[taskKey]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "task key %q", taskKey)
	}
	return base, nil
}

// manifestFile is the TOML shape of a task manifest: a list of tasks, each
// naming the handle/loop shape of its single function, since the registry
// deals in synthetic loop-nest Exprs rather than a real lowered IR.
type manifestFile struct {
	Task []manifestTask `toml:"task"`
}

type manifestTask struct {
	Key      string            `toml:"key"`
	Arch     string            `toml:"arch"`
	NumCores int               `toml:"num_cores"`
	Metadata map[string]string `toml:"metadata"`
	FuncName string            `toml:"func_name"`
	Loops    []string          `toml:"loops"`
	Extents  []int             `toml:"extents"`
}

// LoadManifest parses a TOML manifest describing one or more tuning tasks and
// returns a freshly populated Registry plus the list of TuneTasks it
// describes. This is the concrete, file-based form of the "task discovery"
// lifecycle step spec.md §4.6 requires but leaves to an external collaborator.
func LoadManifest(path string) (*Registry, []TuneTask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "registry.LoadManifest(%q)", path)
	}
	var manifest manifestFile
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, nil, errors.Wrapf(err, "registry.LoadManifest(%q): malformed TOML", path)
	}

	reg := NewRegistry()
	tasks := make([]TuneTask, 0, len(manifest.Task))
	for _, mt := range manifest.Task {
		if len(mt.Loops) != len(mt.Extents) {
			return nil, nil, errors.Errorf("registry.LoadManifest(%q): task %q has %d loops but %d extents",
				path, mt.Key, len(mt.Loops), len(mt.Extents))
		}
		handles := make([]ir.Handle, len(mt.Loops))
		for i, h := range mt.Loops {
			handles[i] = ir.Handle(h)
		}
		expr := ir.NewLeafExpr(mt.FuncName, handles, mt.Extents)
		base := ir.NewBaseModule(map[string]*ir.Expr{mt.FuncName: expr})
		reg.Register(mt.Key, base)
		tasks = append(tasks, TuneTask{
			Key:      mt.Key,
			Target:   TargetDescriptor{Arch: mt.Arch, NumCores: mt.NumCores},
			Metadata: mt.Metadata,
		})
	}
	return reg, tasks, nil
}
