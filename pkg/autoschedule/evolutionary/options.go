// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package evolutionary

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// TuningOptions configures one search_bests/search_eps_greedy call, per
// spec.md §3. Field names follow the teacher's own flat, tagged-struct
// configuration idiom, adapted to YAML since the demo needs several named
// presets rather than a handful of CLI flags.
type TuningOptions struct {
	InitPopulationNum      int     `yaml:"init_population_num"`
	PickDatabaseTopK       int     `yaml:"pick_database_topk"`
	CrossOverNum           int     `yaml:"cross_over_num"`
	NumSamplesPerIteration int     `yaml:"num_samples_per_iteration"`
	EpsGreedy              float64 `yaml:"eps_greedy"`
}

// Validate enforces spec.md §3's invariants, returning an error wrapping
// ErrInvalidArgument describing the first violation found.
func (o TuningOptions) Validate() error {
	switch {
	case o.InitPopulationNum < 1:
		return errors.Wrapf(ErrInvalidArgument, "init_population_num must be >= 1, got %d", o.InitPopulationNum)
	case o.PickDatabaseTopK < 0:
		return errors.Wrapf(ErrInvalidArgument, "pick_database_topk must be >= 0, got %d", o.PickDatabaseTopK)
	case o.PickDatabaseTopK > o.InitPopulationNum:
		return errors.Wrapf(ErrInvalidArgument, "pick_database_topk (%d) must be <= init_population_num (%d)",
			o.PickDatabaseTopK, o.InitPopulationNum)
	case o.CrossOverNum < 0:
		return errors.Wrapf(ErrInvalidArgument, "cross_over_num must be >= 0, got %d", o.CrossOverNum)
	case o.NumSamplesPerIteration < 1:
		return errors.Wrapf(ErrInvalidArgument, "num_samples_per_iteration must be >= 1, got %d", o.NumSamplesPerIteration)
	case o.EpsGreedy < 0 || o.EpsGreedy > 1:
		return errors.Wrapf(ErrInvalidArgument, "eps_greedy must be in [0,1], got %f", o.EpsGreedy)
	}
	return nil
}

// LoadTuningOptions reads a YAML-encoded TuningOptions from path and validates it.
func LoadTuningOptions(path string) (TuningOptions, error) {
	var opts TuningOptions
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, errors.Wrapf(err, "evolutionary.LoadTuningOptions(%q)", path)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, errors.Wrapf(err, "evolutionary.LoadTuningOptions(%q): malformed YAML", path)
	}
	if err := opts.Validate(); err != nil {
		return opts, errors.Wrapf(err, "evolutionary.LoadTuningOptions(%q)", path)
	}
	return opts, nil
}
