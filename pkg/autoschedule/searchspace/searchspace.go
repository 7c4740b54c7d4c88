// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package searchspace implements the per-task factory that owns the rule
// catalog and produces (a) initial sketches via a named strategy and (b) a
// "schedule-then-mutate" step that applies one randomly selected mutation
// rule and re-scores the result.
package searchspace

import (
	"github.com/gomlx/autoschedule/pkg/autoschedule/costmodel"
	"github.com/gomlx/autoschedule/pkg/autoschedule/ir"
	"github.com/gomlx/autoschedule/pkg/autoschedule/rng"
	"github.com/gomlx/autoschedule/pkg/autoschedule/rules"
	"github.com/gomlx/autoschedule/pkg/autoschedule/searchstate"
	"github.com/gomlx/autoschedule/pkg/support/xslices"
	"github.com/pkg/errors"
)

// Strategy names the sketch-generation policy GenerateSketches uses.
type Strategy string

const (
	// RulePrune applies every AutoGenRule in the catalog, in catalog order,
	// to every function -- a deterministic, exhaustive sketch per function.
	RulePrune Strategy = "rule_prune"
	// RandomPrune applies a random subset of the catalog's AutoGenRules,
	// giving broader coverage of the sketch space across many sketches.
	RandomPrune Strategy = "random_prune"
)

// Space is the per-task factory producing sketches and mutate-then-score
// candidates, owning its own rule catalog and an RNG forked once at
// construction from the caller's stream (mirroring EvolutionarySearch's
// `utils::ForkRandomState` call when building its SearchSpace).
type Space struct {
	base    *ir.BaseModule
	catalog *rules.Catalog
	rnd     *rng.Engine
}

// New returns a Space over base using catalog (use rules.DefaultCatalog() for
// the built-in rule set), seeded from rnd. rnd is consumed (forked) by New,
// not retained directly, so the caller's stream advances exactly once.
func New(base *ir.BaseModule, catalog *rules.Catalog, rnd *rng.Engine) *Space {
	return &Space{base: base, catalog: catalog, rnd: rnd.Fork()}
}

// GenerateSketches produces up to num initial SearchStates using strategy.
// Each sketch applies to every function in the base module; a function on
// which no rule could apply (ErrNotApplicable from every rule) is simply left
// unscheduled for that sketch; this is not fatal to the sketch as a whole.
func (s *Space) GenerateSketches(num int, strategy Strategy) ([]searchstate.State, error) {
	if num <= 0 {
		return nil, nil
	}
	states := make([]searchstate.State, 0, num)
	for i := 0; i < num; i++ {
		schedule := ir.NewFromModule(s.base)
		var activeRules []rules.AutoGenRule
		switch strategy {
		case RulePrune:
			activeRules = s.catalog.AutoGen
		case RandomPrune:
			var err error
			activeRules, err = s.sampleRuleSubset()
			if err != nil {
				return nil, err
			}
		default:
			return nil, errors.Errorf("searchspace: unknown strategy %q", strategy)
		}
		for _, funcName := range xslices.SortedKeys(s.base.Funcs) {
			for _, rule := range activeRules {
				err := rule.Apply(schedule, funcName, s.rnd)
				if err != nil && !errors.Is(err, rules.ErrNotApplicable) {
					return nil, errors.Wrapf(err, "searchspace.GenerateSketches: rule %q on function %q", rule.Name(), funcName)
				}
			}
		}
		states = append(states, searchstate.NewUnscoredState(schedule))
	}
	return states, nil
}

// sampleRuleSubset draws a non-empty random subset of the catalog's AutoGen
// rules, preserving catalog order within the subset (so relative rule
// ordering stays deterministic given the same draws).
func (s *Space) sampleRuleSubset() ([]rules.AutoGenRule, error) {
	total := len(s.catalog.AutoGen)
	if total == 0 {
		return nil, nil
	}
	var subset []rules.AutoGenRule
	for len(subset) == 0 {
		subset = subset[:0]
		for _, r := range s.catalog.AutoGen {
			include, err := s.rnd.SampleUniformInt(0, 2)
			if err != nil {
				return nil, err
			}
			if include == 1 {
				subset = append(subset, r)
			}
		}
	}
	return subset, nil
}

// GetScheduleMutate applies one randomly selected MutateRule to state's
// descriptor, replays the result, scores it with model, and returns the
// scored state. Per spec.md §9's resolved open question, this always returns
// a scored state: if the drawn rule is not applicable, or its result does not
// replay onto the base module, the input descriptor is replayed and re-scored
// unchanged, rather than leaving the state unscored. An error is returned if
// the input descriptor itself does not replay.
func (s *Space) GetScheduleMutate(state searchstate.State, model costmodel.Model) (searchstate.State, error) {
	mutated := state.Schedule.Descriptor
	rule, err := s.catalog.PickMutateRule(s.rnd)
	if err != nil {
		return searchstate.State{}, errors.Wrap(err, "searchspace.GetScheduleMutate")
	}
	candidate, err := rule.Apply(s.base, state.Schedule.Descriptor, s.rnd)
	if err == nil {
		mutated = candidate
	} else if !errors.Is(err, rules.ErrNotApplicable) {
		return searchstate.State{}, errors.Wrapf(err, "searchspace.GetScheduleMutate: rule %q", rule.Name())
	}

	replayed, err := ir.Replay(s.base, mutated)
	if err != nil && mutated != state.Schedule.Descriptor {
		replayed, err = ir.Replay(s.base, state.Schedule.Descriptor)
	}
	if err != nil {
		return searchstate.State{}, errors.Wrap(err, "searchspace.GetScheduleMutate")
	}
	cost := costmodel.SafePredict(model, replayed)
	return searchstate.State{Schedule: replayed, Cost: cost}, nil
}
