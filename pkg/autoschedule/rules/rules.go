// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package rules implements the two flat rule catalogs the search space draws
// from: AutoGenRules build an initial sketch (a ScheduleDescriptor) from a
// BaseModule, and MutateRules perturb an existing descriptor during evolution.
// Both are flat interface catalogs rather than a class hierarchy -- a rule
// knows nothing about its siblings, and the Catalog is the only place rule
// selection logic lives.
package rules

import (
	"github.com/gomlx/autoschedule/pkg/autoschedule/ir"
	"github.com/gomlx/autoschedule/pkg/autoschedule/rng"
	"github.com/pkg/errors"
)

// ErrNotApplicable is returned by a rule's Apply when the rule has nothing to
// do against the given function (e.g. ReorderLoopsRule on a function with a
// single loop) -- the caller is expected to treat this as "skip", not "abort".
var ErrNotApplicable = errors.New("rules: not applicable")

// AutoGenRule generates one step of an initial schedule sketch for a function
// of a BaseModule. Sketch generation applies every rule in a Catalog in turn
// (RulePrune strategy) or samples a random subset (RandomPrune strategy); see
// package searchspace.
type AutoGenRule interface {
	// Name identifies the rule for logging and error messages.
	Name() string
	// Apply mutates schedule in place for the given function, or returns
	// ErrNotApplicable if the function's current shape does not admit this rule.
	Apply(schedule *ir.IRSchedule, funcName string, rnd *rng.Engine) error
}

// MutateRule perturbs an existing ScheduleDescriptor, returning a new
// descriptor (the original is never modified) to be replayed and scored as a
// candidate in the next generation.
type MutateRule interface {
	// Name identifies the rule for logging.
	Name() string
	// Weight is this rule's relative probability mass in Catalog.PickMutateRule;
	// higher weight means the rule is drawn more often.
	Weight() float64
	// Apply returns a mutated clone of descriptor, or ErrNotApplicable if
	// descriptor has no step this rule can act on (e.g. RetileRule against a
	// descriptor with no Tile or Split step to resample).
	Apply(base *ir.BaseModule, descriptor *ir.ScheduleDescriptor, rnd *rng.Engine) (*ir.ScheduleDescriptor, error)
}

// Catalog is the flat, ordered collection of rules a SearchSpace draws from.
// Order matters for AutoGenRules (RulePrune applies them in Catalog order);
// it does not matter for MutateRules, which are drawn by weight.
type Catalog struct {
	AutoGen []AutoGenRule
	Mutate  []MutateRule
}

// DefaultCatalog returns the catalog of built-in rules, matching the set named
// in spec.md §4.3: tiling/fusion/reordering/binding sketch rules, and
// retile/reorder/fusion-toggle/inline-toggle mutate rules.
func DefaultCatalog() *Catalog {
	return &Catalog{
		AutoGen: []AutoGenRule{
			&TileLoopsRule{},
			&FuseLoopsRule{},
			&ReorderLoopsRule{},
			&BindThreadsRule{},
		},
		Mutate: []MutateRule{
			&RetileRule{},
			&SwapOrderRule{},
			&ToggleFusionRule{},
			&ToggleInlineRule{},
		},
	}
}

// PickMutateRule draws one MutateRule at random, with probability proportional
// to Weight(). It returns an error if the catalog has no mutate rules or every
// rule has zero or negative weight.
func (c *Catalog) PickMutateRule(rnd *rng.Engine) (MutateRule, error) {
	if len(c.Mutate) == 0 {
		return nil, errors.New("rules: catalog has no mutate rules")
	}
	var total float64
	for _, r := range c.Mutate {
		if r.Weight() > 0 {
			total += r.Weight()
		}
	}
	if total <= 0 {
		return nil, errors.New("rules: catalog has no mutate rule with positive weight")
	}
	// Scale to an integer range so rng.Engine.SampleUniformInt (integer-only)
	// can drive the draw without floating-point sampling in the RNG itself.
	const scale = 1 << 20
	draw, err := rnd.SampleUniformInt(0, int(total*scale))
	if err != nil {
		return nil, errors.Wrap(err, "rules.Catalog.PickMutateRule")
	}
	target := float64(draw) / scale
	var cumulative float64
	for _, r := range c.Mutate {
		if r.Weight() <= 0 {
			continue
		}
		cumulative += r.Weight()
		if target < cumulative {
			return r, nil
		}
	}
	// Floating point rounding at the very top of the range: fall back to the
	// last positively-weighted rule rather than returning an error.
	for i := len(c.Mutate) - 1; i >= 0; i-- {
		if c.Mutate[i].Weight() > 0 {
			return c.Mutate[i], nil
		}
	}
	return nil, errors.New("rules: unreachable, no positively-weighted rule found")
}
