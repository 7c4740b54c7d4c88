// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package evolutionary implements EvolutionarySearch: the orchestrator that
// composes TaskRegistry, RecordDatabase, CostModel, and SearchSpace into the
// generation loop described in spec.md §4.7 -- database seeding, sketch
// seeding, crossover, mutate-and-score, and ε-greedy final selection.
package evolutionary

import (
	"math"

	"github.com/gomlx/autoschedule/pkg/autoschedule/costmodel"
	"github.com/gomlx/autoschedule/pkg/autoschedule/database"
	"github.com/gomlx/autoschedule/pkg/autoschedule/ir"
	"github.com/gomlx/autoschedule/pkg/autoschedule/registry"
	"github.com/gomlx/autoschedule/pkg/autoschedule/rng"
	"github.com/gomlx/autoschedule/pkg/autoschedule/rules"
	"github.com/gomlx/autoschedule/pkg/autoschedule/searchspace"
	"github.com/gomlx/autoschedule/pkg/autoschedule/searchstate"
	"github.com/gomlx/autoschedule/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Search is one tuning session for one TuneTask. It owns its SearchSpace and
// VisitedSet; the CostModel, Database, and Registry are borrowed and must
// outlive the Search. Per spec.md §5, a Search is not goroutine-safe -- run
// independent sessions on separate goroutines, each with its own Search.
type Search struct {
	task  registry.TuneTask
	model costmodel.Model
	db    database.Database
	reg   *registry.Registry

	base    *ir.BaseModule
	space   *searchspace.Space
	rnd     *rng.Engine
	visited *searchstate.VisitedSet
}

// New constructs a Search for task, resolving its base module from reg.
// Builds an owned SearchSpace seeded via rng.Fork() (spec.md §4.7.1).
func New(task registry.TuneTask, model costmodel.Model, db database.Database, reg *registry.Registry, seed uint64) (*Search, error) {
	base, err := reg.Get(task.Key)
	if err != nil {
		return nil, errors.Wrapf(ErrNotFound, "evolutionary.New(%q): %v", task.Key, err)
	}
	rnd := rng.New(seed)
	space := searchspace.New(base, rules.DefaultCatalog(), rnd.Fork())
	return &Search{
		task:    task,
		model:   model,
		db:      db,
		reg:     reg,
		base:    base,
		space:   space,
		rnd:     rnd,
		visited: searchstate.NewVisitedSet(),
	}, nil
}

// SearchBests runs one full generation (spec.md §4.7.2): seed from the
// database, seed with rule-pruned sketches, then Evolve the combined
// population. Returns the BoundedBestSet's ascending-cost contents.
func (s *Search) SearchBests(opts TuningOptions) ([]searchstate.State, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	klog.V(4).Infof("evolutionary.Search[%s]: SearchBests entering", s.task.Key)
	defer klog.V(4).Infof("evolutionary.Search[%s]: SearchBests exiting", s.task.Key)

	dbSeed := s.seedFromDatabase(opts.PickDatabaseTopK)
	initNum := opts.InitPopulationNum - len(dbSeed)
	sketches, err := s.space.GenerateSketches(initNum, searchspace.RulePrune)
	if err != nil {
		return nil, errors.Wrapf(err, "evolutionary.Search[%s].SearchBests", s.task.Key)
	}
	if len(sketches) < initNum {
		klog.V(2).Infof("evolutionary.Search[%s]: %v (wanted %d, got %d)", s.task.Key, ErrExhaustedSpace, initNum, len(sketches))
	}

	population := make([]searchstate.State, 0, len(dbSeed)+len(sketches))
	population = append(population, dbSeed...)
	population = append(population, sketches...)

	return s.Evolve(population, opts.CrossOverNum, opts.NumSamplesPerIteration)
}

// seedFromDatabase implements spec.md §4.7.2 step 1: pull the topk measured
// records, replay each onto a fresh IRSchedule, and wrap with the stored
// cost. A record that fails to replay is logged and skipped (spec.md §4.7.7),
// never returned as an error -- a malformed historical record must not abort
// an otherwise-healthy search.
func (s *Search) seedFromDatabase(topK int) []searchstate.State {
	if topK <= 0 {
		return nil
	}
	records, err := s.db.TopK(s.task.Key, topK)
	if err != nil {
		klog.Errorf("evolutionary.Search[%s]: database.TopK failed: %v", s.task.Key, err)
		return nil
	}
	seed := make([]searchstate.State, 0, len(records))
	for _, record := range records {
		schedule, err := ir.Replay(s.base, record.Descriptor)
		if err != nil {
			klog.V(2).Infof("evolutionary.Search[%s]: %v: %v", s.task.Key, ErrReplayFailed, err)
			continue
		}
		seed = append(seed, searchstate.State{Schedule: schedule, Cost: record.Cost})
	}
	return seed
}

// Evolve implements spec.md §4.7.3: crossover within population, then
// mutate-and-score every member of the expanded generation, draining a
// BoundedBestSet(retNum) in ascending-cost order.
func (s *Search) Evolve(population []searchstate.State, crossOverNum, retNum int) ([]searchstate.State, error) {
	if len(population) == 0 {
		return nil, nil
	}
	generation := make([]searchstate.State, len(population))
	copy(generation, population)

	for i := 0; i < crossOverNum; i++ {
		if len(population) < 2 {
			break
		}
		a, b, err := s.distinctIndices(len(population))
		if err != nil {
			return nil, errors.Wrap(err, "evolutionary.Search.Evolve")
		}
		child, err := s.CrossOver(population[a], population[b])
		if err != nil {
			klog.V(2).Infof("evolutionary.Search[%s]: crossover skipped: %v", s.task.Key, err)
			continue
		}
		generation = append(generation, child)
	}

	best := searchstate.NewBoundedBestSet(retNum)
	for _, candidate := range generation {
		scored, err := s.space.GetScheduleMutate(candidate, s.model)
		if err != nil {
			klog.Errorf("evolutionary.Search[%s]: GetScheduleMutate failed: %v", s.task.Key, err)
			continue
		}
		best.Push(scored)
	}
	return best.States(), nil
}

// distinctIndices draws two distinct indices in [0, n), resampling the second
// until it differs from the first, per spec.md §4.7.3.
func (s *Search) distinctIndices(n int) (int, int, error) {
	a, err := s.rnd.SampleUniformInt(0, n)
	if err != nil {
		return 0, 0, err
	}
	b, err := s.rnd.SampleUniformInt(0, n)
	if err != nil {
		return 0, 0, err
	}
	for b == a && n > 1 {
		b, err = s.rnd.SampleUniformInt(0, n)
		if err != nil {
			return 0, 0, err
		}
	}
	return a, b, nil
}

// CrossOver implements spec.md §4.7.4: per-function random mixing of two
// parent schedules. s1 and s2 must schedule the same set of functions.
func (s *Search) CrossOver(s1, s2 searchstate.State) (searchstate.State, error) {
	exprs1 := s1.Schedule.GetModuleExpressions()
	exprs2 := s2.Schedule.GetModuleExpressions()
	if len(exprs1) != len(exprs2) {
		return searchstate.State{}, errors.Wrapf(ErrInvalidArgument,
			"CrossOver: parents have %d and %d functions, must match", len(exprs1), len(exprs2))
	}

	childExprs := make(map[string]*ir.Expr, len(exprs1))
	for _, funcName := range xslices.SortedKeys(exprs1) {
		e1 := exprs1[funcName]
		e2, ok := exprs2[funcName]
		if !ok {
			return searchstate.State{}, errors.Wrapf(ErrInvalidArgument,
				"CrossOver: function %q present in first parent but not the second", funcName)
		}
		pick, err := s.rnd.SampleUniformInt(0, 2)
		if err != nil {
			return searchstate.State{}, err
		}
		if pick == 0 {
			childExprs[funcName] = e1.DeepCopy()
		} else {
			childExprs[funcName] = e2.DeepCopy()
		}
	}
	return searchstate.NewUnscoredState(ir.NewFromExprs(childExprs)), nil
}

// SearchEpsGreedy implements spec.md §4.7.5: run SearchBests, then interleave
// its results with fresh random-pruned sketches, backfilling from bests when
// rands run out, deduping against the session's VisitedSet throughout.
func (s *Search) SearchEpsGreedy(opts TuningOptions) ([]searchstate.State, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	klog.V(4).Infof("evolutionary.Search[%s]: SearchEpsGreedy entering", s.task.Key)
	defer klog.V(4).Infof("evolutionary.Search[%s]: SearchEpsGreedy exiting", s.task.Key)

	bests, err := s.SearchBests(opts)
	if err != nil {
		return nil, err
	}
	numRands := int(math.Floor(float64(opts.NumSamplesPerIteration) * opts.EpsGreedy))
	numBests := opts.NumSamplesPerIteration - numRands

	randNum := opts.InitPopulationNum - opts.PickDatabaseTopK
	rands, err := s.space.GenerateSketches(randNum, searchspace.RandomPrune)
	if err != nil {
		return nil, errors.Wrapf(err, "evolutionary.Search[%s].SearchEpsGreedy", s.task.Key)
	}

	result := make([]searchstate.State, 0, opts.NumSamplesPerIteration)
	bestIdx, randIdx := 0, 0
	deduplicated := 0
	for len(result) < opts.NumSamplesPerIteration {
		var selected searchstate.State
		var ok bool
		switch {
		case len(result) < numBests && bestIdx < len(bests):
			selected, ok = bests[bestIdx], true
			bestIdx++
		case randIdx < len(rands):
			selected, ok = rands[randIdx], true
			randIdx++
		case bestIdx < len(bests):
			selected, ok = bests[bestIdx], true
			bestIdx++
		default:
			ok = false
		}
		if !ok {
			break
		}
		if s.visited.Contains(selected) {
			deduplicated++
			continue
		}
		s.visited.Insert(selected)
		result = append(result, selected)
	}
	klog.V(4).Infof("evolutionary.Search[%s]: SearchEpsGreedy bests=%d rands=%d deduplicated=%d result=%d",
		s.task.Key, len(bests), len(rands), deduplicated, len(result))
	return result, nil
}

// SearchOne is a convenience wrapper returning the single best candidate.
func (s *Search) SearchOne(opts TuningOptions) (searchstate.State, error) {
	bests, err := s.SearchBests(opts)
	if err != nil {
		return searchstate.State{}, err
	}
	if len(bests) == 0 {
		return searchstate.State{}, errors.Wrapf(ErrExhaustedSpace, "evolutionary.Search[%s].SearchOne", s.task.Key)
	}
	return bests[0], nil
}
