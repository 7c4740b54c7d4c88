// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package telemetry accumulates per-generation statistics across an
// evolutionary search run -- best/mean/stddev cost and dedup counts -- as a
// dataframe that can be exported to CSV. This supplements the teacher's
// VLOG(4) join-string debug logging (original_source's
// JoinStatesDebugString) with structured, file-exportable reporting, the way
// a real repository in this domain ships telemetry tooling alongside logs.
package telemetry

import (
	"bytes"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/gomlx/autoschedule/pkg/autoschedule/searchstate"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// GenerationStats summarizes one generation's scored population.
type GenerationStats struct {
	Generation     int
	PopulationSize int
	BestCost       float64
	MeanCost       float64
	StdDevCost     float64
	Deduplicated   int
}

// Recorder accumulates GenerationStats across the lifetime of a search
// session, exposing the accumulated series as a gota DataFrame for export.
type Recorder struct {
	rows []GenerationStats
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record computes and appends the stats for one generation's scored states.
// deduplicated is the count of candidates skipped as already-visited during
// selection for this generation (spec.md §4.7.5's telemetry counter).
func (r *Recorder) Record(generation int, states []searchstate.State, deduplicated int) GenerationStats {
	costs := make([]float64, 0, len(states))
	for _, st := range states {
		if st.IsScored() {
			costs = append(costs, st.Cost)
		}
	}
	stats := GenerationStats{Generation: generation, PopulationSize: len(states), Deduplicated: deduplicated}
	if len(costs) > 0 {
		mean, stddev := stat.MeanStdDev(costs, nil)
		stats.MeanCost = mean
		stats.StdDevCost = stddev
		best := costs[0]
		for _, c := range costs[1:] {
			if c < best {
				best = c
			}
		}
		stats.BestCost = best
	}
	r.rows = append(r.rows, stats)
	return stats
}

// DataFrame materializes the accumulated rows as a gota DataFrame, one row
// per recorded generation.
func (r *Recorder) DataFrame() dataframe.DataFrame {
	gen := make([]int, len(r.rows))
	pop := make([]int, len(r.rows))
	best := make([]float64, len(r.rows))
	mean := make([]float64, len(r.rows))
	stddev := make([]float64, len(r.rows))
	dedup := make([]int, len(r.rows))
	for i, row := range r.rows {
		gen[i], pop[i], best[i], mean[i], stddev[i], dedup[i] = row.Generation, row.PopulationSize, row.BestCost, row.MeanCost, row.StdDevCost, row.Deduplicated
	}
	return dataframe.New(
		series.New(gen, series.Int, "generation"),
		series.New(pop, series.Int, "population_size"),
		series.New(best, series.Float, "best_cost"),
		series.New(mean, series.Float, "mean_cost"),
		series.New(stddev, series.Float, "stddev_cost"),
		series.New(dedup, series.Int, "deduplicated"),
	)
}

// WriteCSV renders the accumulated telemetry as CSV bytes.
func (r *Recorder) WriteCSV() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.DataFrame().WriteCSV(&buf); err != nil {
		return nil, errors.Wrap(err, "telemetry.Recorder.WriteCSV")
	}
	return buf.Bytes(), nil
}
