// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Command autoschedule_demo runs one or more evolutionary auto-scheduling
// sessions concurrently, one per task named in a manifest file, and reports
// the results as a terminal table plus optional telemetry/convergence
// artifacts. Grounded on the teacher's cmd/gomlx_checkpoints/main.go and
// examples/imdb/demo/demo.go flag/must.M idiom.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gomlx/autoschedule/internal/workerspool"
	"github.com/gomlx/autoschedule/pkg/autoschedule/costmodel"
	"github.com/gomlx/autoschedule/pkg/autoschedule/database"
	"github.com/gomlx/autoschedule/pkg/autoschedule/evolutionary"
	"github.com/gomlx/autoschedule/pkg/autoschedule/registry"
	"github.com/gomlx/autoschedule/pkg/autoschedule/rng"
	"github.com/gomlx/autoschedule/pkg/autoschedule/searchstate"
	"github.com/gomlx/autoschedule/pkg/support/fsutil"
	"github.com/gomlx/autoschedule/pkg/support/xsync"
	"github.com/gomlx/autoschedule/ui/convergence"
	"github.com/gomlx/autoschedule/ui/report"
	"github.com/gomlx/autoschedule/ui/telemetry"
	"github.com/google/uuid"
	"github.com/janpfeifer/must"
	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/plot/vg"
	"k8s.io/klog/v2"
)

var (
	flagManifest = flag.String("manifest", "", "Path to the TOML task manifest to load (required).")
	flagDatabase = flag.String("database", "",
		"Path to a JSON measured-record database file. If empty, an in-memory database is used for this run only.")
	flagOptions = flag.String("options", "",
		"Path to a YAML TuningOptions file. If empty, a small built-in default is used.")
	flagSeed        = flag.Uint64("seed", 1, "Base seed; each task's session forks its own stream from it.")
	flagRounds      = flag.Int("rounds", 5, "Number of SearchEpsGreedy generations to run per task.")
	flagParallelism = flag.Int("parallelism", 0,
		"Soft target for the number of tasks tuned concurrently. 0 keeps the pool's runtime.NumCPU() default, -1 is unlimited.")
	flagTelemetryDir   = flag.String("telemetry_dir", "", "If set, write one <task_key>.csv telemetry file per task here.")
	flagConvergenceDir = flag.String("convergence_dir", "",
		"If set, write a convergence.html (best-cost-per-generation, all tasks) and a cost_histogram.png (final round) here.")
)

var defaultOptions = evolutionary.TuningOptions{
	InitPopulationNum:      16,
	PickDatabaseTopK:       4,
	CrossOverNum:           8,
	NumSamplesPerIteration: 8,
	EpsGreedy:              0.25,
}

// sessionResult collects one task's outcome across all rounds.
type sessionResult struct {
	task      registry.TuneTask
	runID     string
	best      []float64 // final round's costs, for histogram pooling.
	recorder  *telemetry.Recorder
	bestState string // rendered report.StatesTable for the final round.
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagManifest == "" {
		klog.Errorf("autoschedule_demo: -manifest is required")
		os.Exit(1)
	}

	reg, tasks := must.M2(registry.LoadManifest(must.M1(fsutil.ReplaceTildeInDir(*flagManifest))))

	opts := defaultOptions
	if *flagOptions != "" {
		opts = must.M1(evolutionary.LoadTuningOptions(must.M1(fsutil.ReplaceTildeInDir(*flagOptions))))
	}

	var db database.Database
	if *flagDatabase != "" {
		db = must.M1(database.OpenJSONFileDatabase(must.M1(fsutil.ReplaceTildeInDir(*flagDatabase))))
	} else {
		db = database.NewMemoryDatabase()
	}

	model := costmodel.NewAnalyticalModel()
	pool := workerspool.New()
	if *flagParallelism != 0 {
		pool.SetMaxParallelism(*flagParallelism)
	}
	wg := xsync.NewDynamicWaitGroup()

	parentRNG := rng.New(*flagSeed)
	results := make([]sessionResult, len(tasks))
	bar := progressbar.NewOptions(len(tasks)*(*flagRounds),
		progressbar.OptionSetDescription("tuning: "),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("rounds"),
		progressbar.OptionSetTheme(progressbar.ThemeUnicode),
	)

	for i, task := range tasks {
		i, task := i, task
		taskSeed := parentRNG.Fork().State()
		wg.Add(1)
		pool.WaitToStart(func() {
			defer wg.Done()
			results[i] = runSession(task, model, db, reg, taskSeed, opts, bar)
		})
	}
	wg.Wait()

	telemetryDir := must.M1(fsutil.ReplaceTildeInDir(*flagTelemetryDir))
	convergenceDir := must.M1(fsutil.ReplaceTildeInDir(*flagConvergenceDir))

	for _, res := range results {
		fmt.Printf("run %s\n", res.runID)
		fmt.Println(res.bestState)
		if telemetryDir != "" {
			writeTelemetry(res, telemetryDir)
		}
	}
	if convergenceDir != "" {
		writeConvergenceArtifacts(results, convergenceDir)
	}
}

// runSession runs *flagRounds generations of SearchEpsGreedy for one task,
// recording per-generation telemetry and persisting every scored candidate
// each round returns into db. There is no real hardware measurement here (spec.md's
// cost model is abstract, per its Non-goals), so the predicted cost doubles
// as the "measured" cost the database stores -- a simplification specific to
// this demo, not a property of the core.
func runSession(task registry.TuneTask, model costmodel.Model, db database.Database, reg *registry.Registry, seed uint64, opts evolutionary.TuningOptions, bar *progressbar.ProgressBar) sessionResult {
	runID := uuid.NewString()[:12]
	search := must.M1(evolutionary.New(task, model, db, reg, seed))
	recorder := telemetry.NewRecorder()

	var latest []searchstate.State
	for round := 0; round < *flagRounds; round++ {
		states := must.M1(search.SearchEpsGreedy(opts))
		recorder.Record(round, states, 0)
		latest = states
		for _, st := range states {
			if st.IsScored() {
				_ = db.Add(task.Key, database.Record{Descriptor: st.Schedule.Descriptor, Cost: st.Cost})
			}
		}
		_ = bar.Add(1)
	}

	costs := make([]float64, 0, len(latest))
	for _, st := range latest {
		if st.IsScored() {
			costs = append(costs, st.Cost)
		}
	}
	return sessionResult{
		task:      task,
		runID:     runID,
		best:      costs,
		recorder:  recorder,
		bestState: report.StatesTable(task.Key, latest),
	}
}

func writeTelemetry(res sessionResult, telemetryDir string) {
	data, err := res.recorder.WriteCSV()
	if err != nil {
		klog.Errorf("autoschedule_demo: telemetry for %q: %v", res.task.Key, err)
		return
	}
	path := telemetryDir + "/" + res.task.Key + ".csv"
	if err := os.WriteFile(path, data, 0o644); err != nil {
		klog.Errorf("autoschedule_demo: writing %q: %v", path, err)
	}
}

func writeConvergenceArtifacts(results []sessionResult, convergenceDir string) {
	series := make([]convergence.Series, 0, len(results))
	var pooled []float64
	for _, res := range results {
		df := res.recorder.DataFrame()
		gens := df.Col("generation").Float()
		bests := df.Col("best_cost").Float()
		series = append(series, convergence.Series{Name: res.task.Key, Generation: gens, BestCost: bests})
		pooled = append(pooled, res.best...)
	}

	htmlFile := must.M1(os.Create(convergenceDir + "/convergence.html"))
	defer func() { _ = htmlFile.Close() }()
	must.M(convergence.WriteBestCostHTML(series, htmlFile))

	if len(pooled) > 0 {
		pngFile := must.M1(os.Create(convergenceDir + "/cost_histogram.png"))
		defer func() { _ = pngFile.Close() }()
		must.M(convergence.WriteCostHistogramPNG(pooled, pngFile, 6*vg.Inch, 4*vg.Inch))
	}
}
