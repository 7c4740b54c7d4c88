// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package database implements the persistent store mapping a task key to a
// ranked list of measured (ScheduleDescriptor, cost) records, queried by
// EvolutionarySearch to seed each session with the best schedules measured so
// far on real hardware.
package database

import (
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/gomlx/autoschedule/pkg/autoschedule/ir"
	"github.com/pkg/errors"
)

// Record is one measured schedule: its descriptor and the cost observed when
// it was actually run (as opposed to CostModel's predicted cost).
type Record struct {
	Descriptor *ir.ScheduleDescriptor
	Cost       float64
}

// Database is the persistent, possibly-shared store of measured records, keyed
// by task key (see registry.TuneTask.Key). Per spec.md §5, a Database must
// provide its own thread safety if shared across sessions; the core treats it
// as an opaque borrow.
type Database interface {
	// TopK returns up to k records for taskKey, ordered ascending by Cost
	// (best first). Returns an empty slice, not an error, if taskKey is unknown
	// or k <= 0.
	TopK(taskKey string, k int) ([]Record, error)
	// Add appends a measured record for taskKey. Existing records are never
	// replaced, so adding the same descriptor twice keeps both records.
	Add(taskKey string, record Record) error
}

// MemoryDatabase is an in-process, goroutine-safe Database with no
// persistence, useful for tests and for sessions that only need records
// within a single process lifetime.
type MemoryDatabase struct {
	mu      sync.RWMutex
	records map[string][]Record
}

// NewMemoryDatabase returns an empty MemoryDatabase.
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{records: make(map[string][]Record)}
}

// TopK implements Database.
func (db *MemoryDatabase) TopK(taskKey string, k int) ([]Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return topKOf(db.records[taskKey], k), nil
}

// Add implements Database.
func (db *MemoryDatabase) Add(taskKey string, record Record) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.records[taskKey] = append(db.records[taskKey], record)
	return nil
}

func topKOf(records []Record, k int) []Record {
	if len(records) == 0 || k <= 0 {
		return nil
	}
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Cost < sorted[j].Cost })
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}

// jsonRecord is the on-disk representation of a Record: the descriptor is
// stored gob-serialized (see ir.ScheduleDescriptor.Serialize) and then
// base64-encoded implicitly by encoding/json's []byte handling, keeping the
// file format a single, diffable JSON document despite the descriptor itself
// being a binary blob.
type jsonRecord struct {
	Descriptor []byte  `json:"descriptor"`
	Cost       float64 `json:"cost"`
}

// JSONFileDatabase is a Database backed by a single JSON file on disk,
// read fully into memory on open and rewritten atomically on every Add. It is
// meant for single-machine, modest-size tuning runs (spec.md leaves the
// on-disk format unspecified; JSON is the deliberate, human-inspectable choice
// documented in SPEC_FULL.md's DOMAIN STACK table).
type JSONFileDatabase struct {
	mu      sync.RWMutex
	path    string
	records map[string][]jsonRecord
}

// OpenJSONFileDatabase loads path if it exists, or starts empty if it does not.
func OpenJSONFileDatabase(path string) (*JSONFileDatabase, error) {
	db := &JSONFileDatabase{path: path, records: make(map[string][]jsonRecord)}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return db, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "database.OpenJSONFileDatabase(%q)", path)
	}
	if len(data) == 0 {
		return db, nil
	}
	if err := json.Unmarshal(data, &db.records); err != nil {
		return nil, errors.Wrapf(err, "database.OpenJSONFileDatabase(%q): malformed JSON", path)
	}
	return db, nil
}

// TopK implements Database.
func (db *JSONFileDatabase) TopK(taskKey string, k int) ([]Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	raw := db.records[taskKey]
	if len(raw) == 0 {
		return nil, nil
	}
	decoded := make([]Record, 0, len(raw))
	for _, jr := range raw {
		descriptor, err := ir.DeserializeScheduleDescriptor(jr.Descriptor)
		if err != nil {
			return nil, errors.Wrapf(err, "database.JSONFileDatabase.TopK(%q)", taskKey)
		}
		decoded = append(decoded, Record{Descriptor: descriptor, Cost: jr.Cost})
	}
	return topKOf(decoded, k), nil
}

// Add implements Database, and persists the updated store to disk before returning.
func (db *JSONFileDatabase) Add(taskKey string, record Record) error {
	data, err := record.Descriptor.Serialize()
	if err != nil {
		return errors.Wrap(err, "database.JSONFileDatabase.Add")
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.records[taskKey] = append(db.records[taskKey], jsonRecord{Descriptor: data, Cost: record.Cost})
	return db.persistLocked()
}

func (db *JSONFileDatabase) persistLocked() error {
	data, err := json.Marshal(db.records)
	if err != nil {
		return errors.Wrap(err, "database.JSONFileDatabase: marshal")
	}
	tmp := db.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "database.JSONFileDatabase: write %q", tmp)
	}
	if err := os.Rename(tmp, db.path); err != nil {
		return errors.Wrapf(err, "database.JSONFileDatabase: rename %q -> %q", tmp, db.path)
	}
	return nil
}
