// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package evolutionary

import "github.com/pkg/errors"

// ErrInvalidArgument is returned for malformed TuningOptions or a CrossOver
// arity mismatch. Per spec.md §7, these abort the call and never touch the
// session's VisitedSet.
var ErrInvalidArgument = errors.New("evolutionary: invalid argument")

// ErrNotFound is returned when the task's base module is missing from the registry.
var ErrNotFound = errors.New("evolutionary: task not found in registry")

// ErrReplayFailed wraps a ScheduleDescriptor replay failure encountered while
// seeding from the database. Per spec.md §4.7.7, this is logged and the
// offending record is skipped; it never aborts the call.
var ErrReplayFailed = errors.New("evolutionary: replay failed")

// ErrExhaustedSpace is logged (never returned to the caller) when
// GenerateSketches produces fewer sketches than requested.
var ErrExhaustedSpace = errors.New("evolutionary: search space exhausted")
