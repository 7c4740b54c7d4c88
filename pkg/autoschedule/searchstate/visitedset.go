// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package searchstate

import "github.com/gomlx/autoschedule/pkg/support/sets"

// VisitedSet tracks SearchState identities by descriptor hash. It is
// insert-only and strictly monotonic within one search session, matching
// spec.md §3: a session never "forgets" a descriptor it has already
// returned, so SearchEpsGreedy never returns the same descriptor twice in one
// session. Candidates are scored before this check, so a repeated descriptor
// may still be scored again.
type VisitedSet struct {
	hashes sets.Set[uint64]
}

// NewVisitedSet returns an empty VisitedSet.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{hashes: sets.Make[uint64]()}
}

// Contains reports whether state's descriptor hash has already been recorded.
func (v *VisitedSet) Contains(state State) bool {
	return v.hashes.Has(state.Hash())
}

// Insert records state's descriptor hash as visited.
func (v *VisitedSet) Insert(state State) {
	v.hashes.Insert(state.Hash())
}

// Len returns the number of distinct hashes recorded.
func (v *VisitedSet) Len() int {
	return len(v.hashes)
}
