// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package rng implements the deterministic random stream used throughout the
// auto-scheduling search: a 64-bit linear-congruential generator that supports
// forking an independent child stream, at the cost of advancing the parent's
// sequence by exactly one step per fork.
package rng

import "github.com/pkg/errors"

// normalizedZeroSeed is substituted whenever a caller passes a zero seed, so that
// the degenerate all-zero LCG state (which would stay zero forever) is never reached.
const normalizedZeroSeed uint64 = 0x9E3779B97F4A7C15

// lcgMultiplier and lcgIncrement are Knuth's MMIX constants for a 64-bit LCG.
const (
	lcgMultiplier uint64 = 6364136223846793005
	lcgIncrement  uint64 = 1442695040888963407
)

// Engine is a deterministic linear-congruential random stream.
//
// Given the same initial seed and the same sequence of calls, Engine produces
// bit-identical output on any platform: all arithmetic is done on unsigned 64-bit
// integers, with no floating point involved.
type Engine struct {
	state uint64
}

// normalize maps a zero state to a fixed nonzero constant, so the stream never
// gets stuck advancing through an all-zero state.
func normalize(seed uint64) uint64 {
	if seed == 0 {
		return normalizedZeroSeed
	}
	return seed
}

// New creates an Engine from the given seed. A zero seed is normalized to a fixed
// nonzero constant.
func New(seed uint64) *Engine {
	return &Engine{state: normalize(seed)}
}

// next advances the internal state by one LCG step and returns the new state.
func (e *Engine) next() uint64 {
	e.state = e.state*lcgMultiplier + lcgIncrement
	return e.state
}

// SampleUniformInt returns a uniformly distributed int in [lo, hi).
//
// It fails with an error wrapping ErrInvalidArgument if hi <= lo.
func (e *Engine) SampleUniformInt(lo, hi int) (int, error) {
	if hi <= lo {
		return 0, errors.Wrapf(ErrInvalidArgument, "SampleUniformInt(lo=%d, hi=%d): hi must be > lo", lo, hi)
	}
	span := uint64(hi - lo)
	raw := e.next()
	return lo + int(raw%span), nil
}

// Fork produces a child Engine whose seed is the next value of the parent's
// stream; this advances the parent exactly once. Forking twice in a row from the
// same parent state produces two distinct, independent child streams.
func (e *Engine) Fork() *Engine {
	childSeed := e.next()
	return New(childSeed)
}

// State returns the current internal state, mostly useful for logging/debugging.
func (e *Engine) State() uint64 {
	return e.state
}

// ErrInvalidArgument is wrapped by Engine methods given malformed arguments.
var ErrInvalidArgument = errors.New("autoschedule/rng: invalid argument")
