// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"bytes"
	"encoding/gob"
	"hash/fnv"

	"github.com/pkg/errors"
)

// Primitive is the closed set of schedule transforms a Step can apply.
type Primitive int

const (
	PrimitiveTile Primitive = iota
	PrimitiveSplit
	PrimitiveFuse
	PrimitiveReorder
	PrimitiveBind
	PrimitiveInline
)

func (p Primitive) String() string {
	switch p {
	case PrimitiveTile:
		return "Tile"
	case PrimitiveSplit:
		return "Split"
	case PrimitiveFuse:
		return "Fuse"
	case PrimitiveReorder:
		return "Reorder"
	case PrimitiveBind:
		return "Bind"
	case PrimitiveInline:
		return "Inline"
	default:
		return "Unknown"
	}
}

// AttrValue is a closed sum type for the scalar/slice attributes a Step's
// primitive needs (an int factor, a handle list for Reorder, a bind target
// string, ...). Exactly one field is meaningful per Step, selected by Primitive.
type AttrValue struct {
	Int     int
	Handle  Handle
	Handles []Handle
	Text    string
}

// Step is one primitive schedule transform applied to a named function, fully
// capturing the arguments needed to replay it against a fresh copy of the base
// module. Steps are the atoms a ScheduleDescriptor is a sequence of.
type Step struct {
	FuncName  string
	Primitive Primitive
	Target    Handle
	Secondary Handle // used by Fuse (second loop) and Split (new inner handle).
	Attr      AttrValue
}

// ScheduleDescriptor is the serializable, replayable trace of every schedule
// primitive applied to a BaseModule, in application order. It is the unit of
// storage in the tuning Database and the unit of mutation for MutateRules: a
// descriptor carries no reference to live IR, so it can be cloned, hashed, and
// diffed cheaply regardless of how large the underlying module is.
type ScheduleDescriptor struct {
	Steps []Step
}

// NewScheduleDescriptor returns an empty descriptor, ready to have steps appended.
func NewScheduleDescriptor() *ScheduleDescriptor {
	return &ScheduleDescriptor{}
}

// Append adds a step to the end of the descriptor and returns the receiver, so
// calls can be chained the way sketch-generation rules build up a descriptor.
func (d *ScheduleDescriptor) Append(step Step) *ScheduleDescriptor {
	d.Steps = append(d.Steps, step)
	return d
}

// Len returns the number of steps in the descriptor.
func (d *ScheduleDescriptor) Len() int {
	return len(d.Steps)
}

// Clone returns a structurally independent copy: appending to the clone never
// affects the original, and vice versa.
func (d *ScheduleDescriptor) Clone() *ScheduleDescriptor {
	cp := &ScheduleDescriptor{Steps: make([]Step, len(d.Steps))}
	for i, s := range d.Steps {
		cp.Steps[i] = Step{
			FuncName:  s.FuncName,
			Primitive: s.Primitive,
			Target:    s.Target,
			Secondary: s.Secondary,
			Attr: AttrValue{
				Int:     s.Attr.Int,
				Handle:  s.Attr.Handle,
				Handles: append([]Handle(nil), s.Attr.Handles...),
				Text:    s.Attr.Text,
			},
		}
	}
	return cp
}

// WithStepsRemoved returns a clone with the step at the given index removed.
// Used by mutate rules that drop a step (e.g. undoing a tiling decision).
func (d *ScheduleDescriptor) WithStepsRemoved(index int) *ScheduleDescriptor {
	cp := d.Clone()
	cp.Steps = append(cp.Steps[:index], cp.Steps[index+1:]...)
	return cp
}

// WithStepReplaced returns a clone with the step at the given index replaced.
func (d *ScheduleDescriptor) WithStepReplaced(index int, step Step) *ScheduleDescriptor {
	cp := d.Clone()
	cp.Steps[index] = step
	return cp
}

// Equal reports whether two descriptors encode the same sequence of steps.
func (d *ScheduleDescriptor) Equal(other *ScheduleDescriptor) bool {
	if other == nil || len(d.Steps) != len(other.Steps) {
		return false
	}
	for i, s := range d.Steps {
		o := other.Steps[i]
		if s.FuncName != o.FuncName || s.Primitive != o.Primitive || s.Target != o.Target || s.Secondary != o.Secondary {
			return false
		}
		if s.Attr.Int != o.Attr.Int || s.Attr.Handle != o.Attr.Handle || s.Attr.Text != o.Attr.Text {
			return false
		}
		if len(s.Attr.Handles) != len(o.Attr.Handles) {
			return false
		}
		for j, h := range s.Attr.Handles {
			if h != o.Attr.Handles[j] {
				return false
			}
		}
	}
	return true
}

// Hash computes an FNV-1a digest of the descriptor's encoded steps, used by
// VisitedSet to dedup descriptors without storing the full structure.
func (d *ScheduleDescriptor) Hash() uint64 {
	h := fnv.New64a()
	for _, s := range d.Steps {
		h.Write([]byte(s.FuncName))
		h.Write([]byte{byte(s.Primitive)})
		h.Write([]byte(s.Target))
		h.Write([]byte(s.Secondary))
		h.Write([]byte(s.Attr.Text))
		var buf [8]byte
		for i := 0; i < 8; i++ {
			buf[i] = byte(s.Attr.Int >> (8 * i))
		}
		h.Write(buf[:])
		for _, hh := range s.Attr.Handles {
			h.Write([]byte(hh))
		}
	}
	return h.Sum64()
}

// Serialize encodes the descriptor using encoding/gob. This is a closed,
// fixed-shape Go-to-Go format: it is used only for persisting descriptors into
// a Database and reading them back with the same binary, never as a wire
// format exposed outside the process.
func (d *ScheduleDescriptor) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(d); err != nil {
		return nil, errors.Wrap(err, "ir.ScheduleDescriptor.Serialize")
	}
	return buf.Bytes(), nil
}

// DeserializeScheduleDescriptor decodes a descriptor previously produced by Serialize.
func DeserializeScheduleDescriptor(data []byte) (*ScheduleDescriptor, error) {
	var d ScheduleDescriptor
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&d); err != nil {
		return nil, errors.Wrap(err, "ir.DeserializeScheduleDescriptor")
	}
	return &d, nil
}
