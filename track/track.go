// Package track holds M2 animated values: keyframes bound either to every
// sequence of the model or to one global sequence.
package track

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

type Interpolation uint16

const (
	None Interpolation = iota
	Linear
	Bezier
	Hermite
)

func (i Interpolation) String() string {
	switch i {
	case None:
		return "none"
	case Linear:
		return "linear"
	case Bezier:
		return "bezier"
	case Hermite:
		return "hermite"
	}
	return fmt.Sprintf("interpolation(%d)", uint16(i))
}

func (i Interpolation) Valid() bool {
	return i <= Hermite
}

type Keys[T any] struct {
	Timestamps []uint32 `json:"timestamps" yaml:"timestamps,flow"`
	Values     []T      `json:"values" yaml:"values"`
}

func (k Keys[T]) Len() int {
	return len(k.Timestamps)
}

// Track stores keyframes per sequence, or a single set driven by a global sequence.
// The storage shape is chosen at creation and never changes. The zero Track is an
// empty per-sequence track.
type Track[T any] struct {
	Interpolation Interpolation
	Sequences     []Keys[T]

	global    bool
	globalSeq int
}

func NewPerSequence[T any](interp Interpolation, numSequences int) Track[T] {
	return Track[T]{
		Interpolation: interp,
		Sequences:     make([]Keys[T], numSequences),
	}
}

func NewGlobal[T any](interp Interpolation, globalSequence int) Track[T] {
	return Track[T]{
		Interpolation: interp,
		Sequences:     make([]Keys[T], 1),
		global:        true,
		globalSeq:     globalSequence,
	}
}

// Constant builds a single-key track holding v in every sequence.
func Constant[T any](v T, numSequences int) Track[T] {
	t := NewPerSequence[T](None, numSequences)
	for i := range t.Sequences {
		t.Sequences[i] = Keys[T]{Timestamps: []uint32{0}, Values: []T{v}}
	}
	return t
}

func (t *Track[T]) IsGlobal() bool {
	return t.global
}

// GlobalSequence is -1 for per-sequence tracks.
func (t *Track[T]) GlobalSequence() int {
	if !t.global {
		return -1
	}
	return t.globalSeq
}

func (t *Track[T]) Empty() bool {
	for _, k := range t.Sequences {
		if len(k.Timestamps) != 0 {
			return false
		}
	}
	return true
}

// Keys returns the keyframes used for sequence seq. Global tracks ignore seq.
func (t *Track[T]) Keys(seq int) Keys[T] {
	if t.global {
		if len(t.Sequences) != 0 {
			return t.Sequences[0]
		}
		return Keys[T]{}
	}
	if seq < 0 || seq >= len(t.Sequences) {
		return Keys[T]{}
	}
	return t.Sequences[seq]
}

// Set replaces the keyframes of seq. Global tracks ignore seq.
func (t *Track[T]) Set(seq int, timestamps []uint32, values []T) error {
	if len(timestamps) != len(values) {
		return errors.Errorf("%d timestamps for %d values", len(timestamps), len(values))
	}
	if t.global {
		seq = 0
		if len(t.Sequences) == 0 {
			t.Sequences = make([]Keys[T], 1)
		}
	}
	if seq < 0 {
		return errors.Errorf("negative sequence %d", seq)
	}
	for len(t.Sequences) <= seq {
		t.Sequences = append(t.Sequences, Keys[T]{})
	}
	t.Sequences[seq] = Keys[T]{Timestamps: timestamps, Values: values}
	return nil
}

// Resize keeps per-sequence slots in step with the sequence table.
func (t *Track[T]) Resize(numSequences int) {
	if t.global {
		return
	}
	if len(t.Sequences) > numSequences {
		t.Sequences = t.Sequences[:numSequences]
	}
	for len(t.Sequences) < numSequences {
		t.Sequences = append(t.Sequences, Keys[T]{})
	}
}

// Remap reorders per-sequence slots: slot i moves to newIndex[i]. Slots mapped to -1 are dropped.
func (t *Track[T]) Remap(newIndex []int, numSequences int) {
	if t.global {
		return
	}
	result := make([]Keys[T], numSequences)
	for old, k := range t.Sequences {
		if old < len(newIndex) && newIndex[old] >= 0 && newIndex[old] < numSequences {
			result[newIndex[old]] = k
		}
	}
	t.Sequences = result
}

// Validate checks ascending timestamps inside [0, duration]. durations is indexed
// by sequence, or holds the global sequence durations for global tracks.
func (t *Track[T]) Validate(sequenceDurations, globalDurations []uint32) error {
	for seq, k := range t.Sequences {
		if len(k.Timestamps) != len(k.Values) {
			return errors.Errorf("slot %d: %d timestamps for %d values", seq, len(k.Timestamps), len(k.Values))
		}
		var limit uint32
		hasLimit := false
		if t.global {
			if t.globalSeq < len(globalDurations) {
				limit, hasLimit = globalDurations[t.globalSeq], true
			}
		} else if seq < len(sequenceDurations) {
			limit, hasLimit = sequenceDurations[seq], true
		}
		for i, ts := range k.Timestamps {
			if i > 0 && ts <= k.Timestamps[i-1] {
				return errors.Errorf("slot %d: timestamp %d not after %d", seq, ts, k.Timestamps[i-1])
			}
			if hasLimit && ts > limit {
				return errors.Errorf("slot %d: timestamp %d beyond duration %d", seq, ts, limit)
			}
		}
	}
	return nil
}

type trackView[T any] struct {
	Interpolation  Interpolation `json:"interpolation" yaml:"interpolation"`
	GlobalSequence int           `json:"global_sequence" yaml:"global_sequence"`
	Sequences      []Keys[T]     `json:"sequences,omitempty" yaml:"sequences,omitempty"`
}

func (t Track[T]) view() trackView[T] {
	v := trackView[T]{Interpolation: t.Interpolation, GlobalSequence: t.GlobalSequence()}
	if !t.Empty() {
		v.Sequences = t.Sequences
	}
	return v
}

func (t Track[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.view())
}

func (t Track[T]) MarshalYAML() (interface{}, error) {
	return t.view(), nil
}

func (i Interpolation) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Interpolation) UnmarshalText(text []byte) error {
	for c := None; c <= Hermite; c++ {
		if c.String() == string(text) {
			*i = c
			return nil
		}
	}
	return errors.Errorf("unknown interpolation %q", text)
}

func (t *Track[T]) UnmarshalJSON(data []byte) error {
	var v trackView[T]
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	t.Interpolation = v.Interpolation
	t.Sequences = v.Sequences
	t.global = v.GlobalSequence >= 0
	t.globalSeq = max(v.GlobalSequence, 0)
	if t.global && len(t.Sequences) == 0 {
		t.Sequences = make([]Keys[T], 1)
	}
	return nil
}
