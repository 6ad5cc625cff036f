// Package progress folds graded quiz results into student records.
//
// Student documents exist in two historical shapes: an older flat
// "quizzesCompleted" counter at the root, and a nested "progress" object
// carrying "quizzesCompleted" and "totalPoints". Both are still read and
// written here; collapsing them is the job of the migrate package.
//
// Reconcile is a pure transform. Callers persisting its output must do the
// read, reconcile, and write under one atomic step (see store.StudentStore);
// a plain read-then-write loses updates when one student submits twice
// concurrently.
package progress

import (
	"reflect"

	"github.com/mind-engage/mindengage-french/internal/grading"
)

const (
	FieldQuizzesCompleted = "quizzesCompleted"
	FieldProgress         = "progress"
	FieldTotalPoints      = "totalPoints"
)

// Record is a student document as stored.
type Record map[string]any

// Shape is the resolved progress layout of a Record.
type Shape interface{ isShape() }

type LegacyFlat struct{ Count float64 }

type Nested struct {
	Progress map[string]any
	Count    float64
}

type Uninitialized struct{}

func (LegacyFlat) isShape()    {}
func (Nested) isShape()        {}
func (Uninitialized) isShape() {}

// Resolve picks the shape of rec. A numeric root counter wins over a nested
// object; a nested object only counts when its own counter is numeric.
func Resolve(rec Record) Shape {
	if n, ok := Number(rec[FieldQuizzesCompleted]); ok {
		return LegacyFlat{Count: n}
	}
	if p, ok := asMap(rec[FieldProgress]); ok {
		if n, ok := Number(p[FieldQuizzesCompleted]); ok {
			return Nested{Progress: p, Count: n}
		}
	}
	return Uninitialized{}
}

// Reconcile returns the record that follows prior once res is counted.
// prior is not modified.
func Reconcile(prior Record, res grading.Result) Record {
	next := Clone(prior)
	switch s := Resolve(prior).(type) {
	case LegacyFlat:
		next[FieldQuizzesCompleted] = s.Count + 1
	case Nested:
		p := make(map[string]any, len(s.Progress)+1)
		for k, v := range s.Progress {
			p[k] = v
		}
		total, _ := Number(p[FieldTotalPoints])
		p[FieldQuizzesCompleted] = s.Count + 1
		p[FieldTotalPoints] = total + float64(res.EarnedPoints)
		next[FieldProgress] = p
	default:
		next[FieldQuizzesCompleted] = float64(1)
	}
	return next
}

// Changes lists the top-level fields of next that differ from prior, for use
// as a partial update.
func Changes(prior, next Record) map[string]any {
	out := map[string]any{}
	for k, v := range next {
		if old, ok := prior[k]; !ok || !reflect.DeepEqual(old, v) {
			out[k] = v
		}
	}
	return out
}

// Clone copies the top level of rec. Nested values are shared.
func Clone(rec Record) Record {
	out := make(Record, len(rec)+1)
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// Number reports v as a float64 when it holds any numeric kind that JSON or
// BSON decoding can produce.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Record:
		return m, true
	}
	// bson.M and other named map types
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}
