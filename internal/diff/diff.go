// Package diff computes minimal field-level differences between an edit
// form's baseline and its current values, so that saves ship only what
// changed.
//
// Values are compared by their canonical JSON form: map keys are sorted by
// encoding/json, numbers compare by their decimal text, and fields declared
// as sets compare independently of element order. Sequences (itinerary days,
// highlights) stay order sensitive.
package diff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"sort"
)

// Record is a flat view of an entity keyed by JSON field name.
type Record map[string]any

// Options tunes the comparison.
type Options struct {
	// Sets names fields whose values are unordered collections.
	Sets []string
}

func (o Options) isSet(field string) bool {
	for _, s := range o.Sets {
		if s == field {
			return true
		}
	}
	return false
}

// Diff returns every field present in baseline or current whose canonical
// value differs, carrying current's value. A field missing from current is
// reported with a nil value. Equal records yield an empty, non-nil Record.
func Diff(baseline, current Record, opts Options) Record {
	out := Record{}
	for field, cur := range current {
		base, ok := baseline[field]
		if !ok || !Equal(base, cur, opts.isSet(field)) {
			out[field] = cur
		}
	}
	for field, base := range baseline {
		if _, ok := current[field]; ok {
			continue
		}
		if base != nil {
			out[field] = nil
		}
	}
	return out
}

// Equal reports whether a and b have the same canonical form. When
// unordered is set and both values are collections, element order is
// ignored.
func Equal(a, b any, unordered bool) bool {
	ca, errA := canonical(a, unordered)
	cb, errB := canonical(b, unordered)
	if errA != nil || errB != nil {
		return false
	}
	return ca == cb
}

func canonical(v any, unordered bool) (string, error) {
	norm, err := normalize(v)
	if err != nil {
		return "", err
	}
	if unordered {
		if items, ok := norm.([]any); ok {
			parts := make([]string, 0, len(items))
			for _, it := range items {
				p, err := json.Marshal(it)
				if err != nil {
					return "", err
				}
				parts = append(parts, string(p))
			}
			sort.Strings(parts)
			b, err := json.Marshal(parts)
			return string(b), err
		}
	}
	b, err := json.Marshal(norm)
	return string(b), err
}

// normalize round-trips v through JSON so that typed Go values (ints,
// structs, time.Time) and decoded wire values share one representation.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToRecord flattens an entity into a Record keyed by JSON field name.
func ToRecord(v any) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out Record
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return out, nil
}

// Project keeps only the listed fields of r. Listed fields missing from r
// are omitted.
func Project(r Record, fields []string) Record {
	out := make(Record, len(fields))
	for _, f := range fields {
		if v, ok := r[f]; ok {
			out[f] = v
		}
	}
	return out
}

// Clone returns a shallow copy of r.
func Clone(r Record) Record {
	if r == nil {
		return Record{}
	}
	return maps.Clone(r)
}

// Apply overlays patch onto entity and decodes the result back into T.
func Apply[T any](entity T, patch Record) (T, error) {
	var zero T
	rec, err := ToRecord(entity)
	if err != nil {
		return zero, err
	}
	for k, v := range patch {
		rec[k] = v
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return zero, fmt.Errorf("encode patched record: %w", err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("decode patched record: %w", err)
	}
	return out, nil
}
