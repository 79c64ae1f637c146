package ir

import (
	"encoding/json"
	"math/big"
	"reflect"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Restore converts a value decoded from canonical JSON back into the Go
// kind accepted by the attribute's type tags. Collection elements follow
// the consists_of types and hash keys follow the schema. Values no tag can
// restore are returned unchanged.
func (a *Attribute) Restore(v any) any {
	v = RestoreValue(a.Types, v)
	for _, r := range a.Rules {
		switch r := r.(type) {
		case *ConsistsOf:
			if !r.Disabled {
				v = restoreElements(r.Types, v)
			}
		case *Schema:
			v = restoreFields(r.Fields, v)
		}
	}
	return v
}

// RestoreValue converts v to the first of tags it can be restored to. With
// no tags v is returned unchanged.
func RestoreValue(tags []TypeTag, v any) any {
	if v == nil || len(tags) == 0 || MatchesAny(tags, v) && !needsRestore(tags, v) {
		return v
	}
	for _, t := range tags {
		if out, ok := restoreTo(t, v); ok && t.Matches(out) {
			return out
		}
	}
	return v
}

// needsRestore reports whether a matching decoded value still has a more
// specific tag ahead of the one it matches, such as a string under Time.
func needsRestore(tags []TypeTag, v any) bool {
	for _, t := range tags {
		if t.Matches(v) {
			return false
		}
		if _, ok := restoreTo(t, v); ok {
			return true
		}
	}
	return false
}

func restoreTo(t TypeTag, v any) (any, bool) {
	if rt := t.GoType(); rt != nil {
		return restoreGoType(rt, v)
	}
	switch t.Name {
	case Time.Name:
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		return ts, err == nil
	case Duration.Name:
		n, ok := v.(int64)
		return time.Duration(n), ok
	case Rational.Name:
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		return new(big.Rat).SetString(s)
	case Decimal.Name:
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		d, _, err := apd.NewFromString(s)
		return d, err == nil
	case Float.Name:
		n, ok := v.(int64)
		return float64(n), ok
	}
	return nil, false
}

func restoreGoType(rt reflect.Type, v any) (any, bool) {
	if reflect.TypeOf(v) == rt {
		return v, true
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	ptr := reflect.New(rt)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, false
	}
	return ptr.Elem().Interface(), true
}

func restoreElements(tags []TypeTag, v any) any {
	arr, ok := v.([]any)
	if !ok || len(tags) == 0 {
		return v
	}
	out := make([]any, len(arr))
	for i, elem := range arr {
		out[i] = RestoreValue(tags, elem)
	}
	return out
}

func restoreFields(fields []SchemaField, v any) any {
	obj, ok := v.(map[string]any)
	if !ok || len(fields) == 0 {
		return v
	}
	out := make(map[string]any, len(obj))
	for k, elem := range obj {
		out[k] = elem
	}
	for _, f := range fields {
		elem, ok := out[f.Name]
		if !ok {
			continue
		}
		elem = RestoreValue(f.Types, elem)
		out[f.Name] = restoreFields(f.Fields, elem)
	}
	return out
}

// SameKind reports whether restored stands in for original: the same Go
// type, or both integers, or both floats.
func SameKind(original, restored any) bool {
	if reflect.TypeOf(original) == reflect.TypeOf(restored) {
		return true
	}
	if isInteger(original) {
		return isInteger(restored)
	}
	if isFloat(original) {
		return isFloat(restored)
	}
	return false
}

// RoundTrips reports whether v survives canonical JSON encoding followed by
// Restore on attr: the restored value has the same kind and encodes to the
// same bytes.
func (a *Attribute) RoundTrips(v any) bool {
	data, err := MarshalCanonical(v)
	if err != nil {
		return false
	}
	decoded, err := DecodeJSON(data)
	if err != nil {
		return false
	}
	restored := a.Restore(decoded)
	if !SameKind(v, restored) {
		return false
	}
	again, err := MarshalCanonical(restored)
	return err == nil && string(again) == string(data)
}
