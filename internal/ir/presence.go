package ir

import (
	"reflect"
	"strings"
)

// IsPresent reports whether v counts as supplied: not nil, not a blank
// string and not an empty collection. false and zero are present.
func IsPresent(v any) bool {
	if IsNil(v) {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return reflect.ValueOf(v).Len() > 0
	}
	return true
}

// HasBlankElement reports whether a slice or array contains an element that
// is not present.
func HasBlankElement(v any) bool {
	if IsNil(v) {
		return false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if !IsPresent(rv.Index(i).Interface()) {
			return true
		}
	}
	return false
}

// Truthy is the presence-accessor reading of a value: present, not false
// and not numeric zero.
func Truthy(v any) bool {
	if !IsPresent(v) {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	if r, ok := ToRat(v); ok {
		return r.Sign() != 0
	}
	return true
}
