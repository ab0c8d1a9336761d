package prefs

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// number widens any numeric representation the decoders produce.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
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
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Number returns v as a float64 if it is numeric.
func Number(v any) (float64, bool) {
	return number(v)
}

// scalar widens numbers and booleans (true is 1, false is 0).
func scalar(v any) (float64, bool) {
	if b, ok := v.(bool); ok {
		if b {
			return 1, true
		}
		return 0, true
	}
	return number(v)
}

// Equal compares a stored preference value with a configured one. Numbers
// compare by value whatever their Go type, and a boolean equals the number
// 1 or 0 it stands for.
func Equal(a, b any) bool {
	x, okA := scalar(a)
	y, okB := scalar(b)
	if okA || okB {
		return okA && okB && x == y
	}
	return reflect.DeepEqual(a, b)
}

// Truthy reports whether v is set to something other than false, zero or
// empty.
func Truthy(v any) bool {
	if v == nil {
		return false
	}
	if n, ok := number(v); ok {
		return n != 0
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() > 0
	}
	return true
}

// Format renders a value for display; an absent value reads "Not set".
func Format(v any) string {
	if v == nil {
		return "Not set"
	}
	if n, ok := number(v); ok {
		return fmt.Sprintf("%g", n)
	}
	return fmt.Sprintf("%v", v)
}
