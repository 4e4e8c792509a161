// Package payload walks decoded JSON values by dotted path expressions.
// Decoded JSON already is a tagged tree in Go (map / slice / scalar), so
// the walker dispatches on those three cases rather than reflecting.
package payload

import (
	"strconv"
	"strings"
)

// Walk resolves a dotted path like "data.items.0.name" against a decoded
// JSON value. Numeric segments index into arrays. The boolean reports
// whether the full path resolved.
func Walk(value interface{}, path string) (interface{}, bool) {
	if path == "" {
		return value, true
	}

	current := value
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []interface{}:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}

	return current, true
}

// WalkArray resolves a path and returns the array found there. A non-array
// value at the path returns ok=false; the caller decides whether that is
// an error.
func WalkArray(value interface{}, path string) ([]interface{}, bool) {
	found, ok := Walk(value, path)
	if !ok {
		return nil, false
	}
	arr, ok := found.([]interface{})
	return arr, ok
}
