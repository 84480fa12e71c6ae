package store

import (
	"encoding/json"

	"github.com/dustin/go-humanize"
)

// Byte-accounting constants. The goal is a stable, monotone approximation
// of the footprint of a JSON value, not exact heap bytes: every string
// costs a constant header plus its byte length, scalars cost one word,
// containers cost a constant header plus the sum of their members.
const (
	// stringOverhead approximates the header of a string value.
	stringOverhead = 16
	// scalarSize approximates booleans and numbers.
	scalarSize = 8
	// containerOverhead approximates the header of an array or object.
	containerOverhead = 48
)

// StringSize returns the accounted size of a string.
func StringSize(s string) uint64 {
	return stringOverhead + uint64(len(s))
}

// DeepSize returns the accounted size of a decoded JSON value.
//
// null costs nothing, scalars cost a word, strings cost StringSize,
// arrays and objects cost containerOverhead plus the sum of their members
// (object keys counted as strings). Values outside the decoded-JSON type
// set are measured by the length of their JSON encoding.
func DeepSize(v any) uint64 {
	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		return scalarSize
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return scalarSize
	case json.Number:
		return scalarSize
	case string:
		return StringSize(x)
	case []any:
		total := uint64(containerOverhead)
		for _, item := range x {
			total += DeepSize(item)
		}

		return total
	case map[string]any:
		total := uint64(containerOverhead)
		for key, item := range x {
			total += StringSize(key) + DeepSize(item)
		}

		return total
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return scalarSize
		}

		return containerOverhead + uint64(len(encoded))
	}
}

// EntrySize returns the accounted size of one key-value entry, the unit
// the memory-limited cache charges against its budget.
func EntrySize(key string, value any) uint64 {
	return StringSize(key) + DeepSize(value)
}

// HumanBytes formats a byte count for humans, e.g. "1.2 MiB".
func HumanBytes(n uint64) string {
	return humanize.IBytes(n)
}
