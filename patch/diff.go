package patch

import (
	"reflect"
	"sort"

	"github.com/tbxark/hrdesk/types"
)

// Diff returns the operations that move current towards target. Zero target
// values (empty string, false, nil) are skipped so a partial suggestion never
// clears what is already filled in. Use Replace for a complete submission.
func Diff(current, target types.Values) []Operation {
	keys := make([]string, 0, len(target))
	for k := range target {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ops := make([]Operation, 0, len(keys))
	for _, key := range keys {
		value := target[key]
		if isZeroValue(value) {
			continue
		}
		path := "/" + escapeJSONPointer(key)
		currentValue, exists := current[key]
		switch {
		case !exists:
			ops = append(ops, Operation{Op: OperationAdd, Path: path, Value: value})
		case !reflect.DeepEqual(currentValue, value):
			ops = append(ops, Operation{Op: OperationReplace, Path: path, Value: value})
		}
	}
	return ops
}

func isZeroValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case float64:
		return val == 0
	case bool:
		return !val
	default:
		return false
	}
}

// Replace returns one replace operation per key of values, zero values
// included, in key order. It carries a complete submission where a cleared
// field or an unticked checkbox must overwrite what was stored.
func Replace(values types.Values) []Operation {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ops := make([]Operation, 0, len(keys))
	for _, key := range keys {
		ops = append(ops, Operation{Op: OperationReplace, Path: "/" + escapeJSONPointer(key), Value: values[key]})
	}
	return ops
}
