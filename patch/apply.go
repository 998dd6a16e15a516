package patch

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/tbxark/hrdesk/types"
)

// Apply returns a patched copy of values. Every operation must target a path
// in allowed; an empty allowed set permits any path.
func Apply(values types.Values, ops []Operation, allowed map[string]bool) (types.Values, error) {
	if len(ops) == 0 {
		return values.Clone(), nil
	}
	if err := Validate(ops, allowed); err != nil {
		return nil, err
	}
	if values == nil {
		values = types.Values{}
	}

	currentJSON, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal values: %w", err)
	}

	ops = FixOperation(values, ops)
	if len(ops) == 0 {
		return values.Clone(), nil
	}

	patchJSON, err := json.Marshal(ops)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal patch operations: %w", err)
	}

	p, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode patch: %w", err)
	}

	modifiedJSON, err := p.Apply(currentJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to apply patch: %w", err)
	}

	var result types.Values
	if err := json.Unmarshal(modifiedJSON, &result); err != nil {
		return nil, fmt.Errorf("patched document is not an object: %w", err)
	}
	return result, nil
}

// FixOperation turns replace on a missing field into add and drops remove on a
// missing field. Models rarely know which fields already hold a value.
func FixOperation(values types.Values, ops []Operation) []Operation {
	fixed := make([]Operation, 0, len(ops))
	for _, op := range ops {
		_, exists := values[fieldName(op.Path)]
		switch op.Op {
		case OperationReplace:
			if !exists {
				op.Op = OperationAdd
			}
			fixed = append(fixed, op)
		case OperationRemove:
			if exists {
				fixed = append(fixed, op)
			}
		default:
			fixed = append(fixed, op)
		}
	}
	return fixed
}

func fieldName(path string) string {
	token := strings.TrimPrefix(path, "/")
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}

func escapeJSONPointer(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}
