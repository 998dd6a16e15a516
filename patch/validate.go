package patch

import (
	"errors"
	"fmt"
)

// ErrInvalidOperation marks an operation that is not allowed on a form.
var ErrInvalidOperation = errors.New("invalid patch operation")

// FieldPaths returns the allowed path set for a flat form with the given field names.
func FieldPaths(names ...string) map[string]bool {
	paths := make(map[string]bool, len(names))
	for _, name := range names {
		paths["/"+escapeJSONPointer(name)] = true
	}
	return paths
}

func Validate(ops []Operation, allowedPaths map[string]bool) error {
	for i, op := range ops {
		switch op.Op {
		case OperationAdd, OperationRemove, OperationReplace:
		default:
			return fmt.Errorf("operation %d: %w: unsupported op %q", i, ErrInvalidOperation, op.Op)
		}
		if err := validatePathAllowed(op.Path, allowedPaths); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}
	return nil
}

func validatePathAllowed(path string, allowedPaths map[string]bool) error {
	if len(allowedPaths) == 0 {
		return nil
	}
	if allowedPaths[path] {
		return nil
	}
	return fmt.Errorf("%w: path %q is not in the allowed paths set", ErrInvalidOperation, path)
}
