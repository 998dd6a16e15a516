package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tbxark/hrdesk/types"
)

var (
	ErrLocked       = errors.New("form is locked")
	ErrSubmitting   = errors.New("form submission already in progress")
	ErrUnknownField = errors.New("unknown field")
)

// ValidationError is returned by Submit when at least one field fails validation.
type ValidationError struct {
	Errors types.FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Errors[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
