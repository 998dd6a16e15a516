package types

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validator is an extra rule attached to a field. A nil error means the value passes.
type Validator interface {
	Validate(value any) error
}

type ValidatorFunc func(value any) error

func (f ValidatorFunc) Validate(value any) error {
	return f(value)
}

var EmailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// MinLength rejects strings shorter than n runes.
func MinLength(n int, message string) Validator {
	if message == "" {
		message = fmt.Sprintf("Must be at least %d characters.", n)
	}
	return ValidatorFunc(func(value any) error {
		s, _ := value.(string)
		if len([]rune(strings.TrimSpace(s))) < n {
			return errors.New(message)
		}
		return nil
	})
}

// Matches rejects strings that do not match re.
func Matches(re *regexp.Regexp, message string) Validator {
	return ValidatorFunc(func(value any) error {
		s, _ := value.(string)
		if !re.MatchString(s) {
			return errors.New(message)
		}
		return nil
	})
}

// OneOf rejects values outside the allowed set.
func OneOf(message string, allowed ...string) Validator {
	return ValidatorFunc(func(value any) error {
		s, _ := value.(string)
		for _, a := range allowed {
			if s == a {
				return nil
			}
		}
		return errors.New(message)
	})
}
