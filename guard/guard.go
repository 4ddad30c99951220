// Package guard provides assertion helpers for precondition checks at
// construction boundaries. Every check returns nil or a *ValidationError
// carrying the caller's message.
package guard

import (
	"errors"
	"reflect"
	"strings"
)

// ErrValidation is wrapped by every ValidationError. Use errors.Is to check.
var ErrValidation = errors.New("validation failed")

// ValidationError is a construction-time contract violation.
type ValidationError struct {
	Reason string
	// Err optionally carries the underlying cause (e.g. a schema validator error).
	Err error
}

func (e *ValidationError) Error() string { return e.Reason }

// Is reports ErrValidation so callers can match any guard failure.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Err }

// Guard returns a ValidationError with msg when cond is false.
func Guard(cond bool, msg string) error {
	if !cond {
		return &ValidationError{Reason: msg}
	}
	return nil
}

// NotNil fails for a nil interface and for typed nil pointers, maps, slices,
// channels and funcs.
func NotNil(v any, msg string) error {
	return Guard(!isNil(v), msg)
}

// NotEmpty fails when s is blank after trimming whitespace.
func NotEmpty(s string, msg string) error {
	return Guard(strings.TrimSpace(s) != "", msg)
}

// NotEmptySlice fails when s has no elements.
func NotEmptySlice[T any](s []T, msg string) error {
	return Guard(len(s) > 0, msg)
}

// NotEmptyMap fails when m has no keys.
func NotEmptyMap[K comparable, V any](m map[K]V, msg string) error {
	return Guard(len(m) > 0, msg)
}

// NoDuplicates fails when any element of s appears more than once.
// Empty and nil slices pass.
func NoDuplicates[T comparable](s []T, msg string) error {
	seen := make(map[T]struct{}, len(s))
	for _, v := range s {
		if _, ok := seen[v]; ok {
			return &ValidationError{Reason: msg}
		}
		seen[v] = struct{}{}
	}
	return nil
}

// First returns the first non-nil error. Checks are evaluated by the caller in
// argument order, so the first failing precondition wins.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// IsValidationError returns true if err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
