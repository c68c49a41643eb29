package shape

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyShape is returned when a shape with no fields is used.
	ErrEmptyShape = errors.New("output shape has no fields")
	// ErrEmptyInput is returned when the model output is blank.
	ErrEmptyInput = errors.New("model output is empty")
)

// JSONParseError carries the raw model output and the extracted candidate
// alongside the parser failure.
type JSONParseError struct {
	Err       error
	Raw       string
	Candidate string
}

func (e *JSONParseError) Error() string {
	return fmt.Sprintf("parse model output as JSON: %v", e.Err)
}

func (e *JSONParseError) Unwrap() error {
	return e.Err
}

// MissingKeyError names a declared field that is absent or null.
type MissingKeyError struct {
	Field string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing key %q in model output", e.Field)
}

// TypeMismatchError reports a value that cannot be coerced to its declared kind.
type TypeMismatchError struct {
	Field string
	Kind  Kind
	Value any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("field %q: expected %s, got %s %v", e.Field, e.Kind, jsonTypeName(e.Value), e.Value)
}

// UnknownKindError reports a field declared with an unsupported kind.
type UnknownKindError struct {
	Field string
	Kind  Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("field %q has unknown kind %q", e.Field, e.Kind)
}
