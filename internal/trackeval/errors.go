package trackeval

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when the hit columns differ in length.
	ErrShapeMismatch = errors.New("hit columns differ in length")

	// ErrInvalidInputType is returned when a column is not a concrete,
	// materialised slice of a supported element type.
	ErrInvalidInputType = errors.New("column is not a materialised numeric slice")
)

// ShapeError reports the lengths of the hit columns that failed to line up.
type ShapeError struct {
	Truth           int
	Predicted       int
	PT              int
	Reconstructable int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("hit columns differ in length: truth=%d predicted=%d pt=%d reconstructable=%d",
		e.Truth, e.Predicted, e.PT, e.Reconstructable)
}

func (e *ShapeError) Unwrap() error { return ErrShapeMismatch }

// InputTypeError names the column and the Go type that was rejected.
type InputTypeError struct {
	Column string
	Type   string
}

func (e *InputTypeError) Error() string {
	return fmt.Sprintf("column %q: unsupported type %s", e.Column, e.Type)
}

func (e *InputTypeError) Unwrap() error { return ErrInvalidInputType }
