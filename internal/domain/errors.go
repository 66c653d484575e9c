package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for negative, missing or unparsable input fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDivisionByZero is returned when a ratio would divide by a zero quantity.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrIOFailure wraps failures persisting an output table.
	ErrIOFailure = errors.New("io failure")
	// ErrNotFound is returned when a persisted run does not exist.
	ErrNotFound = errors.New("not found")
)

// RecordError reports which record and which rule aborted a computation.
type RecordError struct {
	Row    int    // zero-based row index in the input table
	Record string // record identifier, empty if it could not be read
	Rule   string
	Err    error
}

func (e *RecordError) Error() string {
	if e.Record == "" {
		return fmt.Sprintf("row %d: %s: %v", e.Row, e.Rule, e.Err)
	}
	return fmt.Sprintf("row %d (%s): %s: %v", e.Row, e.Record, e.Rule, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// NewRecordError builds a RecordError around one of the sentinel errors.
func NewRecordError(row int, record, rule string, err error) *RecordError {
	return &RecordError{Row: row, Record: record, Rule: rule, Err: err}
}

// IOError wraps err so that errors.Is(err, ErrIOFailure) holds.
func IOError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrIOFailure, err)
}

// IsComputationError reports whether err was caused by bad input data rather than infrastructure.
func IsComputationError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrDivisionByZero)
}
