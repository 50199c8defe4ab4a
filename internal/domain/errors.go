package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch marks a network or I/O failure while retrieving the dataset.
	ErrFetch = errors.New("dataset fetch failed")

	// ErrEmptyDataset means parsing or windowing left no usable rows.
	ErrEmptyDataset = errors.New("dataset has no valid rows")

	// ErrUnknownAgeBracket is wrapped by ClassificationError.
	ErrUnknownAgeBracket = errors.New("unknown age bracket")
)

// ClassificationError reports an age code outside the known enumeration.
type ClassificationError struct {
	Code string
	Date Day
}

func (e *ClassificationError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("classify age %q: %v", e.Code, ErrUnknownAgeBracket)
	}
	return fmt.Sprintf("classify age %q on %s: %v", e.Code, e.Date, ErrUnknownAgeBracket)
}

func (e *ClassificationError) Unwrap() error { return ErrUnknownAgeBracket }
