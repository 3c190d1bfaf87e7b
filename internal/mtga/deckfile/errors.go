package deckfile

import (
	"errors"
	"fmt"
)

// ErrMissingField matches any MissingFieldError.
var ErrMissingField = errors.New("missing field")

// MissingFieldError reports a required tag that is absent from the deck text.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q", e.Field)
}

// Is lets errors.Is(err, ErrMissingField) match.
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}
