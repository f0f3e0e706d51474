package models

import (
	"errors"
	"fmt"
)

// ErrValidation tags entity field validation failures so callers can
// map them to bad-input responses.
var ErrValidation = errors.New("validation")

func invalidf(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, a...)...)
}
