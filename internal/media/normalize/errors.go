package normalize

import (
	"fmt"

	"scribe/internal/services"
)

// ConversionError reports a failed normalization. It matches
// services.ErrConversion with errors.Is.
type ConversionError struct {
	Input  string
	Output string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s: %v", e.Input, e.Err)
}

func (e *ConversionError) Unwrap() []error {
	return []error{services.ErrConversion, e.Err}
}
