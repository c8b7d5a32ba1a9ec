package upload

import (
	"errors"
)

// Validation errors. Each maps to 400 and is detected before any
// conversion or storage write happens.
var (
	ErrNoFiles           = errors.New("no files uploaded")
	ErrTooManyFiles      = errors.New("too many files")
	ErrFileTooLarge      = errors.New("file size exceeds the limit")
	ErrBodyTooLarge      = errors.New("request body too large")
	ErrMissingIdentifier = errors.New("identifier missing: field name must be <prefix>/<bucket>")
	ErrMalformedRequest  = errors.New("malformed multipart request")
)

var validationErrors = []error{
	ErrNoFiles,
	ErrTooManyFiles,
	ErrFileTooLarge,
	ErrBodyTooLarge,
	ErrMissingIdentifier,
	ErrMalformedRequest,
}

// IsValidation reports whether err is (or wraps) a validation error.
func IsValidation(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
