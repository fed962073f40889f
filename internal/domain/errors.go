package domain

import "errors"

var (
	ErrInvalidFit                 = errors.New("invalid fit mode")
	ErrConflictingDimensionParams = errors.New("size conflicts with width/height")
	ErrUnknownPresetSize          = errors.New("unknown preset size")
	ErrInvalidDimensions          = errors.New("width and height must be positive integers")
	ErrInvalidSourcePath          = errors.New("invalid source path")

	ErrSourceNotFound = errors.New("source object not found")
)

// IsValidation reports whether err belongs to the request-validation family,
// which always surfaces to the caller as a 400.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidFit) ||
		errors.Is(err, ErrConflictingDimensionParams) ||
		errors.Is(err, ErrUnknownPresetSize) ||
		errors.Is(err, ErrInvalidDimensions) ||
		errors.Is(err, ErrInvalidSourcePath)
}
