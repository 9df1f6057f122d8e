package apperr

import "errors"

// Sentinel errors shared across packages. Handlers translate them to
// HTTP statuses with errors.Is; everything unmatched becomes a 500.
var (
	ErrInvalidParameter = errors.New("invalid query parameter")
	ErrInvalidImage     = errors.New("invalid base64 image")
)
