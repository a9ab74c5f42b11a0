package srverr

import "errors"

var (
	// Returned when a value stashed on the echo context is not the expected type
	ErrTypeAssertMismatch = errors.New("type assert mismatch")
)
