package insights

import "errors"

var (
	// ErrNotFound is returned when the backend has no insights for the user
	ErrNotFound = errors.New("insights not found")

	// ErrInvalidPayload is returned when the backend answers with something that is not JSON
	ErrInvalidPayload = errors.New("insights payload is not valid JSON")
)

const (
	// MaxPayloadSize bounds how much of a backend answer is read
	MaxPayloadSize = 4 << 20
)
