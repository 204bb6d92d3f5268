package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// ErrFetchFailed is the only error callers see for a failed insights fetch.
	// Provider detail is logged, never exposed.
	ErrFetchFailed = errors.New("could not load insights")

	// ErrNoIdentity is returned by blocking operations called without a ready identity
	ErrNoIdentity = errors.New("identity is not available")

	// ErrPersistenceDrift marks a decision that was applied locally but not persisted
	ErrPersistenceDrift = errors.New("invitation response not persisted")

	ErrInvalidDecision = errors.New("invalid invitation decision")
)

// Context keys for error values
const (
	UserIDKey       = "user_id"
	InvitationIDKey = "invitation_id"
	GenerationKey   = "generation"
	DecisionKey     = "decision"
)
