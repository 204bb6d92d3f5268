package types

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// UserID is the opaque identity reference issued by the identity provider.
// It is only used as a cache key and as the argument of insights fetches.
type UserID string

// Validate checks that the UserID is usable as a key
func (u UserID) Validate() error {
	if strings.TrimSpace(string(u)) == "" {
		return goerr.New("user ID cannot be empty")
	}
	return nil
}

// String returns the string representation of UserID
func (u UserID) String() string {
	return string(u)
}

// InvitationID identifies an incoming invitation. Any value is accepted; whether it
// names a real invitation is the caller's concern.
type InvitationID string

// String returns the string representation of InvitationID
func (i InvitationID) String() string {
	return string(i)
}
