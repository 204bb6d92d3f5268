package model

import "github.com/secmon-lab/musubi/pkg/domain/types"

// Identity is the caller's identity as reported by the identity provider
type Identity struct {
	Status types.IdentityStatus
	UserID types.UserID
}

// PresentIdentity returns a ready identity for userID
func PresentIdentity(userID types.UserID) Identity {
	return Identity{Status: types.IdentityStatusPresent, UserID: userID}
}

// AbsentIdentity is the identity of an unauthenticated caller
func AbsentIdentity() Identity {
	return Identity{Status: types.IdentityStatusAbsent}
}

// LoadingIdentity is the identity while the provider has not resolved yet
func LoadingIdentity() Identity {
	return Identity{Status: types.IdentityStatusLoading}
}

// Ready reports whether the identity is confirmed present and usable as a key
func (x Identity) Ready() bool {
	return x.Status == types.IdentityStatusPresent && x.UserID.Validate() == nil
}
