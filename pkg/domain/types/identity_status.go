package types

import "fmt"

// IdentityStatus is the readiness of the identity supplied by the identity provider
type IdentityStatus string

const (
	IdentityStatusLoading IdentityStatus = "LOADING"
	IdentityStatusAbsent  IdentityStatus = "ABSENT"
	IdentityStatusPresent IdentityStatus = "PRESENT"
)

// IsValid checks if the identity status is valid
func (s IdentityStatus) IsValid() bool {
	switch s {
	case IdentityStatusLoading,
		IdentityStatusAbsent,
		IdentityStatusPresent:
		return true
	default:
		return false
	}
}

// String returns the string representation of the identity status
func (s IdentityStatus) String() string {
	return string(s)
}

// ParseIdentityStatus parses a string into an IdentityStatus
func ParseIdentityStatus(s string) (IdentityStatus, error) {
	status := IdentityStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid identity status: %s", s)
	}
	return status, nil
}
