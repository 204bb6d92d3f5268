package types

import "fmt"

// InvitationDecision is the local response to an invitation
type InvitationDecision string

const (
	InvitationDecisionUndecided InvitationDecision = "UNDECIDED"
	InvitationDecisionAccepted  InvitationDecision = "ACCEPTED"
	InvitationDecisionDeclined  InvitationDecision = "DECLINED"
)

// IsValid checks if the decision is valid
func (d InvitationDecision) IsValid() bool {
	switch d {
	case InvitationDecisionUndecided,
		InvitationDecisionAccepted,
		InvitationDecisionDeclined:
		return true
	default:
		return false
	}
}

// IsFinal reports whether the decision is one the user can make (accept or decline)
func (d InvitationDecision) IsFinal() bool {
	return d == InvitationDecisionAccepted || d == InvitationDecisionDeclined
}

// String returns the string representation of the decision
func (d InvitationDecision) String() string {
	return string(d)
}

// ParseInvitationDecision parses a string into an InvitationDecision
func ParseInvitationDecision(s string) (InvitationDecision, error) {
	d := InvitationDecision(s)
	if !d.IsValid() {
		return "", fmt.Errorf("invalid invitation decision: %s", s)
	}
	return d, nil
}
