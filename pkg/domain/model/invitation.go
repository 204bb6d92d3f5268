package model

import (
	"sort"
	"time"

	"github.com/secmon-lab/musubi/pkg/domain/types"
)

// InvitationState is a snapshot of a user's local invitation responses.
// Accepted and Declined are always disjoint.
type InvitationState struct {
	Accepted map[types.InvitationID]struct{}
	Declined map[types.InvitationID]struct{}
	// Version is incremented on every mutation of the tracker that produced the state
	Version uint64
}

// NewInvitationState returns an empty state
func NewInvitationState() InvitationState {
	return InvitationState{
		Accepted: make(map[types.InvitationID]struct{}),
		Declined: make(map[types.InvitationID]struct{}),
	}
}

// Decision returns the decision recorded for id
func (x InvitationState) Decision(id types.InvitationID) types.InvitationDecision {
	if _, ok := x.Accepted[id]; ok {
		return types.InvitationDecisionAccepted
	}
	if _, ok := x.Declined[id]; ok {
		return types.InvitationDecisionDeclined
	}
	return types.InvitationDecisionUndecided
}

// AcceptedIDs returns accepted invitation IDs in lexical order
func (x InvitationState) AcceptedIDs() []types.InvitationID {
	return sortedIDs(x.Accepted)
}

// DeclinedIDs returns declined invitation IDs in lexical order
func (x InvitationState) DeclinedIDs() []types.InvitationID {
	return sortedIDs(x.Declined)
}

func sortedIDs(set map[types.InvitationID]struct{}) []types.InvitationID {
	ids := make([]types.InvitationID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// InvitationResponse is the durable form of one decision, as written to the backend
type InvitationResponse struct {
	InvitationID types.InvitationID
	Decision     types.InvitationDecision
	Version      uint64
	UpdatedAt    time.Time
}
