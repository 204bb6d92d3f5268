package interfaces

import (
	"context"

	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/domain/types"
)

// InvitationRepository is the system of record for invitation responses
type InvitationRepository interface {
	// PutResponse stores resp for userID. A write whose Version is not newer than the
	// stored version for the same invitation is ignored without error.
	PutResponse(ctx context.Context, userID types.UserID, resp *model.InvitationResponse) error

	// ListResponses returns every stored response of userID, ordered by invitation ID
	ListResponses(ctx context.Context, userID types.UserID) ([]*model.InvitationResponse, error)
}
