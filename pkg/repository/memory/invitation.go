package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/musubi/pkg/domain/interfaces"
	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/domain/types"
)

type invitationRepository struct {
	mu        sync.RWMutex
	responses map[types.UserID]map[types.InvitationID]*model.InvitationResponse
}

var _ interfaces.InvitationRepository = &invitationRepository{}

func newInvitationRepository() *invitationRepository {
	return &invitationRepository{
		responses: make(map[types.UserID]map[types.InvitationID]*model.InvitationResponse),
	}
}

func copyResponse(r *model.InvitationResponse) *model.InvitationResponse {
	copied := *r
	return &copied
}

func (r *invitationRepository) PutResponse(ctx context.Context, userID types.UserID, resp *model.InvitationResponse) error {
	if err := userID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid user for invitation response")
	}
	if resp == nil {
		return goerr.New("invitation response is nil", goerr.V("user_id", userID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.responses[userID]
	if !ok {
		bucket = make(map[types.InvitationID]*model.InvitationResponse)
		r.responses[userID] = bucket
	}

	if existing, ok := bucket[resp.InvitationID]; ok && existing.Version >= resp.Version {
		return nil // Stale write, a newer decision is already stored
	}

	bucket[resp.InvitationID] = copyResponse(resp)
	return nil
}

func (r *invitationRepository) ListResponses(ctx context.Context, userID types.UserID) ([]*model.InvitationResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.responses[userID]
	result := make([]*model.InvitationResponse, 0, len(bucket))
	for _, resp := range bucket {
		result = append(result, copyResponse(resp))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].InvitationID < result[j].InvitationID
	})

	return result, nil
}
