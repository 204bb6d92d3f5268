package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/musubi/pkg/domain/interfaces"
	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	usersCollection               = "users"
	invitationResponsesCollection = "invitation_responses"
)

type invitationRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.InvitationRepository = &invitationRepository{}

func newInvitationRepository(client *firestore.Client) *invitationRepository {
	return &invitationRepository{
		client: client,
	}
}

// invitationResponseDoc is the Firestore persistence model. Firestore has no
// unsigned 64 bit integer, so Version is stored as int64.
type invitationResponseDoc struct {
	InvitationID string    `firestore:"invitation_id"`
	Decision     string    `firestore:"decision"`
	Version      int64     `firestore:"version"`
	UpdatedAt    time.Time `firestore:"updated_at"`
}

// collection returns users/{uid}/invitation_responses
func (r *invitationRepository) collection(userID types.UserID) *firestore.CollectionRef {
	users := usersCollection
	if r.collectionPrefix != "" {
		users = r.collectionPrefix + "_" + usersCollection
	}
	return r.client.Collection(users).Doc(userID.String()).Collection(invitationResponsesCollection)
}

func toInvitationResponseDoc(resp *model.InvitationResponse) *invitationResponseDoc {
	return &invitationResponseDoc{
		InvitationID: resp.InvitationID.String(),
		Decision:     resp.Decision.String(),
		Version:      int64(resp.Version),
		UpdatedAt:    resp.UpdatedAt,
	}
}

func fromInvitationResponseDoc(doc *invitationResponseDoc) (*model.InvitationResponse, error) {
	decision, err := types.ParseInvitationDecision(doc.Decision)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid stored decision", goerr.V("invitation_id", doc.InvitationID))
	}

	return &model.InvitationResponse{
		InvitationID: types.InvitationID(doc.InvitationID),
		Decision:     decision,
		Version:      uint64(doc.Version),
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}

// PutResponse stores resp unless a response with the same or a higher version is
// already stored. The check and the write run in one transaction.
func (r *invitationRepository) PutResponse(ctx context.Context, userID types.UserID, resp *model.InvitationResponse) error {
	if err := userID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid user for invitation response")
	}
	if resp == nil {
		return goerr.New("invitation response is nil", goerr.V("user_id", userID))
	}

	docRef := r.collection(userID).Doc(resp.InvitationID.String())
	newDoc := toInvitationResponseDoc(resp)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to get invitation response")
		}

		if err == nil {
			var current invitationResponseDoc
			if err := snap.DataTo(&current); err != nil {
				return goerr.Wrap(err, "failed to unmarshal invitation response")
			}
			if current.Version >= newDoc.Version {
				return nil
			}
		}

		return tx.Set(docRef, newDoc)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to put invitation response",
			goerr.V("user_id", userID),
			goerr.V("invitation_id", resp.InvitationID),
		)
	}

	return nil
}

func (r *invitationRepository) ListResponses(ctx context.Context, userID types.UserID) ([]*model.InvitationResponse, error) {
	if err := userID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid user for invitation responses")
	}

	iter := r.collection(userID).OrderBy("invitation_id", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	responses := []*model.InvitationResponse{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate invitation responses", goerr.V("user_id", userID))
		}

		var respDoc invitationResponseDoc
		if err := doc.DataTo(&respDoc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal invitation response", goerr.V("docID", doc.Ref.ID))
		}

		resp, err := fromInvitationResponseDoc(&respDoc)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}

	return responses, nil
}
