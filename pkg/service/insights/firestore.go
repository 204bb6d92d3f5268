package insights

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/musubi/pkg/domain/interfaces"
	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/domain/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// DefaultFirestoreCollection holds one precomputed insights document per user
	DefaultFirestoreCollection = "insights"
)

// FirestoreProvider reads precomputed insights from the document
// {collection}/{user_id}. The whole document is the payload.
type FirestoreProvider struct {
	client     *firestore.Client
	collection string
}

var _ interfaces.InsightsProvider = &FirestoreProvider{}

type FirestoreOption func(*FirestoreProvider)

// WithCollection overrides the collection name
func WithCollection(name string) FirestoreOption {
	return func(p *FirestoreProvider) {
		p.collection = name
	}
}

// NewFirestoreProvider creates a provider reading through client
func NewFirestoreProvider(client *firestore.Client, opts ...FirestoreOption) *FirestoreProvider {
	p := &FirestoreProvider{
		client:     client,
		collection: DefaultFirestoreCollection,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *FirestoreProvider) FetchInsights(ctx context.Context, userID types.UserID) (*model.Insights, error) {
	doc, err := p.client.Collection(p.collection).Doc(userID.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "insights document not found",
				goerr.V("user_id", userID),
				goerr.V("collection", p.collection),
			)
		}
		return nil, goerr.Wrap(err, "failed to get insights document", goerr.V("user_id", userID))
	}

	payload, err := json.Marshal(doc.Data())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode insights document", goerr.V("user_id", userID))
	}

	return model.NewInsights(payload), nil
}
