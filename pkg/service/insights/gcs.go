package insights

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/musubi/pkg/domain/interfaces"
	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/domain/types"
	"github.com/secmon-lab/musubi/pkg/utils/safe"
)

// GCSProvider reads insights exported by a batch job as the object
// gs://{bucket}/{prefix}{user_id}.json
type GCSProvider struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.InsightsProvider = &GCSProvider{}

type GCSOption func(*GCSProvider)

// WithObjectPrefix sets the object name prefix, e.g. "insights/daily/"
func WithObjectPrefix(prefix string) GCSOption {
	return func(p *GCSProvider) {
		p.prefix = prefix
	}
}

// NewGCSProvider creates a provider reading from bucket
func NewGCSProvider(client *storage.Client, bucket string, opts ...GCSOption) (*GCSProvider, error) {
	if bucket == "" {
		return nil, goerr.New("insights bucket is required")
	}

	p := &GCSProvider{
		client: client,
		bucket: bucket,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// ObjectName returns the object holding userID's insights
func (p *GCSProvider) ObjectName(userID types.UserID) string {
	return p.prefix + userID.String() + ".json"
}

func (p *GCSProvider) FetchInsights(ctx context.Context, userID types.UserID) (*model.Insights, error) {
	name := p.ObjectName(userID)

	reader, err := p.client.Bucket(p.bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(ErrNotFound, "insights object not found",
				goerr.V("bucket", p.bucket),
				goerr.V("object", name),
			)
		}
		return nil, goerr.Wrap(err, "failed to open insights object",
			goerr.V("bucket", p.bucket),
			goerr.V("object", name),
		)
	}
	defer safe.Close(ctx, reader)

	body, err := io.ReadAll(io.LimitReader(reader, MaxPayloadSize+1))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read insights object", goerr.V("object", name))
	}
	if len(body) > MaxPayloadSize {
		return nil, goerr.New("insights object is too large", goerr.V("object", name))
	}
	if !json.Valid(body) {
		return nil, goerr.Wrap(ErrInvalidPayload, "insights object is not JSON", goerr.V("object", name))
	}

	return model.NewInsights(body), nil
}
