package config

import (
	"context"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/musubi/pkg/domain/interfaces"
	"github.com/secmon-lab/musubi/pkg/service/insights"
	"github.com/secmon-lab/musubi/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Provider holds CLI flags selecting and configuring the insights provider
type Provider struct {
	kind string

	httpURL     string
	httpToken   string
	httpTimeout time.Duration

	firestoreProjectID  string
	firestoreDatabaseID string
	firestoreCollection string

	gcsBucket string
	gcsPrefix string
}

func (x *Provider) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "insights-provider",
			Usage:       "Insights provider (none, http, firestore or gcs)",
			Category:    "Insights",
			Value:       "none",
			Sources:     cli.EnvVars("MUSUBI_INSIGHTS_PROVIDER"),
			Destination: &x.kind,
		},
		&cli.StringFlag{
			Name:        "insights-url",
			Usage:       "Base URL of the analytics API (http provider)",
			Category:    "Insights",
			Sources:     cli.EnvVars("MUSUBI_INSIGHTS_URL"),
			Destination: &x.httpURL,
		},
		&cli.StringFlag{
			Name:        "insights-token",
			Usage:       "Bearer token for the analytics API (http provider)",
			Category:    "Insights",
			Sources:     cli.EnvVars("MUSUBI_INSIGHTS_TOKEN"),
			Destination: &x.httpToken,
		},
		&cli.DurationFlag{
			Name:        "insights-timeout",
			Usage:       "Request timeout of the analytics API (http provider)",
			Category:    "Insights",
			Value:       insights.DefaultHTTPTimeout,
			Sources:     cli.EnvVars("MUSUBI_INSIGHTS_TIMEOUT"),
			Destination: &x.httpTimeout,
		},
		&cli.StringFlag{
			Name:        "insights-firestore-project-id",
			Usage:       "Project ID holding the insights documents (firestore provider)",
			Category:    "Insights",
			Sources:     cli.EnvVars("MUSUBI_INSIGHTS_FIRESTORE_PROJECT_ID"),
			Destination: &x.firestoreProjectID,
		},
		&cli.StringFlag{
			Name:        "insights-firestore-database-id",
			Usage:       "Database ID holding the insights documents (firestore provider)",
			Category:    "Insights",
			Sources:     cli.EnvVars("MUSUBI_INSIGHTS_FIRESTORE_DATABASE_ID"),
			Destination: &x.firestoreDatabaseID,
		},
		&cli.StringFlag{
			Name:        "insights-firestore-collection",
			Usage:       "Collection of the insights documents (firestore provider)",
			Category:    "Insights",
			Value:       insights.DefaultFirestoreCollection,
			Sources:     cli.EnvVars("MUSUBI_INSIGHTS_FIRESTORE_COLLECTION"),
			Destination: &x.firestoreCollection,
		},
		&cli.StringFlag{
			Name:        "insights-bucket",
			Usage:       "Bucket holding exported insights (gcs provider)",
			Category:    "Insights",
			Sources:     cli.EnvVars("MUSUBI_INSIGHTS_BUCKET"),
			Destination: &x.gcsBucket,
		},
		&cli.StringFlag{
			Name:        "insights-prefix",
			Usage:       "Object name prefix of exported insights (gcs provider)",
			Category:    "Insights",
			Sources:     cli.EnvVars("MUSUBI_INSIGHTS_PREFIX"),
			Destination: &x.gcsPrefix,
		},
	}
}

func (x Provider) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", x.kind),
		slog.String("url", x.httpURL),
		slog.Int("token.len", len(x.httpToken)),
		slog.Duration("timeout", x.httpTimeout),
		slog.String("firestore.project_id", x.firestoreProjectID),
		slog.String("firestore.collection", x.firestoreCollection),
		slog.String("gcs.bucket", x.gcsBucket),
		slog.String("gcs.prefix", x.gcsPrefix),
	)
}

// Kind returns the configured provider type
func (x *Provider) Kind() string {
	return x.kind
}

// Configure builds the insights provider. It returns nil when the provider is "none".
// The returned function releases the underlying client.
func (x *Provider) Configure(ctx context.Context) (interfaces.InsightsProvider, func(), error) {
	noop := func() {}

	switch x.kind {
	case "none", "":
		logging.From(ctx).Info("Insights provider disabled")
		return nil, noop, nil

	case "http":
		if x.httpURL == "" {
			return nil, noop, goerr.Wrap(ErrMissingOption, "insights-url is required for http provider")
		}
		opts := []insights.HTTPOption{insights.WithTimeout(x.httpTimeout)}
		if x.httpToken != "" {
			opts = append(opts, insights.WithToken(x.httpToken))
		}
		p, err := insights.NewHTTPProvider(x.httpURL, opts...)
		if err != nil {
			return nil, noop, goerr.Wrap(err, "failed to create http insights provider")
		}
		logging.From(ctx).Info("Using HTTP insights provider", "url", x.httpURL)
		return p, noop, nil

	case "firestore":
		if x.firestoreProjectID == "" {
			return nil, noop, goerr.Wrap(ErrMissingOption, "insights-firestore-project-id is required for firestore provider")
		}
		databaseID := x.firestoreDatabaseID
		if databaseID == "" {
			databaseID = firestore.DefaultDatabaseID
		}
		client, err := firestore.NewClientWithDatabase(ctx, x.firestoreProjectID, databaseID)
		if err != nil {
			return nil, noop, goerr.Wrap(err, "failed to create firestore client for insights",
				goerr.V("project_id", x.firestoreProjectID),
				goerr.V("database_id", databaseID),
			)
		}
		logging.From(ctx).Info("Using Firestore insights provider",
			"project_id", x.firestoreProjectID,
			"collection", x.firestoreCollection,
		)
		return insights.NewFirestoreProvider(client, insights.WithCollection(x.firestoreCollection)),
			func() { _ = client.Close() }, nil

	case "gcs":
		if x.gcsBucket == "" {
			return nil, noop, goerr.Wrap(ErrMissingOption, "insights-bucket is required for gcs provider")
		}
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, noop, goerr.Wrap(err, "failed to create storage client for insights")
		}
		p, err := insights.NewGCSProvider(client, x.gcsBucket, insights.WithObjectPrefix(x.gcsPrefix))
		if err != nil {
			_ = client.Close()
			return nil, noop, goerr.Wrap(err, "failed to create gcs insights provider")
		}
		logging.From(ctx).Info("Using GCS insights provider", "bucket", x.gcsBucket, "prefix", x.gcsPrefix)
		return p, func() { _ = client.Close() }, nil

	default:
		return nil, noop, goerr.Wrap(ErrUnknownBackend, "invalid insights provider", goerr.V(BackendKey, x.kind))
	}
}
