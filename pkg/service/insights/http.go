package insights

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/musubi/pkg/domain/interfaces"
	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/domain/types"
	"github.com/secmon-lab/musubi/pkg/utils/logging"
	"github.com/secmon-lab/musubi/pkg/utils/safe"
)

const (
	// DefaultHTTPTimeout is the per request timeout of the analytics API client
	DefaultHTTPTimeout = 10 * time.Second
)

// HTTPProvider fetches insights from an analytics REST API at
// GET {base}/users/{user_id}/insights
type HTTPProvider struct {
	baseURL *url.URL
	token   string
	client  *http.Client
}

var _ interfaces.InsightsProvider = &HTTPProvider{}

type HTTPOption func(*HTTPProvider)

// WithToken sets the bearer token sent with every request
func WithToken(token string) HTTPOption {
	return func(p *HTTPProvider) {
		p.token = token
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(p *HTTPProvider) {
		p.client = client
	}
}

// WithTimeout sets the request timeout of the default client
func WithTimeout(d time.Duration) HTTPOption {
	return func(p *HTTPProvider) {
		p.client = &http.Client{Timeout: d}
	}
}

// NewHTTPProvider creates a provider for the API rooted at baseURL
func NewHTTPProvider(baseURL string, opts ...HTTPOption) (*HTTPProvider, error) {
	if baseURL == "" {
		return nil, goerr.New("insights API base URL is required")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid insights API base URL", goerr.V("url", baseURL))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, goerr.New("insights API base URL must be http or https", goerr.V("url", baseURL))
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	p := &HTTPProvider{
		baseURL: u,
		client:  &http.Client{Timeout: DefaultHTTPTimeout},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

func (p *HTTPProvider) FetchInsights(ctx context.Context, userID types.UserID) (*model.Insights, error) {
	endpoint := p.baseURL.JoinPath("users", url.PathEscape(userID.String()), "insights")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create insights request")
	}
	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to request insights", goerr.V("user_id", userID))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, goerr.Wrap(ErrNotFound, "insights API has no record", goerr.V("user_id", userID))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, goerr.New("insights API returned an error",
			goerr.V("user_id", userID),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)),
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxPayloadSize+1))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read insights response", goerr.V("user_id", userID))
	}
	if len(body) > MaxPayloadSize {
		return nil, goerr.New("insights response is too large", goerr.V("user_id", userID))
	}
	if !json.Valid(body) {
		return nil, goerr.Wrap(ErrInvalidPayload, "insights API returned invalid JSON", goerr.V("user_id", userID))
	}

	logging.From(ctx).Debug("insights fetched from API", "user_id", userID, "size", len(body))
	return model.NewInsights(body), nil
}
