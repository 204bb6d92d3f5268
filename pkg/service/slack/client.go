package slack

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/musubi/pkg/domain/interfaces"
	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/utils/logging"
	"github.com/slack-go/slack"
)

// Notifier posts notices to a Slack channel
type Notifier struct {
	api       poster
	channelID string
	apiURL    string
}

var _ interfaces.Notifier = &Notifier{}

// Option is a functional option for Notifier configuration
type Option func(*Notifier)

// WithAPIURL points the client at another Slack API endpoint
func WithAPIURL(url string) Option {
	return func(n *Notifier) {
		n.apiURL = url
	}
}

// New creates a Slack notifier with the provided bot token
func New(token, channelID string, opts ...Option) (*Notifier, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}
	if channelID == "" {
		return nil, goerr.New("Slack channel ID is required")
	}

	n := &Notifier{
		channelID: channelID,
	}

	for _, opt := range opts {
		opt(n)
	}

	var clientOpts []slack.Option
	if n.apiURL != "" {
		clientOpts = append(clientOpts, slack.OptionAPIURL(n.apiURL))
	}
	n.api = slack.New(token, clientOpts...)

	return n, nil
}

// Notify posts notice as a Block Kit message
func (n *Notifier) Notify(ctx context.Context, notice *model.Notice) error {
	if notice == nil {
		return goerr.New("notice is nil")
	}

	_, ts, err := n.api.PostMessageContext(ctx, n.channelID,
		slack.MsgOptionText(fallbackText(notice), false),
		slack.MsgOptionBlocks(buildBlocks(notice)...),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to post notice to Slack",
			goerr.V("channel_id", n.channelID),
			goerr.V("kind", notice.Kind),
			goerr.V("notice_id", notice.ID),
		)
	}

	logging.From(ctx).Debug("notice posted to Slack",
		"channel_id", n.channelID,
		"kind", notice.Kind,
		"ts", ts,
	)
	return nil
}
