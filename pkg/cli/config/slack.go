package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/musubi/pkg/domain/interfaces"
	"github.com/secmon-lab/musubi/pkg/service/notify"
	"github.com/secmon-lab/musubi/pkg/service/slack"
	"github.com/secmon-lab/musubi/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Slack holds the flags of the Slack notice sink
type Slack struct {
	botToken  string
	channelID string
	apiURL    string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token (for posting notices)",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("MUSUBI_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-channel-id",
			Usage:       "Slack channel ID receiving notices",
			Category:    "Slack",
			Destination: &x.channelID,
			Sources:     cli.EnvVars("MUSUBI_SLACK_CHANNEL_ID"),
		},
		&cli.StringFlag{
			Name:        "slack-api-url",
			Usage:       "Slack Web API base URL (for Slack compatible endpoints)",
			Category:    "Slack",
			Hidden:      true,
			Destination: &x.apiURL,
			Sources:     cli.EnvVars("MUSUBI_SLACK_API_URL"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.String("channel-id", x.channelID),
	)
}

// IsConfigured reports whether both the token and the channel are set
func (x *Slack) IsConfigured() bool {
	return x.botToken != "" && x.channelID != ""
}

// Configure returns the notifier for notices. Notices are always logged; when Slack
// is configured they are also posted to the channel.
func (x *Slack) Configure(ctx context.Context) (interfaces.Notifier, error) {
	sinks := []interfaces.Notifier{notify.NewLogNotifier()}

	switch {
	case x.IsConfigured():
		var opts []slack.Option
		if x.apiURL != "" {
			opts = append(opts, slack.WithAPIURL(x.apiURL))
		}
		n, err := slack.New(x.botToken, x.channelID, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create slack notifier")
		}
		sinks = append(sinks, n)
		logging.From(ctx).Info("Slack notices enabled", "channel_id", x.channelID)

	case x.botToken != "" || x.channelID != "":
		return nil, goerr.Wrap(ErrMissingOption, "slack-bot-token and slack-channel-id must be set together")
	}

	return notify.NewFanout(sinks...), nil
}
