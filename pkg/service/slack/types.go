package slack

import (
	"context"

	"github.com/slack-go/slack"
)

// poster is the subset of the Slack Web API used to deliver notices
type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

const (
	// maxSectionTextBytes is the Block Kit limit for a section text
	maxSectionTextBytes = 3000
)
