package slack

import (
	"fmt"
	"unicode/utf8"

	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/slack-go/slack"
)

func fallbackText(notice *model.Notice) string {
	return truncateToMaxBytes(notice.Message, maxSectionTextBytes)
}

func kindEmoji(notice *model.Notice) string {
	if notice.Kind.IsFailure() {
		return ":warning:"
	}
	return ":white_check_mark:"
}

func buildBlocks(notice *model.Notice) []slack.Block {
	text := fmt.Sprintf("%s %s", kindEmoji(notice), notice.Message)
	section := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, truncateToMaxBytes(text, maxSectionTextBytes), false, false),
		nil, nil,
	)

	elements := []slack.MixedElement{
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*user:* `%s`", notice.UserID), false, false),
	}
	if notice.InvitationID != "" {
		elements = append(elements,
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*invitation:* `%s`", notice.InvitationID), false, false))
	}
	elements = append(elements,
		slack.NewTextBlockObject(slack.PlainTextType, string(notice.Kind), false, false))

	return []slack.Block{
		section,
		slack.NewContextBlock("", elements...),
	}
}

// truncateToMaxBytes cuts s to at most maxBytes without splitting a UTF-8 sequence
func truncateToMaxBytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}

	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
