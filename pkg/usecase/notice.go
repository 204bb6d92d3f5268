package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/musubi/pkg/domain/interfaces"
	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/domain/types"
	"github.com/secmon-lab/musubi/pkg/utils/async"
)

// NoticeMessages holds the user-visible text for each notice kind
type NoticeMessages struct {
	InvitationAccepted      string
	InvitationDeclined      string
	InvitationPersistFailed string
	InsightsFetchFailed     string
}

// DefaultNoticeMessages returns the built-in English messages
func DefaultNoticeMessages() NoticeMessages {
	return NoticeMessages{
		InvitationAccepted:      "Invitation accepted",
		InvitationDeclined:      "Invitation declined",
		InvitationPersistFailed: "Your response could not be saved. Please try again.",
		InsightsFetchFailed:     "Could not load insights",
	}
}

// For returns the message for kind, falling back to the default text when unset
func (x NoticeMessages) For(kind types.NoticeKind) string {
	defaults := DefaultNoticeMessages()
	pick := func(v, fallback string) string {
		if v != "" {
			return v
		}
		return fallback
	}

	switch kind {
	case types.NoticeKindInvitationAccepted:
		return pick(x.InvitationAccepted, defaults.InvitationAccepted)
	case types.NoticeKindInvitationDeclined:
		return pick(x.InvitationDeclined, defaults.InvitationDeclined)
	case types.NoticeKindInvitationPersistFailed:
		return pick(x.InvitationPersistFailed, defaults.InvitationPersistFailed)
	case types.NoticeKindInsightsFetchFailed:
		return pick(x.InsightsFetchFailed, defaults.InsightsFetchFailed)
	default:
		return string(kind)
	}
}

// sendNotice hands notice to notifier without waiting for the outcome
func sendNotice(ctx context.Context, notifier interfaces.Notifier, notice *model.Notice) {
	if notifier == nil {
		return
	}

	async.Dispatch(ctx, func(ctx context.Context) error {
		if err := notifier.Notify(ctx, notice); err != nil {
			return goerr.Wrap(err, "failed to send notice",
				goerr.V("kind", notice.Kind),
				goerr.V(UserIDKey, notice.UserID),
			)
		}
		return nil
	})
}
