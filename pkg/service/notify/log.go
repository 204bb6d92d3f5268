package notify

import (
	"context"

	"github.com/secmon-lab/musubi/pkg/domain/interfaces"
	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/utils/logging"
)

// LogNotifier writes notices to the context logger. It is the default notifier
// when no Slack channel is configured.
type LogNotifier struct{}

var _ interfaces.Notifier = &LogNotifier{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(ctx context.Context, notice *model.Notice) error {
	if notice == nil {
		return nil
	}

	logger := logging.From(ctx)
	attrs := []any{
		"notice_id", notice.ID,
		"kind", notice.Kind,
		"user_id", notice.UserID,
	}
	if notice.InvitationID != "" {
		attrs = append(attrs, "invitation_id", notice.InvitationID)
	}

	if notice.Kind.IsFailure() {
		logger.Warn(notice.Message, attrs...)
	} else {
		logger.Info(notice.Message, attrs...)
	}
	return nil
}
