package interfaces

import (
	"context"

	"github.com/secmon-lab/musubi/pkg/domain/model"
)

// Notifier receives user-visible notices. Callers dispatch notices asynchronously and
// never depend on the outcome.
type Notifier interface {
	Notify(ctx context.Context, notice *model.Notice) error
}
