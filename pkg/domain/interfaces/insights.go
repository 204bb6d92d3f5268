package interfaces

import (
	"context"

	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/domain/types"
)

// InsightsProvider fetches derived insights for a user from the analytics backend.
// Implementations own their timeout policy; a call that exceeds it must return an error.
type InsightsProvider interface {
	FetchInsights(ctx context.Context, userID types.UserID) (*model.Insights, error)
}
