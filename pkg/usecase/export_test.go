package usecase

import (
	"time"

	"github.com/secmon-lab/musubi/pkg/domain/types"
)

// LastErrorOf is exported for testing
func LastErrorOf(c *InsightsCache, key types.UserID) error {
	return c.lastErrorOf(key)
}

// SetInvitationClock is exported for testing
func SetInvitationClock(uc *InvitationUseCase, now func() time.Time) {
	uc.now = now
}
