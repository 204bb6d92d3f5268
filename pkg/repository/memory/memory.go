package memory

import (
	"github.com/secmon-lab/musubi/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

type Memory struct {
	invitation *invitationRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		invitation: newInvitationRepository(),
	}
}

func (m *Memory) Invitation() interfaces.InvitationRepository {
	return m.invitation
}

func (m *Memory) Close() error {
	return nil
}
