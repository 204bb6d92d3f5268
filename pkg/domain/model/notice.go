package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/musubi/pkg/domain/types"
)

// NoticeID is a UUID-based identifier for Notice
type NoticeID string

// NewNoticeID generates a new UUID v4 NoticeID
func NewNoticeID() NoticeID {
	return NoticeID(uuid.New().String())
}

// Notice is a fire-and-forget, user-visible message for the notification
// collaborator. Message never carries raw provider error text.
type Notice struct {
	ID           NoticeID
	Kind         types.NoticeKind
	UserID       types.UserID
	InvitationID types.InvitationID
	Message      string
	CreatedAt    time.Time
}

// NewNotice builds a notice stamped with a fresh ID and the current time
func NewNotice(kind types.NoticeKind, userID types.UserID, message string) *Notice {
	return &Notice{
		ID:        NewNoticeID(),
		Kind:      kind,
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}
