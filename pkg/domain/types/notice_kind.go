package types

// NoticeKind classifies user-visible notices sent to the notification collaborator
type NoticeKind string

const (
	NoticeKindInvitationAccepted      NoticeKind = "INVITATION_ACCEPTED"
	NoticeKindInvitationDeclined      NoticeKind = "INVITATION_DECLINED"
	NoticeKindInvitationPersistFailed NoticeKind = "INVITATION_PERSIST_FAILED"
	NoticeKindInsightsFetchFailed     NoticeKind = "INSIGHTS_FETCH_FAILED"
)

// IsFailure reports whether the notice reports a failure
func (k NoticeKind) IsFailure() bool {
	return k == NoticeKindInvitationPersistFailed || k == NoticeKindInsightsFetchFailed
}

// String returns the string representation of the notice kind
func (k NoticeKind) String() string {
	return string(k)
}
