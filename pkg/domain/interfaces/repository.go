package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Invitation() InvitationRepository

	Close() error
}
