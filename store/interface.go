package store

// Backend defines the interface the caching layer needs from the remote
// conversation store. Client implements it; tests substitute fakes.
type Backend interface {
	// ListSessions lists all session headers.
	ListSessions() ([]Session, error)

	// CreateSession creates a session on the backend.
	CreateSession(draft Session) (Session, error)

	// UpdateSession applies a partial update to a session.
	UpdateSession(id string, partial Session) (Session, error)

	// DeleteSession deletes a session.
	DeleteSession(id string) (DeleteResult, error)

	// GetSessionMessages retrieves a session's flat message log.
	GetSessionMessages(id string) ([]Message, error)

	// SendMessage sends an outbound chat turn.
	SendMessage(out Outbound) error
}

// Verify that Client implements Backend at compile time.
var _ Backend = (*Client)(nil)
