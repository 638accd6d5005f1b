package attendance

// SessionRepo is the engine's read/write boundary to session storage.
type SessionRepo interface {
	// Upsert creates or replaces a session record.
	Upsert(session *SessionRecord) error

	// Get retrieves a session by ID.
	Get(sessionID string) (*SessionRecord, error)

	// GetBySessionKey retrieves a session by its short distribution code.
	GetBySessionKey(sessionKey string) (*SessionRecord, error)

	// Delete removes a session once it has ended.
	Delete(sessionID string) error
}

// RecordRepo persists attendance marks. Create must be idempotent per
// (student, session): a second concurrent valid check-in observes
// ErrAlreadyMarked, never a silent duplicate.
type RecordRepo interface {
	Create(record *Record) error
	Get(studentID, sessionID string) (*Record, error)
	ListBySession(sessionID string) ([]*Record, error)
}
