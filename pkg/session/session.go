package session

import "time"

// Session is the persisted login artifact. Nonce is the user's nonce value
// at issuance time; the session is only honored while that value is still
// current, so rotation revokes every session at once.
type Session struct {
	ID        string
	UserID    string
	Nonce     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Repository interface {
	Create(userID, sessionID, nonce string) (string, error)
	CountByUser(userID string) (int, error)
	Invalidate(userID string) error
}
