package nonce

import "time"

// Nonce is the single rotating secret of a user. There is at most one live
// value per user; replacing it collectively invalidates every session that
// embedded the previous value.
type Nonce struct {
	UserID    string
	Value     string
	CreatedAt time.Time
}

type Repository interface {
	Create(userID string) (*Nonce, error)
	Current(userID string) (*Nonce, error)
	Rotate(userID string) (*Nonce, error)
}
