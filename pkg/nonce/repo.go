package nonce

import (
	"database/sql"
	"errors"
	"time"

	"workmesh/pkg/errs"
	"workmesh/pkg/generator"
)

const lenNonce = 48

// Querier is satisfied by both *sql.DB and *sql.Tx so the repo can take
// part in the login/register transaction.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

type MySQLRepo struct {
	DB Querier
}

func NewMySQLRepo(db *sql.DB) *MySQLRepo {
	return &MySQLRepo{DB: db}
}

func (r *MySQLRepo) WithTx(tx *sql.Tx) *MySQLRepo {
	return &MySQLRepo{DB: tx}
}

func (r *MySQLRepo) Create(userID string) (*Nonce, error) {
	value, err := generator.GenerateRandomID(lenNonce)
	if err != nil {
		return nil, err
	}

	n := &Nonce{UserID: userID, Value: value, CreatedAt: time.Now().UTC()}

	_, err = r.DB.Exec(
		"INSERT INTO nonces (user_id, nonce, created_at) VALUES (?, ?, ?)",
		n.UserID, n.Value, n.CreatedAt,
	)
	if err != nil {
		return nil, errs.Storage(err)
	}
	return n, nil
}

func (r *MySQLRepo) Current(userID string) (*Nonce, error) {
	var n Nonce
	err := r.DB.QueryRow(
		"SELECT user_id, nonce, created_at FROM nonces WHERE user_id = ?",
		userID,
	).Scan(&n.UserID, &n.Value, &n.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNonceNotFound
		}
		return nil, errs.Storage(err)
	}

	return &n, nil
}

// Rotate replaces the user's nonce with a fresh value. Last writer wins:
// concurrent rotations are ordered only by commit order, which is enough
// because any rotation invalidates all outstanding sessions.
func (r *MySQLRepo) Rotate(userID string) (*Nonce, error) {
	value, err := generator.GenerateRandomID(lenNonce)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := r.DB.Exec(
		"UPDATE nonces SET nonce = ?, created_at = ? WHERE user_id = ?",
		value, now, userID,
	)
	if err != nil {
		return nil, errs.Storage(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, errs.Storage(err)
	}
	if affected == 0 {
		return nil, errs.ErrNonceNotFound
	}

	return &Nonce{UserID: userID, Value: value, CreatedAt: now}, nil
}
