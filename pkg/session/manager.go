package session

import (
	"database/sql"
	"time"

	"workmesh/pkg/errs"
)

type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

type MySQLSessionRepo struct {
	DB Querier
}

func NewMySQLSessionRepo(db *sql.DB) *MySQLSessionRepo {
	return &MySQLSessionRepo{DB: db}
}

func (r *MySQLSessionRepo) WithTx(tx *sql.Tx) *MySQLSessionRepo {
	return &MySQLSessionRepo{DB: tx}
}

func (r *MySQLSessionRepo) Create(userID, sessionID, nonce string) (string, error) {
	_, err := r.DB.Exec(`
		INSERT INTO sessions (id, user_id, nonce, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, userID, nonce, time.Now().UTC(), time.Now().UTC().Add(time.Hour*1))

	if err != nil {
		return "", errs.Storage(err)
	}
	return sessionID, nil
}

func (r *MySQLSessionRepo) CountByUser(userID string) (int, error) {
	var count int
	err := r.DB.QueryRow(`
		SELECT COUNT(*) FROM sessions WHERE user_id = ?
	`, userID).Scan(&count)
	if err != nil {
		return 0, errs.Storage(err)
	}
	return count, nil
}

func (r *MySQLSessionRepo) Invalidate(userID string) error {
	_, err := r.DB.Exec(`
		DELETE FROM sessions WHERE user_id = ?
	`, userID)
	if err != nil {
		return errs.Storage(err)
	}
	return nil
}
