package user

import (
	"database/sql"
	"errors"

	"workmesh/pkg/errs"
)

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

func (r *MySQLRepo) Create(user *User) error {
	_, err := r.DB.Exec(
		"INSERT INTO users (id, email, password) VALUES (?, ?, ?)",
		user.ID, user.Email, user.Password,
	)
	if err != nil {
		return errs.Storage(err)
	}
	return nil
}

func (r *MySQLRepo) FindByEmail(email string) (*User, error) {
	var u User
	err := r.DB.QueryRow(
		"SELECT id, email, password FROM users WHERE email = ?",
		email,
	).Scan(&u.ID, &u.Email, &u.Password)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrUserNotFound
		}
		return nil, errs.Storage(err)
	}

	return &u, nil
}
