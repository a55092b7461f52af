package user

import (
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"workmesh/pkg/errs"
	"workmesh/pkg/generator"
	"workmesh/pkg/nonce"
	"workmesh/pkg/session"
)

const lenSessionID = 24

type ServiceInterface interface {
	Register(email, password string) (*User, *nonce.Nonce, error)
	Login(email, password string) (*User, *nonce.Nonce, error)
	Logout(userID string) error
}

// Service owns the authentication sequence. Login and Register run as one
// all-or-nothing transaction: user lookup, nonce lookup, credential check
// and session persistence either all commit or none do, so a failed session
// insert never leaves a verified-but-not-logged-in half state.
type Service struct {
	DB       *sql.DB
	Users    *MySQLRepo
	Nonces   *nonce.MySQLRepo
	Sessions *session.MySQLSessionRepo
}

func NewService(db *sql.DB) *Service {
	return &Service{
		DB:       db,
		Users:    NewMySQLRepo(db),
		Nonces:   nonce.NewMySQLRepo(db),
		Sessions: session.NewMySQLSessionRepo(db),
	}
}

func (s *Service) Register(email, password string) (*User, *nonce.Nonce, error) {
	tx, err := s.DB.Begin()
	if err != nil {
		return nil, nil, errs.Storage(err)
	}
	defer tx.Rollback()

	users := s.Users.WithTx(tx)

	_, err = users.FindByEmail(email)
	if err == nil {
		return nil, nil, errs.ErrEmailTaken
	}
	if !errors.Is(err, errs.ErrUserNotFound) {
		return nil, nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hashing password error: %w", err)
	}

	userID, err := generator.GenerateRandomID(lenSessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("UserID gen error: %w", err)
	}

	u := &User{
		ID:       userID,
		Email:    email,
		Password: string(hashedPassword),
	}

	if err := users.Create(u); err != nil {
		return nil, nil, err
	}

	n, err := s.Nonces.WithTx(tx).Create(u.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.createSession(tx, u.ID, n.Value); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, errs.Storage(err)
	}

	return u, n, nil
}

func (s *Service) Login(email, password string) (*User, *nonce.Nonce, error) {
	tx, err := s.DB.Begin()
	if err != nil {
		return nil, nil, errs.Storage(err)
	}
	defer tx.Rollback()

	u, err := s.Users.WithTx(tx).FindByEmail(email)
	if err != nil {
		return nil, nil, err
	}

	n, err := s.Nonces.WithTx(tx).Current(u.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, nil, errs.ErrAuthenticationFailed
	}

	if err := s.createSession(tx, u.ID, n.Value); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, errs.Storage(err)
	}

	return u, n, nil
}

// Logout rotates the user's nonce, which collectively invalidates every
// outstanding token, and drops the persisted session rows.
func (s *Service) Logout(userID string) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return errs.Storage(err)
	}
	defer tx.Rollback()

	if _, err := s.Nonces.WithTx(tx).Rotate(userID); err != nil {
		return err
	}
	if err := s.Sessions.WithTx(tx).Invalidate(userID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errs.Storage(err)
	}
	return nil
}

func (s *Service) createSession(tx *sql.Tx, userID, nonceValue string) error {
	sessionID, err := generator.GenerateRandomID(lenSessionID)
	if err != nil {
		return fmt.Errorf("SessionID gen error: %w", err)
	}
	if _, err := s.Sessions.WithTx(tx).Create(userID, sessionID, nonceValue); err != nil {
		return err
	}
	return nil
}
