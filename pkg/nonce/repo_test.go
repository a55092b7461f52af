package nonce_test

import (
	"database/sql"
	"testing"

	"workmesh/pkg/errs"
	"workmesh/pkg/nonce"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	assert.NoError(t, err)

	schema := `
	CREATE TABLE nonces (
		user_id TEXT PRIMARY KEY,
		nonce TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);`

	_, err = db.Exec(schema)
	assert.NoError(t, err)

	return db
}

func TestCreateAndCurrent(t *testing.T) {
	db := setupTestDB(t)
	repo := nonce.NewMySQLRepo(db)

	created, err := repo.Create("user123")
	assert.NoError(t, err)
	assert.Equal(t, "user123", created.UserID)
	assert.Len(t, created.Value, 48)

	current, err := repo.Current("user123")
	assert.NoError(t, err)
	assert.Equal(t, created.Value, current.Value)

	// One nonce per user: a second create collides with the primary key.
	_, err = repo.Create("user123")
	assert.Error(t, err)
}

func TestCurrentUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	repo := nonce.NewMySQLRepo(db)

	n, err := repo.Current("ghost")
	assert.Nil(t, n)
	assert.ErrorIs(t, err, errs.ErrNonceNotFound)
}

func TestRotate(t *testing.T) {
	db := setupTestDB(t)
	repo := nonce.NewMySQLRepo(db)

	created, err := repo.Create("user123")
	assert.NoError(t, err)

	rotated, err := repo.Rotate("user123")
	assert.NoError(t, err)
	assert.NotEqual(t, created.Value, rotated.Value)

	// The pre-rotation value is gone for good.
	current, err := repo.Current("user123")
	assert.NoError(t, err)
	assert.Equal(t, rotated.Value, current.Value)
	assert.NotEqual(t, created.Value, current.Value)
}

func TestRotateUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	repo := nonce.NewMySQLRepo(db)

	n, err := repo.Rotate("ghost")
	assert.Nil(t, n)
	assert.ErrorIs(t, err, errs.ErrNonceNotFound)
}
