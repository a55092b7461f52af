package aggregate

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"workmesh/pkg/errs"
	"workmesh/pkg/generator"
)

const lenID = 24

type MySQLRepo struct {
	DB *sql.DB
}

func NewMySQLRepo(db *sql.DB) *MySQLRepo {
	return &MySQLRepo{DB: db}
}

// GetOrCreate returns the unique aggregate for (userID, name), creating it
// with a null value if absent. The aggregates table has a uniqueness
// constraint on (user_id, name); when two first-writers race, the loser's
// insert fails against the constraint and the winner's row is re-read, so
// every caller observes the same id and created_at and the race never
// surfaces.
func (r *MySQLRepo) GetOrCreate(userID string, name Name) (*Aggregate, error) {
	a, err := r.find(userID, name)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errs.Storage(err)
	}

	id, err := generator.GenerateRandomID(lenID)
	if err != nil {
		return nil, err
	}

	_, insErr := r.DB.Exec(
		"INSERT INTO aggregates (id, user_id, name, value, created_at) VALUES (?, ?, ?, NULL, ?)",
		id, userID, string(name), time.Now().UTC(),
	)
	if insErr == nil {
		a, err := r.find(userID, name)
		if err != nil {
			return nil, errs.Storage(err)
		}
		return a, nil
	}

	// Insert failed: if the row now exists we lost the race, return the
	// winner. Otherwise the failure was a genuine storage error.
	a, err = r.find(userID, name)
	if err == nil {
		return a, nil
	}
	return nil, errs.Storage(insErr)
}

// UpdateValue mutates the value payload in place. Merge policy belongs to
// the caller; this repo only covers the atomic-creation path.
func (r *MySQLRepo) UpdateValue(userID string, name Name, value json.RawMessage) error {
	res, err := r.DB.Exec(
		"UPDATE aggregates SET value = ? WHERE user_id = ? AND name = ?",
		string(value), userID, string(name),
	)
	if err != nil {
		return errs.Storage(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errs.Storage(err)
	}
	if affected == 0 {
		return errs.Storage(sql.ErrNoRows)
	}
	return nil
}

func (r *MySQLRepo) GetAllByUser(userID string) ([]*Aggregate, error) {
	rows, err := r.DB.Query(
		"SELECT id, user_id, name, value, created_at FROM aggregates WHERE user_id = ?",
		userID,
	)
	if err != nil {
		return nil, errs.Storage(err)
	}
	defer rows.Close()

	var aggregates []*Aggregate
	for rows.Next() {
		a, err := scanAggregate(rows.Scan)
		if err != nil {
			return nil, errs.Storage(err)
		}
		aggregates = append(aggregates, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage(err)
	}

	return aggregates, nil
}

func (r *MySQLRepo) find(userID string, name Name) (*Aggregate, error) {
	row := r.DB.QueryRow(
		"SELECT id, user_id, name, value, created_at FROM aggregates WHERE user_id = ? AND name = ?",
		userID, string(name),
	)
	return scanAggregate(row.Scan)
}

func scanAggregate(scan func(...any) error) (*Aggregate, error) {
	var (
		a     Aggregate
		name  string
		value sql.NullString
	)
	if err := scan(&a.ID, &a.UserID, &name, &value, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Name = Name(name)
	if value.Valid {
		a.Value = json.RawMessage(value.String)
	}
	return &a, nil
}
