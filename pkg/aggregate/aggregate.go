package aggregate

import (
	"encoding/json"
	"time"
)

// Name enumerates the known per-user metric accumulators.
type Name string

const (
	Uptime   Name = "uptime"
	Download Name = "download"
	Upload   Name = "upload"
	Latency  Name = "latency"
	Tasks    Name = "tasks"
)

func (n Name) Valid() bool {
	switch n {
	case Uptime, Download, Upload, Latency, Tasks:
		return true
	}
	return false
}

// Aggregate is a per-user, per-name accumulator row. Value is a schema-less
// JSON payload, nil until the first merge; each name has its own shape.
type Aggregate struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      Name            `json:"name"`
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
}

type Repository interface {
	GetOrCreate(userID string, name Name) (*Aggregate, error)
	UpdateValue(userID string, name Name, value json.RawMessage) error
	GetAllByUser(userID string) ([]*Aggregate, error)
}
