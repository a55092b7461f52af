package aggregate

import (
	"encoding/json"
	"fmt"
)

// Value payloads per aggregate name. The store keeps them schema-less;
// these are the shapes the recorder reads and writes.
type UptimeValue struct {
	Seconds float64 `json:"seconds"`
	Reports int64   `json:"reports"`
}

type SpeedValue struct {
	Latest  float64 `json:"latest"`
	Reports int64   `json:"reports"`
}

type TasksValue struct {
	Count int64 `json:"count"`
}

type RecorderInterface interface {
	RecordUptime(userID string, seconds float64) (*Aggregate, error)
	RecordBandwidth(userID string, download, upload, latency float64) error
	RecordTaskCompleted(userID string) error
	Stats(userID string) ([]*Aggregate, error)
}

// Recorder applies the merge policy for each metric on top of the repo's
// atomic get-or-create. Creation is serialized by the store; the merge
// itself is fetch-then-update, which is fine for a single reporting worker
// per user.
type Recorder struct {
	Repo Repository
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{Repo: repo}
}

// RecordUptime accumulates reported liveness seconds.
func (s *Recorder) RecordUptime(userID string, seconds float64) (*Aggregate, error) {
	a, err := s.Repo.GetOrCreate(userID, Uptime)
	if err != nil {
		return nil, err
	}

	var v UptimeValue
	if err := decodeValue(a.Value, &v); err != nil {
		return nil, err
	}
	v.Seconds += seconds
	v.Reports++

	return s.persist(a, v)
}

// RecordBandwidth stores the latest measurement for each of the three
// bandwidth aggregates.
func (s *Recorder) RecordBandwidth(userID string, download, upload, latency float64) error {
	measurements := []struct {
		name  Name
		value float64
	}{
		{Download, download},
		{Upload, upload},
		{Latency, latency},
	}

	for _, m := range measurements {
		a, err := s.Repo.GetOrCreate(userID, m.name)
		if err != nil {
			return err
		}

		var v SpeedValue
		if err := decodeValue(a.Value, &v); err != nil {
			return err
		}
		v.Latest = m.value
		v.Reports++

		if _, err := s.persist(a, v); err != nil {
			return err
		}
	}
	return nil
}

// RecordTaskCompleted bumps the caller's completed-task counter.
func (s *Recorder) RecordTaskCompleted(userID string) error {
	a, err := s.Repo.GetOrCreate(userID, Tasks)
	if err != nil {
		return err
	}

	var v TasksValue
	if err := decodeValue(a.Value, &v); err != nil {
		return err
	}
	v.Count++

	_, err = s.persist(a, v)
	return err
}

func (s *Recorder) Stats(userID string) ([]*Aggregate, error) {
	return s.Repo.GetAllByUser(userID)
}

func (s *Recorder) persist(a *Aggregate, v any) (*Aggregate, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal aggregate value: %w", err)
	}
	if err := s.Repo.UpdateValue(a.UserID, a.Name, raw); err != nil {
		return nil, err
	}
	a.Value = raw
	return a, nil
}

// decodeValue leaves v at its zero value for a freshly created aggregate.
func decodeValue(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode aggregate value: %w", err)
	}
	return nil
}
