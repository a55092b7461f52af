package task

import (
	"fmt"
	"net/http"
)

// CompletionRecorder is the slice of the aggregate recorder the
// coordinator needs after an accepted submission.
type CompletionRecorder interface {
	RecordTaskCompleted(userID string) error
}

type ServiceInterface interface {
	Create(creatorID string, task *Task) error
	Assign(userID string) (*Task, error)
	Submit(userID, taskID string, code int, raw string) (*Task, error)
}

type Service struct {
	Repo     Repository
	Recorder CompletionRecorder
}

func NewService(repo Repository, recorder CompletionRecorder) *Service {
	return &Service{Repo: repo, Recorder: recorder}
}

func (s *Service) Create(creatorID string, task *Task) error {
	if task.URL == "" {
		return fmt.Errorf("missing task url")
	}
	if task.Method == "" {
		task.Method = http.MethodGet
	}
	task.CreatorID = creatorID

	return s.Repo.Create(task)
}

func (s *Service) Assign(userID string) (*Task, error) {
	return s.Repo.Assign(userID)
}

// Submit accepts the result and bumps the worker's completed-task
// aggregate as one logical unit. When the aggregate update cannot be
// committed the task is reopened and the error returned, so the worker
// retries the whole submission.
func (s *Service) Submit(userID, taskID string, code int, raw string) (*Task, error) {
	submitted, err := s.Repo.Submit(taskID, userID, code, raw)
	if err != nil {
		return nil, err
	}

	if err := s.Recorder.RecordTaskCompleted(userID); err != nil {
		if reopenErr := s.Repo.Reopen(taskID); reopenErr != nil {
			return nil, fmt.Errorf("%w (reopen failed: %v)", err, reopenErr)
		}
		return nil, err
	}

	return submitted, nil
}
