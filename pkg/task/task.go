package task

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAssigned  Status = "assigned"
	StatusCompleted Status = "completed"
)

// Task is a unit of remote work. It is created pending, claimed by exactly
// one worker (assigned) and finished by a matching submission (completed).
type Task struct {
	MongoID     primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ID          string             `json:"id" bson:"-"`
	CreatorID   string             `json:"creator_id" bson:"creator_id"`
	URL         string             `json:"url" bson:"url"`
	Method      string             `json:"method" bson:"method"`
	Headers     map[string]string  `json:"headers,omitempty" bson:"headers,omitempty"`
	Body        string             `json:"body,omitempty" bson:"body,omitempty"`
	Status      Status             `json:"status" bson:"status"`
	AssigneeID  string             `json:"assignee_id,omitempty" bson:"assignee_id,omitempty"`
	RespCode    *int               `json:"response_code,omitempty" bson:"response_code,omitempty"`
	RespRaw     *string            `json:"response_raw,omitempty" bson:"response_raw,omitempty"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	AssignedAt  *time.Time         `json:"assigned_at,omitempty" bson:"assigned_at,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

type Repository interface {
	Create(task *Task) error
	Assign(userID string) (*Task, error)
	Submit(taskID, userID string, code int, raw string) (*Task, error)
	Reopen(taskID string) error
}
