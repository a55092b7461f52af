package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"workmesh/pkg/errs"
)

type MongoRepo struct {
	collection *mongo.Collection
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{
		collection: db.Collection("tasks"),
	}
}

func (r *MongoRepo) Create(task *Task) error {
	ctx := context.TODO()

	task.Status = StatusPending
	task.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, task)
	if err != nil {
		return errs.Storage(err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		task.MongoID = oid
		task.ID = oid.Hex()
	} else {
		return errs.Storage(errors.New("failed to convert inserted ID to ObjectID"))
	}

	return nil
}

// Assign atomically claims one pending task for the worker. The
// find-and-modify is a single operation on the store, so two workers
// racing for the same task cannot both win it.
func (r *MongoRepo) Assign(userID string) (*Task, error) {
	ctx := context.TODO()

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"status":      StatusAssigned,
			"assignee_id": userID,
			"assigned_at": now,
		},
	}

	var assigned Task
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"status": StatusPending},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&assigned)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNoTasksAvailable
	}
	if err != nil {
		return nil, errs.Storage(fmt.Errorf("failed to assign task: %w", err))
	}

	assigned.ID = assigned.MongoID.Hex()
	return &assigned, nil
}

// Submit records the result against the task, but only while it is still
// assigned to the submitting worker. A second submission of the same task
// id is rejected, not merged.
func (r *MongoRepo) Submit(taskID, userID string, code int, raw string) (*Task, error) {
	ctx := context.TODO()

	objectID, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return nil, errs.ErrTaskNotFound
	}

	update := bson.M{
		"$set": bson.M{
			"status":        StatusCompleted,
			"response_code": code,
			"response_raw":  raw,
			"completed_at":  time.Now().UTC(),
		},
	}

	var submitted Task
	err = r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID, "assignee_id": userID, "status": StatusAssigned},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&submitted)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.classifySubmitMiss(ctx, objectID, userID)
	}
	if err != nil {
		return nil, errs.Storage(fmt.Errorf("failed to submit task: %w", err))
	}

	submitted.ID = submitted.MongoID.Hex()
	return &submitted, nil
}

// Reopen puts a submitted task back into assigned state. Used to unwind a
// submission whose aggregate update could not be committed.
func (r *MongoRepo) Reopen(taskID string) error {
	ctx := context.TODO()

	objectID, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return errs.ErrTaskNotFound
	}

	update := bson.M{
		"$set":   bson.M{"status": StatusAssigned},
		"$unset": bson.M{"response_code": "", "response_raw": "", "completed_at": ""},
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return errs.Storage(err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrTaskNotFound
	}
	return nil
}

// classifySubmitMiss distinguishes a duplicate submission from a task that
// is absent or belongs to another worker. Foreign tasks read as not found
// so the response does not leak other users' work.
func (r *MongoRepo) classifySubmitMiss(ctx context.Context, objectID primitive.ObjectID, userID string) error {
	var existing Task
	err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errs.ErrTaskNotFound
	}
	if err != nil {
		return errs.Storage(fmt.Errorf("failed to fetch task: %w", err))
	}

	if existing.AssigneeID == userID && existing.Status == StatusCompleted {
		return errs.ErrTaskAlreadySubmitted
	}
	return errs.ErrTaskNotFound
}
