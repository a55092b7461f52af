package task_test

import (
	"testing"

	"workmesh/pkg/errs"
	"workmesh/pkg/task"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func taskDoc(oid primitive.ObjectID, status task.Status, assignee string) bson.D {
	return bson.D{
		{Key: "_id", Value: oid},
		{Key: "creator_id", Value: "creator1"},
		{Key: "url", Value: "https://example.com/probe"},
		{Key: "method", Value: "GET"},
		{Key: "status", Value: string(status)},
		{Key: "assignee_id", Value: assignee},
	}
}

func TestCreateRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("success", func(mt *mtest.T) {
		repo := task.NewMongoRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		newTask := &task.Task{CreatorID: "creator1", URL: "https://example.com/probe", Method: "GET"}
		err := repo.Create(newTask)

		assert.NoError(t, err)
		assert.NotEmpty(t, newTask.ID)
		assert.Equal(t, task.StatusPending, newTask.Status)
		assert.False(t, newTask.CreatedAt.IsZero())
	})

	mt.Run("insert error", func(mt *mtest.T) {
		repo := task.NewMongoRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    123,
			Message: "some error",
		}))

		err := repo.Create(&task.Task{URL: "https://example.com"})

		assert.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrStorage)
	})
}

func TestAssignRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("claims a pending task", func(mt *mtest.T) {
		repo := task.NewMongoRepo(mt.DB)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: taskDoc(oid, task.StatusAssigned, "user123")},
		))

		assigned, err := repo.Assign("user123")

		assert.NoError(t, err)
		assert.Equal(t, oid.Hex(), assigned.ID)
		assert.Equal(t, task.StatusAssigned, assigned.Status)
		assert.Equal(t, "user123", assigned.AssigneeID)
	})

	mt.Run("empty queue", func(mt *mtest.T) {
		repo := task.NewMongoRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assigned, err := repo.Assign("user123")

		assert.Nil(t, assigned)
		assert.ErrorIs(t, err, errs.ErrNoTasksAvailable)
	})

	mt.Run("command error", func(mt *mtest.T) {
		repo := task.NewMongoRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    123,
			Message: "some error",
		}))

		assigned, err := repo.Assign("user123")

		assert.Nil(t, assigned)
		assert.ErrorIs(t, err, errs.ErrStorage)
	})
}

func TestSubmitRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("accepts a matching submission", func(mt *mtest.T) {
		repo := task.NewMongoRepo(mt.DB)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: taskDoc(oid, task.StatusCompleted, "user123")},
		))

		submitted, err := repo.Submit(oid.Hex(), "user123", 200, "ok")

		assert.NoError(t, err)
		assert.Equal(t, oid.Hex(), submitted.ID)
		assert.Equal(t, task.StatusCompleted, submitted.Status)
	})

	mt.Run("invalid id", func(mt *mtest.T) {
		repo := task.NewMongoRepo(mt.DB)

		submitted, err := repo.Submit("not-an-object-id", "user123", 200, "ok")

		assert.Nil(t, submitted)
		assert.ErrorIs(t, err, errs.ErrTaskNotFound)
	})

	mt.Run("duplicate submission is rejected", func(mt *mtest.T) {
		repo := task.NewMongoRepo(mt.DB)
		oid := primitive.NewObjectID()
		// The conditional update misses, and the follow-up read shows the
		// task already completed by the same worker.
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(1, "workmesh.tasks", mtest.FirstBatch,
				taskDoc(oid, task.StatusCompleted, "user123")),
		)

		submitted, err := repo.Submit(oid.Hex(), "user123", 200, "ok")

		assert.Nil(t, submitted)
		assert.ErrorIs(t, err, errs.ErrTaskAlreadySubmitted)
	})

	mt.Run("someone else's task reads as not found", func(mt *mtest.T) {
		repo := task.NewMongoRepo(mt.DB)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(1, "workmesh.tasks", mtest.FirstBatch,
				taskDoc(oid, task.StatusAssigned, "otheruser")),
		)

		submitted, err := repo.Submit(oid.Hex(), "user123", 200, "ok")

		assert.Nil(t, submitted)
		assert.ErrorIs(t, err, errs.ErrTaskNotFound)
	})

	mt.Run("missing task", func(mt *mtest.T) {
		repo := task.NewMongoRepo(mt.DB)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, "workmesh.tasks", mtest.FirstBatch),
		)

		submitted, err := repo.Submit(oid.Hex(), "user123", 200, "ok")

		assert.Nil(t, submitted)
		assert.ErrorIs(t, err, errs.ErrTaskNotFound)
	})
}

func TestReopenRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("success", func(mt *mtest.T) {
		repo := task.NewMongoRepo(mt.DB)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		err := repo.Reopen(oid.Hex())

		assert.NoError(t, err)
	})

	mt.Run("missing task", func(mt *mtest.T) {
		repo := task.NewMongoRepo(mt.DB)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := repo.Reopen(oid.Hex())

		assert.ErrorIs(t, err, errs.ErrTaskNotFound)
	})
}
