package aggregate_test

import (
	"encoding/json"
	"errors"
	"testing"

	"workmesh/pkg/aggregate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetOrCreate(userID string, name aggregate.Name) (*aggregate.Aggregate, error) {
	args := m.Called(userID, name)
	if a := args.Get(0); a != nil {
		return a.(*aggregate.Aggregate), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) UpdateValue(userID string, name aggregate.Name, value json.RawMessage) error {
	return m.Called(userID, name, value).Error(0)
}

func (m *mockRepo) GetAllByUser(userID string) ([]*aggregate.Aggregate, error) {
	args := m.Called(userID)
	if a := args.Get(0); a != nil {
		return a.([]*aggregate.Aggregate), args.Error(1)
	}
	return nil, args.Error(1)
}

func freshAggregate(userID string, name aggregate.Name) *aggregate.Aggregate {
	return &aggregate.Aggregate{ID: "agg1", UserID: userID, Name: name}
}

func TestRecordUptime(t *testing.T) {
	t.Run("first report starts from zero", func(t *testing.T) {
		repo := new(mockRepo)
		recorder := aggregate.NewRecorder(repo)

		repo.On("GetOrCreate", "user123", aggregate.Uptime).Return(freshAggregate("user123", aggregate.Uptime), nil)
		repo.On("UpdateValue", "user123", aggregate.Uptime, mock.Anything).Return(nil)

		a, err := recorder.RecordUptime("user123", 60)

		assert.NoError(t, err)

		var v aggregate.UptimeValue
		assert.NoError(t, json.Unmarshal(a.Value, &v))
		assert.Equal(t, float64(60), v.Seconds)
		assert.Equal(t, int64(1), v.Reports)
	})

	t.Run("accumulates over prior value", func(t *testing.T) {
		repo := new(mockRepo)
		recorder := aggregate.NewRecorder(repo)

		prior := freshAggregate("user123", aggregate.Uptime)
		prior.Value = json.RawMessage(`{"seconds":100,"reports":2}`)
		repo.On("GetOrCreate", "user123", aggregate.Uptime).Return(prior, nil)
		repo.On("UpdateValue", "user123", aggregate.Uptime, mock.Anything).Return(nil)

		a, err := recorder.RecordUptime("user123", 50)

		assert.NoError(t, err)

		var v aggregate.UptimeValue
		assert.NoError(t, json.Unmarshal(a.Value, &v))
		assert.Equal(t, float64(150), v.Seconds)
		assert.Equal(t, int64(3), v.Reports)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		repo := new(mockRepo)
		recorder := aggregate.NewRecorder(repo)

		repo.On("GetOrCreate", "user123", aggregate.Uptime).Return(nil, errors.New("connection lost"))

		_, err := recorder.RecordUptime("user123", 10)

		assert.Error(t, err)
	})
}

func TestRecordBandwidth(t *testing.T) {
	t.Run("updates all three aggregates", func(t *testing.T) {
		repo := new(mockRepo)
		recorder := aggregate.NewRecorder(repo)

		for _, name := range []aggregate.Name{aggregate.Download, aggregate.Upload, aggregate.Latency} {
			repo.On("GetOrCreate", "user123", name).Return(freshAggregate("user123", name), nil)
			repo.On("UpdateValue", "user123", name, mock.Anything).Return(nil)
		}

		err := recorder.RecordBandwidth("user123", 95.5, 12.2, 30)

		assert.NoError(t, err)
		repo.AssertNumberOfCalls(t, "GetOrCreate", 3)
		repo.AssertNumberOfCalls(t, "UpdateValue", 3)
	})

	t.Run("keeps latest measurement", func(t *testing.T) {
		repo := new(mockRepo)
		recorder := aggregate.NewRecorder(repo)

		prior := freshAggregate("user123", aggregate.Download)
		prior.Value = json.RawMessage(`{"latest":50,"reports":4}`)
		repo.On("GetOrCreate", "user123", aggregate.Download).Return(prior, nil)
		repo.On("GetOrCreate", "user123", mock.Anything).Return(freshAggregate("user123", aggregate.Upload), nil)

		var written json.RawMessage
		repo.On("UpdateValue", "user123", aggregate.Download, mock.Anything).Run(func(args mock.Arguments) {
			written = args.Get(2).(json.RawMessage)
		}).Return(nil)
		repo.On("UpdateValue", "user123", mock.Anything, mock.Anything).Return(nil)

		err := recorder.RecordBandwidth("user123", 80, 10, 20)

		assert.NoError(t, err)

		var v aggregate.SpeedValue
		assert.NoError(t, json.Unmarshal(written, &v))
		assert.Equal(t, float64(80), v.Latest)
		assert.Equal(t, int64(5), v.Reports)
	})
}

func TestRecordTaskCompleted(t *testing.T) {
	repo := new(mockRepo)
	recorder := aggregate.NewRecorder(repo)

	prior := freshAggregate("user123", aggregate.Tasks)
	prior.Value = json.RawMessage(`{"count":7}`)
	repo.On("GetOrCreate", "user123", aggregate.Tasks).Return(prior, nil)

	var written json.RawMessage
	repo.On("UpdateValue", "user123", aggregate.Tasks, mock.Anything).Run(func(args mock.Arguments) {
		written = args.Get(2).(json.RawMessage)
	}).Return(nil)

	err := recorder.RecordTaskCompleted("user123")

	assert.NoError(t, err)

	var v aggregate.TasksValue
	assert.NoError(t, json.Unmarshal(written, &v))
	assert.Equal(t, int64(8), v.Count)
}

func TestRecorderStats(t *testing.T) {
	repo := new(mockRepo)
	recorder := aggregate.NewRecorder(repo)

	expected := []*aggregate.Aggregate{freshAggregate("user123", aggregate.Uptime)}
	repo.On("GetAllByUser", "user123").Return(expected, nil)

	stats, err := recorder.Stats("user123")

	assert.NoError(t, err)
	assert.Equal(t, expected, stats)
}
