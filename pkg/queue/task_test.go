package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskGettersAfterJSONRoundTrip(t *testing.T) {
	occurred := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	task := NewTask(TaskTypeReleaseSeats, map[string]interface{}{
		"event_id":    "evt-1",
		"seats":       4,
		"occurred_at": occurred.Format(time.RFC3339Nano),
	})

	data, err := json.Marshal(task)
	require.NoError(t, err)

	var decoded Task
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, TaskTypeReleaseSeats, decoded.Type)
	assert.Equal(t, "evt-1", decoded.GetString("event_id"))
	assert.Equal(t, 4, decoded.GetInt("seats"))
	assert.True(t, occurred.Equal(decoded.GetTime("occurred_at")))

	assert.Empty(t, decoded.GetString("missing"))
	assert.Zero(t, decoded.GetInt("event_id"))
}

func TestTaskValidate(t *testing.T) {
	assert.Error(t, (&Task{Type: TaskTypeReleaseSeats}).Validate())
	assert.Error(t, (&Task{ID: "t1"}).Validate())

	task := &Task{ID: "t1", Type: TaskTypePublishBookingEvent}
	require.NoError(t, task.Validate())
	assert.NotNil(t, task.Data)
}
