package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var ErrTaskNotFound = errors.New("task not found in DLQ")

// DLQHandler stores tasks that exhausted their retries.
type DLQHandler interface {
	HandleFailedTask(ctx context.Context, task *Task, err error)
	GetFailedTasks(ctx context.Context, limit int) ([]*FailedTask, error)
	Remove(ctx context.Context, taskID string) (*Task, error)
	GetDLQStats(ctx context.Context) (*DLQStats, error)
}

type DefaultDLQHandler struct {
	client *redis.Client
	dlq    string
}

// FailedTask represents a task that failed execution
type FailedTask struct {
	Task     *Task     `json:"task"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
	Attempts int       `json:"attempts"`
}

type DLQStats struct {
	OldestFailure time.Time `json:"oldest_failure"`
	NewestFailure time.Time `json:"newest_failure"`
	QueueSize     int64     `json:"queue_size"`
}

func NewDefaultDLQHandler(client *redis.Client, prefix string) *DefaultDLQHandler {
	return &DefaultDLQHandler{
		client: client,
		dlq:    prefix + ":dlq",
	}
}

// HandleFailedTask stores a failed task scored by failure time.
func (d *DefaultDLQHandler) HandleFailedTask(ctx context.Context, task *Task, err error) {
	failedTask := &FailedTask{
		Task:     task,
		Error:    err.Error(),
		FailedAt: time.Now(),
		Attempts: task.Attempts,
	}

	taskData, marshalErr := json.Marshal(failedTask)
	if marshalErr != nil {
		logrus.WithError(marshalErr).Error("Failed to marshal failed task")
		return
	}

	// the request context may already be gone
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	redisErr := d.client.ZAdd(ctx, d.dlq, redis.Z{
		Score:  float64(failedTask.FailedAt.UnixMilli()),
		Member: taskData,
	}).Err()
	if redisErr != nil {
		logrus.WithError(redisErr).WithField("task_id", task.ID).Error("Failed to send task to DLQ")
		return
	}

	logrus.WithFields(logrus.Fields{
		"task_id": task.ID,
		"type":    task.Type,
		"error":   err.Error(),
	}).Warn("Task moved to DLQ")
}

// GetFailedTasks returns failed tasks, newest first.
func (d *DefaultDLQHandler) GetFailedTasks(ctx context.Context, limit int) ([]*FailedTask, error) {
	if limit <= 0 {
		limit = 50
	}

	tasks, err := d.client.ZRevRange(ctx, d.dlq, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get failed tasks: %w", err)
	}

	failedTasks := make([]*FailedTask, 0, len(tasks))
	for _, taskData := range tasks {
		var failedTask FailedTask
		if err := json.Unmarshal([]byte(taskData), &failedTask); err != nil {
			logrus.WithError(err).Warn("Failed to unmarshal failed task")
			continue
		}
		failedTasks = append(failedTasks, &failedTask)
	}

	return failedTasks, nil
}

// Remove deletes a failed task from the DLQ and returns it.
func (d *DefaultDLQHandler) Remove(ctx context.Context, taskID string) (*Task, error) {
	tasks, err := d.client.ZRange(ctx, d.dlq, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get DLQ tasks: %w", err)
	}

	for _, taskData := range tasks {
		var failedTask FailedTask
		if err := json.Unmarshal([]byte(taskData), &failedTask); err != nil || failedTask.Task == nil {
			continue
		}
		if failedTask.Task.ID != taskID {
			continue
		}

		if err := d.client.ZRem(ctx, d.dlq, taskData).Err(); err != nil {
			return nil, fmt.Errorf("failed to remove task from DLQ: %w", err)
		}
		return failedTask.Task, nil
	}

	return nil, fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
}

func (d *DefaultDLQHandler) GetDLQStats(ctx context.Context) (*DLQStats, error) {
	pipe := d.client.Pipeline()
	count := pipe.ZCard(ctx, d.dlq)
	oldest := pipe.ZRangeWithScores(ctx, d.dlq, 0, 0)
	newest := pipe.ZRevRangeWithScores(ctx, d.dlq, 0, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to get DLQ stats: %w", err)
	}

	stats := &DLQStats{QueueSize: count.Val()}
	if z := oldest.Val(); len(z) > 0 {
		stats.OldestFailure = time.UnixMilli(int64(z[0].Score))
	}
	if z := newest.Val(); len(z) > 0 {
		stats.NewestFailure = time.UnixMilli(int64(z[0].Score))
	}

	return stats, nil
}
