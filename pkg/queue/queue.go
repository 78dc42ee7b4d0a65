package queue

import (
	"context"
)

// Handler processes one task. A returned error makes the queue consult its
// RetryManager.
type Handler func(ctx context.Context, task *Task) error

// Queue интерфейс очереди
type Queue interface {
	Publish(ctx context.Context, task *Task) error
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}
