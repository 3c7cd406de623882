package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"ayudabesh-backend/internal/notifications"
)

// Enqueuer is the part of *asynq.Client the dispatcher needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher queues e-mail copies of stored notifications.
type Dispatcher struct {
	client Enqueuer
	log    *slog.Logger
}

func NewDispatcher(client Enqueuer, log *slog.Logger) *Dispatcher {
	return &Dispatcher{client: client, log: log}
}

func (d *Dispatcher) EnqueueNotificationEmail(ctx context.Context, n notifications.Notification) error {
	task, err := NewNotificationEmailTask(n)
	if err != nil {
		return err
	}
	info, err := d.client.EnqueueContext(ctx, task)
	if err != nil {
		return err
	}
	d.log.Debug("notification email: queued",
		slog.String("notification_id", n.ID),
		slog.String("task_id", info.ID),
	)
	return nil
}
