package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"ayudabesh-backend/internal/notifications"
)

const (
	TypeNotificationEmail = "notification:email"

	QueueDefault = "default"
	maxRetry     = 5
)

func NewNotificationEmailTask(n notifications.Notification) (*asynq.Task, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeNotificationEmail, payload,
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(30*time.Second),
		asynq.Queue(QueueDefault),
	), nil
}
