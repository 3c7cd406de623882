package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"

	"ayudabesh-backend/internal/notifications"
)

// ContactLookup resolves where a user's mail goes.
type ContactLookup interface {
	Contact(ctx context.Context, userID string) (notifications.Recipient, error)
}

type EmailSender interface {
	SendNotificationEmail(ctx context.Context, to notifications.Recipient, n notifications.Notification) (string, error)
}

type Worker struct {
	contacts ContactLookup
	mailer   EmailSender
	log      *slog.Logger
}

func NewWorker(contacts ContactLookup, mailer EmailSender, log *slog.Logger) *Worker {
	return &Worker{contacts: contacts, mailer: mailer, log: log}
}

func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeNotificationEmail, w.HandleNotificationEmail)
}

// HandleNotificationEmail returns nil for anything a retry cannot fix.
func (w *Worker) HandleNotificationEmail(ctx context.Context, t *asynq.Task) error {
	var n notifications.Notification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return fmt.Errorf("decode notification payload: %v: %w", err, asynq.SkipRetry)
	}
	log := w.log.With(slog.String("notification_id", n.ID), slog.String("user_id", n.UserID))

	to, err := w.contacts.Contact(ctx, n.UserID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Info("notification email: recipient gone")
			return nil
		}
		return err
	}
	if to.Email == "" {
		log.Info("notification email: recipient has no email")
		return nil
	}
	if w.mailer == nil {
		log.Debug("notification email: mailer disabled")
		return nil
	}

	messageID, err := w.mailer.SendNotificationEmail(ctx, to, n)
	if err != nil {
		log.Warn("notification email: send failed", slog.String("error", err.Error()))
		return err
	}
	log.Info("notification email: sent", slog.String("message_id", messageID))
	return nil
}

// NewServer builds the asynq server that runs the worker's handlers.
func NewServer(opt asynq.RedisConnOpt, concurrency int, log *slog.Logger) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 5
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueDefault: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			limit, _ := asynq.GetMaxRetry(ctx)
			log.Warn("job failed",
				slog.String("type", task.Type()),
				slog.Int("retry", retried),
				slog.Int("max_retry", limit),
				slog.String("error", err.Error()),
			)
		}),
	})
}
