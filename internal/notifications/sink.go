package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EmailQueue hands a stored notification to asynchronous e-mail delivery.
type EmailQueue interface {
	EnqueueNotificationEmail(ctx context.Context, n Notification) error
}

// Sink stores side-channel notifications. Callers treat it as best effort.
type Sink struct {
	repo  Repository
	queue EmailQueue
	log   *slog.Logger
	now   func() time.Time
}

func NewSink(repo Repository, queue EmailQueue, log *slog.Logger) *Sink {
	return &Sink{repo: repo, queue: queue, log: log, now: time.Now}
}

func (s *Sink) Notify(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.UserID) == "" {
		return errors.New("notification without recipient")
	}
	kind := msg.Type
	if !IsValidType(kind) {
		kind = TypeInfo
	}

	n := Notification{
		ID:        primitive.NewObjectID().Hex(),
		UserID:    msg.UserID,
		Title:     msg.Title,
		Message:   msg.Message,
		Type:      kind,
		BookingID: msg.BookingID,
		Link:      msg.Link,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		return err
	}

	if s.queue != nil {
		if err := s.queue.EnqueueNotificationEmail(ctx, n); err != nil {
			s.log.Warn("notification email: enqueue failed",
				slog.String("notification_id", n.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// Notifier is the contract the rest of the application depends on.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Send delivers msg and swallows any failure after logging it.
func Send(ctx context.Context, n Notifier, log *slog.Logger, msg Message) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, msg); err != nil {
		log.Warn("notification dropped",
			slog.String("user_id", msg.UserID),
			slog.String("title", msg.Title),
			slog.String("error", err.Error()),
		)
	}
}
