package notifications

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

const inboxLimit = 100

var ErrNotFound = errors.New("notification not found")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Inbox(ctx context.Context, userID string) (Inbox, error) {
	items, err := s.repo.ListForUser(ctx, userID, inboxLimit)
	if err != nil {
		return Inbox{}, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return Inbox{}, err
	}
	return Inbox{Notifications: items, UnreadCount: unread}, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	err := s.repo.MarkRead(ctx, strings.TrimSpace(id), userID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
