package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"ayudabesh-backend/internal/auth"
	"ayudabesh-backend/internal/notifications"
)

// BookingCounter answers the booking questions the trust lifecycle gates on.
type BookingCounter interface {
	CountActiveForUser(ctx context.Context, userID string) (int64, error)
	CountForUser(ctx context.Context, userID string) (int64, error)
	CountForProvider(ctx context.Context, providerID string) (int64, error)
	CountCompletedForProvider(ctx context.Context, providerID string) (int64, error)
}

// TrustService owns provider verification and the disable and deletion
// lifecycle of every account.
type TrustService struct {
	repo     Repository
	bookings BookingCounter
	notifier notifications.Notifier
	log      *slog.Logger
	now      func() time.Time
}

func NewTrustService(repo Repository, bookings BookingCounter, notifier notifications.Notifier, log *slog.Logger) *TrustService {
	return &TrustService{
		repo:     repo,
		bookings: bookings,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

func notFound(err, sentinel error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return sentinel
	}
	return err
}

func (s *TrustService) PendingProviders(ctx context.Context) ([]User, error) {
	return s.repo.ListProviders(ctx, ProviderFilter{Status: ProviderStatusPending})
}

func (s *TrustService) VerifiedProviders(ctx context.Context) ([]VerifiedProvider, error) {
	providers, err := s.repo.ListProviders(ctx, ProviderFilter{Status: ProviderStatusVerified})
	if err != nil {
		return nil, err
	}
	out := make([]VerifiedProvider, 0, len(providers))
	for _, p := range providers {
		jobs, err := s.bookings.CountCompletedForProvider(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, VerifiedProvider{User: p, CompletedJobs: jobs})
	}
	return out, nil
}

func (s *TrustService) ProviderDetails(ctx context.Context, id string) (User, error) {
	u, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return User{}, notFound(err, ErrProviderNotFound)
	}
	if u.Role != auth.RoleProvider {
		return User{}, ErrProviderNotFound
	}
	u.Password = ""
	return u, nil
}

func (s *TrustService) Verify(ctx context.Context, providerID string) error {
	err := s.repo.SetVerified(ctx, strings.TrimSpace(providerID), s.now().UTC())
	if err != nil {
		return notFound(err, ErrProviderNotFound)
	}
	notifications.Send(ctx, s.notifier, s.log, notifications.Message{
		UserID:  providerID,
		Title:   "Account Verified",
		Message: "Your provider account has been verified. Customers can now book your services.",
		Type:    notifications.TypeSuccess,
	})
	return nil
}

func (s *TrustService) Reject(ctx context.Context, providerID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}
	if err := s.repo.SetRejected(ctx, strings.TrimSpace(providerID), reason, s.now().UTC()); err != nil {
		return notFound(err, ErrProviderNotFound)
	}
	notifications.Send(ctx, s.notifier, s.log, notifications.Message{
		UserID:  providerID,
		Title:   "Verification Rejected",
		Message: fmt.Sprintf("Your provider application was rejected. Reason: %s", reason),
		Type:    notifications.TypeError,
	})
	return nil
}

// Disable locks an account. durationDays of 0 keeps it locked until an
// admin enables it again.
func (s *TrustService) Disable(ctx context.Context, adminID, userID string, durationDays int, reason string) (*time.Time, error) {
	if durationDays < 0 {
		return nil, ErrInvalidDuration
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Account disabled by admin"
	}

	now := s.now().UTC()
	var until *time.Time
	if durationDays > 0 {
		t := now.AddDate(0, 0, durationDays)
		until = &t
	}

	err := s.repo.Disable(ctx, strings.TrimSpace(userID), Disable{At: now, Until: until, Reason: reason, By: adminID})
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}

	duration := " permanently"
	if until != nil {
		duration = " until " + until.Format("2006-01-02")
	}
	notifications.Send(ctx, s.notifier, s.log, notifications.Message{
		UserID:  userID,
		Title:   "Account Disabled",
		Message: fmt.Sprintf("Your account has been disabled%s by an administrator. Reason: %s", duration, reason),
		Type:    notifications.TypeWarning,
	})
	return until, nil
}

func (s *TrustService) Enable(ctx context.Context, userID string) error {
	if err := s.repo.Enable(ctx, strings.TrimSpace(userID)); err != nil {
		return notFound(err, ErrNotFound)
	}
	notifications.Send(ctx, s.notifier, s.log, notifications.Message{
		UserID:  userID,
		Title:   "Account Enabled",
		Message: "Your account has been re-enabled by an administrator.",
		Type:    notifications.TypeSuccess,
	})
	return nil
}

// RequestDeletion is the self-service deletion request. It is refused while
// the caller still has pending or accepted bookings.
func (s *TrustService) RequestDeletion(ctx context.Context, p auth.Principal, reason string) error {
	active, err := s.bookings.CountActiveForUser(ctx, p.UserID)
	if err != nil {
		return err
	}
	if active > 0 {
		return fmt.Errorf("%w: %d active booking(s)", ErrActiveBookings, active)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "No reason provided"
	}

	u, err := s.repo.GetByID(ctx, p.UserID)
	if err != nil {
		return notFound(err, ErrNotFound)
	}
	if err := s.repo.MarkDeletionRequested(ctx, p.UserID, reason, s.now().UTC()); err != nil {
		return notFound(err, ErrNotFound)
	}

	admins, err := s.repo.ListByRole(ctx, auth.RoleAdmin)
	if err != nil {
		s.log.Warn("deletion request: admin lookup failed", slog.String("error", err.Error()))
		return nil
	}
	for _, admin := range admins {
		notifications.Send(ctx, s.notifier, s.log, notifications.Message{
			UserID:  admin.ID,
			Title:   "Account Deletion Request",
			Message: fmt.Sprintf("%s (%s) requested account deletion. Reason: %s", u.DisplayName(), u.Role, reason),
			Type:    notifications.TypeWarning,
		})
	}
	return nil
}

func (s *TrustService) DeletionRequests(ctx context.Context) ([]User, error) {
	return s.repo.ListDeletionRequests(ctx)
}

// ApproveDeletion hard-deletes a user that no booking references.
func (s *TrustService) ApproveDeletion(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	n, err := s.bookings.CountForUser(ctx, userID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: cannot delete account with %d booking(s)", ErrHasBookings, n)
	}
	return notFound(s.repo.Delete(ctx, userID, ""), ErrNotFound)
}

func (s *TrustService) RejectDeletion(ctx context.Context, userID, reason string) error {
	userID = strings.TrimSpace(userID)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Deletion request rejected by admin"
	}
	if err := s.repo.RejectDeletion(ctx, userID, reason, s.now().UTC()); err != nil {
		return notFound(err, ErrNotFound)
	}
	notifications.Send(ctx, s.notifier, s.log, notifications.Message{
		UserID:  userID,
		Title:   "Account Deletion Request Rejected",
		Message: fmt.Sprintf("Your account deletion request has been rejected by an administrator. Your account has been re-enabled. Reason: %s", reason),
		Type:    notifications.TypeInfo,
	})
	return nil
}

// DeleteProvider is the admin-direct path. Any booking at all blocks it.
func (s *TrustService) DeleteProvider(ctx context.Context, providerID string) error {
	providerID = strings.TrimSpace(providerID)
	n, err := s.bookings.CountForProvider(ctx, providerID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: cannot delete provider with %d booking(s)", ErrHasBookings, n)
	}
	return notFound(s.repo.Delete(ctx, providerID, auth.RoleProvider), ErrProviderNotFound)
}

// SweepExpiredDisables re-enables accounts whose disable window has ended.
func (s *TrustService) SweepExpiredDisables(ctx context.Context) (int64, error) {
	return s.repo.EnableExpired(ctx, s.now().UTC())
}
