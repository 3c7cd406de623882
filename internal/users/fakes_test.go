package users

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"ayudabesh-backend/internal/auth"
	"ayudabesh-backend/internal/notifications"
)

type memoryRepo struct {
	mu    sync.Mutex
	users map[string]User
}

func newMemoryRepo(users ...User) *memoryRepo {
	m := &memoryRepo{users: map[string]User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memoryRepo) get(id string) User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func (m *memoryRepo) mutate(id string, fn func(u *User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	fn(&u)
	m.users[id] = u
	return nil
}

func (m *memoryRepo) Create(ctx context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *memoryRepo) GetByID(ctx context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, mongo.ErrNoDocuments
	}
	return u, nil
}

func (m *memoryRepo) FindForLogin(ctx context.Context, username, role string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username && u.Role == role {
			return u, nil
		}
	}
	return User{}, mongo.ErrNoDocuments
}

func (m *memoryRepo) FindByIdentifier(ctx context.Context, identifier, role string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Role != role {
			continue
		}
		if u.Email == identifier || u.Username == identifier || u.Phone == normalizePhone(identifier) {
			return u, nil
		}
	}
	return User{}, mongo.ErrNoDocuments
}

func (m *memoryRepo) ExistsBy(ctx context.Context, field, value, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == excludeID {
			continue
		}
		switch field {
		case "username":
			if u.Username == value {
				return true, nil
			}
		case "email":
			if u.Email == value {
				return true, nil
			}
		case "phone":
			if u.Phone == value {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *memoryRepo) ListProviders(ctx context.Context, filter ProviderFilter) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]User, 0)
	for _, u := range m.users {
		if u.Role != auth.RoleProvider {
			continue
		}
		if filter.Status == ProviderStatusPending && (u.IsVerified || u.IsRejected) {
			continue
		}
		if filter.Status == ProviderStatusVerified && !u.IsVerified {
			continue
		}
		if filter.Active && u.AccountDisabled {
			continue
		}
		if filter.Service != "" && !contains(u.ServicesOffered, filter.Service) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func (m *memoryRepo) ListByRole(ctx context.Context, role string) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]User, 0)
	for _, u := range m.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListDeletionRequests(ctx context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]User, 0)
	for _, u := range m.users {
		if u.DeletionRequested && u.AccountDisabled {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memoryRepo) SetVerified(ctx context.Context, id string, at time.Time) error {
	if u := m.get(id); u.ID != "" && u.Role != auth.RoleProvider {
		return mongo.ErrNoDocuments
	}
	return m.mutate(id, func(u *User) {
		u.IsVerified, u.IsRejected, u.RejectionReason = true, false, ""
		u.VerifiedAt = &at
	})
}

func (m *memoryRepo) SetRejected(ctx context.Context, id, reason string, at time.Time) error {
	if u := m.get(id); u.ID != "" && u.Role != auth.RoleProvider {
		return mongo.ErrNoDocuments
	}
	return m.mutate(id, func(u *User) {
		u.IsVerified, u.IsRejected, u.RejectionReason = false, true, reason
		u.RejectedAt = &at
	})
}

func (m *memoryRepo) Disable(ctx context.Context, id string, d Disable) error {
	return m.mutate(id, func(u *User) {
		u.AccountDisabled = true
		u.DisabledAt, u.DisabledUntil = &d.At, d.Until
		u.DisabledReason, u.DisabledBy = d.Reason, d.By
	})
}

func (m *memoryRepo) Enable(ctx context.Context, id string) error {
	return m.mutate(id, func(u *User) {
		u.AccountDisabled = false
		u.DisabledAt, u.DisabledUntil, u.DisabledReason, u.DisabledBy = nil, nil, "", ""
	})
}

func (m *memoryRepo) MarkDeletionRequested(ctx context.Context, id, reason string, at time.Time) error {
	return m.mutate(id, func(u *User) {
		u.DeletionRequested, u.DeletionReason, u.DeletionRequestedAt = true, reason, &at
		u.AccountDisabled = true
	})
}

func (m *memoryRepo) RejectDeletion(ctx context.Context, id, reason string, at time.Time) error {
	return m.mutate(id, func(u *User) {
		u.DeletionRequested, u.DeletionReason, u.DeletionRequestedAt = false, "", nil
		u.DeletionRejected, u.DeletionRejectionReason = true, reason
		u.AccountDisabled = false
	})
}

func (m *memoryRepo) Delete(ctx context.Context, id, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || (role != "" && u.Role != role) {
		return mongo.ErrNoDocuments
	}
	delete(m.users, id)
	return nil
}

func (m *memoryRepo) SetRating(ctx context.Context, id string, rating float64) error {
	return m.mutate(id, func(u *User) { u.Rating = rating })
}

func (m *memoryRepo) UpdateProfile(ctx context.Context, id string, fields map[string]interface{}, at time.Time) error {
	return m.mutate(id, func(u *User) {
		for k, v := range fields {
			switch k {
			case "full_name":
				u.FullName = v.(string)
			case "email":
				u.Email = v.(string)
			case "phone":
				u.Phone = v.(string)
			case "location":
				u.Location = v.(string)
			case "hourly_rate":
				u.HourlyRate = v.(float64)
			case "services_offered":
				u.ServicesOffered = v.([]string)
			case "password":
				u.Password = v.(string)
			}
		}
	})
}

func (m *memoryRepo) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	return m.mutate(id, func(u *User) { u.Password = hash })
}

func (m *memoryRepo) EnableExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, u := range m.users {
		if u.AccountDisabled && !u.DeletionRequested && u.DisabledUntil != nil && !u.DisabledUntil.After(now) {
			u.AccountDisabled, u.DisabledUntil = false, nil
			m.users[id] = u
			n++
		}
	}
	return n, nil
}

type fakeBookings struct {
	active, all, asProvider, completed int64
}

func (f fakeBookings) CountActiveForUser(ctx context.Context, userID string) (int64, error) {
	return f.active, nil
}

func (f fakeBookings) CountForUser(ctx context.Context, userID string) (int64, error) {
	return f.all, nil
}

func (f fakeBookings) CountForProvider(ctx context.Context, providerID string) (int64, error) {
	return f.asProvider, nil
}

func (f fakeBookings) CountCompletedForProvider(ctx context.Context, providerID string) (int64, error) {
	return f.completed, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifications.Message
}

func (n *recordingNotifier) Notify(ctx context.Context, msg notifications.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) to(userID string) []notifications.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notifications.Message, 0)
	for _, m := range n.sent {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out
}

type memoryResets struct {
	mu     sync.Mutex
	resets []PasswordReset
}

func (s *memoryResets) Replace(ctx context.Context, reset PasswordReset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.resets[:0]
	for _, r := range s.resets {
		if r.UserID != reset.UserID || r.Used {
			kept = append(kept, r)
		}
	}
	s.resets = append(kept, reset)
	return nil
}

func (s *memoryResets) Consume(ctx context.Context, userID, token, code string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.resets {
		if r.UserID == userID && r.ResetToken == token && r.VerificationCode == code && !r.Used && r.ExpiresAt.After(now) {
			s.resets[i].Used = true
			return nil
		}
	}
	return mongo.ErrNoDocuments
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTokens() *auth.Manager {
	return &auth.Manager{Secret: []byte("secret"), AccessTTL: time.Hour, ResetTTL: 15 * time.Minute, Issuer: "test"}
}
