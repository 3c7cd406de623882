package bookings

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"ayudabesh-backend/internal/auth"
	"ayudabesh-backend/internal/notifications"
	"ayudabesh-backend/internal/users"
)

// memoryRepo applies the same guarded predicates as the Mongo repository
// under one lock, which stands in for single-document atomicity.
type memoryRepo struct {
	mu    sync.Mutex
	items map[string]Booking
}

func newMemoryRepo(items ...Booking) *memoryRepo {
	m := &memoryRepo{items: map[string]Booking{}}
	for _, b := range items {
		m.items[b.ID] = b
	}
	return m
}

func (m *memoryRepo) get(id string) Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id]
}

func (m *memoryRepo) Create(ctx context.Context, b Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[b.ID] = b
	return nil
}

func (m *memoryRepo) GetByID(ctx context.Context, id string) (Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[id]
	if !ok {
		return Booking{}, mongo.ErrNoDocuments
	}
	return b, nil
}

func (m *memoryRepo) Transition(ctx context.Context, t Transition) (Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[t.ID]
	if !ok || !contains(t.From, b.Status) ||
		(t.ProviderID != "" && b.ProviderID != t.ProviderID) ||
		(t.CustomerID != "" && b.CustomerID != t.CustomerID) {
		return Booking{}, mongo.ErrNoDocuments
	}
	at := t.At
	b.Status = t.To
	switch t.To {
	case StatusAccepted:
		b.AcceptedAt = &at
	case StatusRejected:
		b.RejectedAt = &at
		b.RejectionReason = t.Reason
	case StatusCompleted:
		b.CompletedAt = &at
	case StatusCancelled:
		b.CancelledAt = &at
		b.CancelledBy = t.By
		b.CancellationReason = t.Reason
	}
	m.items[t.ID] = b
	return b, nil
}

func (m *memoryRepo) SetFinalPrice(ctx context.Context, id, providerID string, price float64, at time.Time) (Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[id]
	if !ok || b.ProviderID != providerID || !IsActive(b.Status) {
		return Booking{}, mongo.ErrNoDocuments
	}
	b.FinalPrice = &price
	b.PriceUpdatedAt = &at
	m.items[id] = b
	return b, nil
}

func (m *memoryRepo) SetRating(ctx context.Context, id, customerID string, rating int, review string, at time.Time) (Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[id]
	if !ok || b.CustomerID != customerID || b.Status != StatusCompleted {
		return Booking{}, mongo.ErrNoDocuments
	}
	b.Rating = &rating
	b.RatedAt = &at
	if review != "" {
		b.Review = review
	}
	m.items[id] = b
	return b, nil
}

func (m *memoryRepo) filter(keep func(Booking) bool) []Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Booking, 0)
	for _, b := range m.items {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memoryRepo) ListForCustomer(ctx context.Context, customerID string) ([]Booking, error) {
	return m.filter(func(b Booking) bool { return b.CustomerID == customerID }), nil
}

func (m *memoryRepo) ListForProvider(ctx context.Context, providerID string) ([]Booking, error) {
	return m.filter(func(b Booking) bool { return b.ProviderID == providerID }), nil
}

func (m *memoryRepo) ListForProviderBetween(ctx context.Context, providerID string, from, to time.Time) ([]Booking, error) {
	return m.filter(func(b Booking) bool {
		return b.ProviderID == providerID && !b.BookingTime.Before(from) && b.BookingTime.Before(to)
	}), nil
}

func (m *memoryRepo) ProviderRatings(ctx context.Context, providerID string) ([]int, error) {
	out := make([]int, 0)
	for _, b := range m.filter(func(b Booking) bool { return b.ProviderID == providerID && b.Rating != nil }) {
		out = append(out, *b.Rating)
	}
	return out, nil
}

type fakeDirectory map[string]users.User

func (d fakeDirectory) GetByID(ctx context.Context, id string) (users.User, error) {
	u, ok := d[id]
	if !ok {
		return users.User{}, mongo.ErrNoDocuments
	}
	return u, nil
}

// projectingRatings keeps one review per booking and averages from the repo.
type projectingRatings struct {
	repo    *memoryRepo
	mu      sync.Mutex
	reviews map[string]RatingEvent
}

func (p *projectingRatings) Record(ctx context.Context, ev RatingEvent) (float64, error) {
	p.mu.Lock()
	p.reviews[ev.BookingID] = ev
	p.mu.Unlock()

	ratings, _ := p.repo.ProviderRatings(ctx, ev.ProviderID)
	if len(ratings) == 0 {
		return 0, nil
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return math.Round(float64(sum)/float64(len(ratings))*100) / 100, nil
}

type fakeAvailability struct {
	ok     bool
	reason string
}

func (f fakeAvailability) IsAvailable(ctx context.Context, providerID string, at time.Time) (bool, string, error) {
	return f.ok, f.reason, nil
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

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	customer      = auth.Principal{UserID: "c1", Role: auth.RoleCustomer}
	otherCustomer = auth.Principal{UserID: "c2", Role: auth.RoleCustomer}
	provider      = auth.Principal{UserID: "p1", Role: auth.RoleProvider}
	otherProvider = auth.Principal{UserID: "p2", Role: auth.RoleProvider}
	admin         = auth.Principal{UserID: "a1", Role: auth.RoleAdmin}
)

func directory() fakeDirectory {
	return fakeDirectory{
		"c1": {ID: "c1", Username: "maria", FullName: "Maria Cruz", Email: "maria@example.com", Phone: "+639171112222", Role: auth.RoleCustomer},
		"c2": {ID: "c2", Username: "jose", FullName: "Jose Rizal", Role: auth.RoleCustomer},
		"p1": {ID: "p1", Username: "cleanco", FullName: "Ana Santos", Role: auth.RoleProvider, IsVerified: true},
		"p2": {ID: "p2", Username: "fixit", Role: auth.RoleProvider, IsVerified: true},
		"p3": {ID: "p3", Username: "newbie", Role: auth.RoleProvider},
	}
}

type fixture struct {
	svc      *Service
	repo     *memoryRepo
	ratings  *projectingRatings
	notifier *recordingNotifier
}

func newFixture(items ...Booking) fixture {
	repo := newMemoryRepo(items...)
	ratings := &projectingRatings{repo: repo, reviews: map[string]RatingEvent{}}
	notifier := &recordingNotifier{}
	svc := NewService(repo, directory(), ratings, notifier, discardLogger())
	svc.now = func() time.Time { return time.Date(2024, 6, 5, 8, 0, 0, 0, time.UTC) }
	return fixture{svc: svc, repo: repo, ratings: ratings, notifier: notifier}
}

func booking(id, status string) Booking {
	return Booking{
		ID:          id,
		CustomerID:  "c1",
		ProviderID:  "p1",
		ServiceType: "cleaning",
		Status:      status,
		Price:       500,
		CreatedAt:   time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}
}
