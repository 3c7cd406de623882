package reviews

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"ayudabesh-backend/internal/auth"
	"ayudabesh-backend/internal/bookings"
	"ayudabesh-backend/internal/users"
)

type memoryRepo struct {
	mu    sync.Mutex
	items map[string]Review
}

func (m *memoryRepo) Upsert(ctx context.Context, rv Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.items[rv.BookingID]; ok {
		rv.ID = old.ID
		rv.CreatedAt = old.CreatedAt
		if rv.Review == "" {
			rv.Review = old.Review
		}
	} else {
		rv.ID = "r-" + rv.BookingID
		rv.CreatedAt = rv.UpdatedAt
	}
	m.items[rv.BookingID] = rv
	return nil
}

func (m *memoryRepo) GetByBooking(ctx context.Context, bookingID string) (Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rv, ok := m.items[bookingID]
	if !ok {
		return Review{}, mongo.ErrNoDocuments
	}
	return rv, nil
}

func (m *memoryRepo) where(keep func(Review) bool) []Review {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Review, 0)
	for _, rv := range m.items {
		if keep(rv) {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memoryRepo) ListForProvider(ctx context.Context, providerID string, limit, offset int64) ([]Review, error) {
	all := m.where(func(rv Review) bool { return rv.ProviderID == providerID })
	if offset >= int64(len(all)) {
		return nil, nil
	}
	end := offset + limit
	if end > int64(len(all)) {
		end = int64(len(all))
	}
	return all[offset:end], nil
}

func (m *memoryRepo) ListForCustomer(ctx context.Context, customerID string) ([]Review, error) {
	return m.where(func(rv Review) bool { return rv.CustomerID == customerID }), nil
}

func (m *memoryRepo) RatingCounts(ctx context.Context, providerID string) (map[int]int64, error) {
	out := map[int]int64{}
	for _, rv := range m.where(func(rv Review) bool { return rv.ProviderID == providerID }) {
		out[rv.Rating]++
	}
	return out, nil
}

// ratingsFromReviews stands in for the bookings collection.
type ratingsFromReviews struct{ repo *memoryRepo }

func (s ratingsFromReviews) ProviderRatings(ctx context.Context, providerID string) ([]int, error) {
	out := make([]int, 0)
	for _, rv := range s.repo.where(func(rv Review) bool { return rv.ProviderID == providerID }) {
		out = append(out, rv.Rating)
	}
	return out, nil
}

type ratingWriter struct {
	mu      sync.Mutex
	ratings map[string]float64
}

func (w *ratingWriter) SetRating(ctx context.Context, id string, rating float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ratings[id] = rating
	return nil
}

type mapCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deletes int
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.deletes++
	return nil
}

type fakeDirectory map[string]users.User

func (d fakeDirectory) GetByID(ctx context.Context, id string) (users.User, error) {
	u, ok := d[id]
	if !ok {
		return users.User{}, mongo.ErrNoDocuments
	}
	return u, nil
}

type fixture struct {
	svc    *Service
	repo   *memoryRepo
	writer *ratingWriter
	cache  *mapCache
}

func newFixture() fixture {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := &memoryRepo{items: map[string]Review{}}
	writer := &ratingWriter{ratings: map[string]float64{}}
	c := &mapCache{data: map[string][]byte{}}
	dir := fakeDirectory{
		"p1": {ID: "p1", Username: "cleanco", FullName: "Ana Santos", Role: auth.RoleProvider},
		"c1": {ID: "c1", Username: "maria", Role: auth.RoleCustomer},
	}
	agg := NewAggregator(ratingsFromReviews{repo: repo}, writer, c, log)
	return fixture{
		svc:    NewService(repo, agg, dir, c, time.Minute, log),
		repo:   repo,
		writer: writer,
		cache:  c,
	}
}

func event(bookingID string, rating int, review string, at time.Time) bookings.RatingEvent {
	return bookings.RatingEvent{
		BookingID:    bookingID,
		ProviderID:   "p1",
		CustomerID:   "c1",
		CustomerName: "maria",
		ServiceType:  "cleaning",
		Rating:       rating,
		Review:       review,
		At:           at,
	}
}

func TestAverage(t *testing.T) {
	assert.Equal(t, 0.0, Average(nil))
	assert.Equal(t, 4.0, Average([]int{4}))
	assert.Equal(t, 4.33, Average([]int{5, 4, 4}))
	assert.Equal(t, 3.67, Average([]int{5, 5, 1}))
}

func TestRecordKeepsOneReviewPerBooking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	avg, err := f.svc.Record(ctx, event("b1", 5, "great", at))
	require.NoError(t, err)
	assert.Equal(t, 5.0, avg)

	avg, err = f.svc.Record(ctx, event("b1", 3, "", at.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, 3.0, avg)

	require.Len(t, f.repo.items, 1)
	rv := f.repo.items["b1"]
	assert.Equal(t, 3, rv.Rating)
	assert.Equal(t, "great", rv.Review)
	assert.Equal(t, at, rv.CreatedAt)
	assert.Equal(t, 3.0, f.writer.ratings["p1"])
}

func TestAggregateTracksNewRatings(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	for i, r := range []int{5, 4, 4} {
		_, err := f.svc.Record(ctx, event(string(rune('a'+i)), r, "", at))
		require.NoError(t, err)
	}
	assert.Equal(t, 4.33, f.writer.ratings["p1"])

	avg, err := f.svc.Record(ctx, event("d", 1, "", at))
	require.NoError(t, err)
	assert.Equal(t, 3.5, avg)
}

func TestProviderReviewsStatsAreCachedAndInvalidated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	_, err := f.svc.Record(ctx, event("b1", 5, "great", at))
	require.NoError(t, err)
	_, err = f.svc.Record(ctx, event("b2", 4, "", at.Add(time.Minute)))
	require.NoError(t, err)

	out, err := f.svc.ProviderReviews(ctx, "p1", 1, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "Ana Santos", out.ProviderName)
	assert.Equal(t, int64(2), out.TotalReviews)
	assert.Equal(t, 4.5, out.AverageRating)
	assert.Equal(t, int64(1), out.Distribution["5"])
	assert.Equal(t, int64(0), out.Distribution["1"])
	require.Len(t, out.Reviews, 2)
	assert.Equal(t, "b2", out.Reviews[0].BookingID)
	assert.Contains(t, f.cache.data, statsKey("p1"))

	before := f.cache.deletes
	_, err = f.svc.Record(ctx, event("b3", 3, "", at))
	require.NoError(t, err)
	assert.Equal(t, before+1, f.cache.deletes)
	assert.NotContains(t, f.cache.data, statsKey("p1"))

	_, err = f.svc.ProviderReviews(ctx, "c1", 1, 10, 0)
	assert.ErrorIs(t, err, ErrProviderNotFound)
	_, err = f.svc.ProviderReviews(ctx, "missing", 1, 10, 0)
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestBookingReviewVisibility(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.Record(ctx, event("b1", 5, "", time.Now()))
	require.NoError(t, err)

	for _, p := range []auth.Principal{
		{UserID: "c1", Role: auth.RoleCustomer},
		{UserID: "p1", Role: auth.RoleProvider},
		{UserID: "a1", Role: auth.RoleAdmin},
	} {
		_, err := f.svc.BookingReview(ctx, p, "b1")
		assert.NoError(t, err, p.UserID)
	}
	_, err = f.svc.BookingReview(ctx, auth.Principal{UserID: "c9", Role: auth.RoleCustomer}, "b1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.BookingReview(ctx, auth.Principal{UserID: "c1", Role: auth.RoleCustomer}, "b2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProviderReviewsHandler(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Record(context.Background(), event("b1", 5, "great", time.Now()))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Get("/providers/{id}/reviews", NewHandler(f.svc, f.svc.log).ProviderReviews)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/providers/p1/reviews?page=1&limit=5", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out ProviderReviews
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, int64(5), out.Limit)
	assert.Equal(t, int64(1), out.TotalReviews)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/providers/p1/reviews?page=0", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/providers/nope/reviews", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
