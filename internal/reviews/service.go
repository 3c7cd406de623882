package reviews

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"ayudabesh-backend/internal/auth"
	"ayudabesh-backend/internal/bookings"
	"ayudabesh-backend/internal/cache"
	"ayudabesh-backend/internal/users"
)

var (
	ErrProviderNotFound = errors.New("provider not found")
	ErrNotFound         = errors.New("review not found")
)

type Directory interface {
	GetByID(ctx context.Context, id string) (users.User, error)
}

type Service struct {
	repo       Repository
	aggregator *Aggregator
	directory  Directory
	cache      cache.Cache
	statsTTL   time.Duration
	log        *slog.Logger
}

func NewService(repo Repository, aggregator *Aggregator, directory Directory, c cache.Cache, statsTTL time.Duration, log *slog.Logger) *Service {
	if c == nil {
		c = cache.NewNoop()
	}
	return &Service{
		repo:       repo,
		aggregator: aggregator,
		directory:  directory,
		cache:      c,
		statsTTL:   statsTTL,
		log:        log,
	}
}

// Record upserts the booking's review and refreshes the provider average.
func (s *Service) Record(ctx context.Context, ev bookings.RatingEvent) (float64, error) {
	err := s.repo.Upsert(ctx, Review{
		BookingID:    ev.BookingID,
		ProviderID:   ev.ProviderID,
		CustomerID:   ev.CustomerID,
		CustomerName: ev.CustomerName,
		ServiceType:  ev.ServiceType,
		Rating:       ev.Rating,
		Review:       ev.Review,
		UpdatedAt:    ev.At,
	})
	if err != nil {
		return 0, err
	}
	return s.aggregator.Recompute(ctx, ev.ProviderID)
}

func (s *Service) stats(ctx context.Context, providerID string) (Stats, error) {
	var st Stats
	key := statsKey(providerID)
	if ok, err := cache.GetJSON(ctx, s.cache, key, &st); err == nil && ok {
		return st, nil
	} else if err != nil {
		s.log.Warn("rating stats: cache read failed", slog.String("error", err.Error()))
	}

	counts, err := s.repo.RatingCounts(ctx, providerID)
	if err != nil {
		return Stats{}, err
	}
	st = Stats{Distribution: map[string]int64{}}
	var sum int64
	for star := 1; star <= 5; star++ {
		n := counts[star]
		st.Distribution[strconv.Itoa(star)] = n
		st.TotalReviews += n
		sum += int64(star) * n
	}
	if st.TotalReviews > 0 {
		st.AverageRating = math.Round(float64(sum)/float64(st.TotalReviews)*100) / 100
	}

	if err := cache.SetJSON(ctx, s.cache, key, st, s.statsTTL); err != nil {
		s.log.Warn("rating stats: cache write failed", slog.String("error", err.Error()))
	}
	return st, nil
}

func (s *Service) ProviderReviews(ctx context.Context, providerID string, page, limit, offset int64) (ProviderReviews, error) {
	provider, err := s.directory.GetByID(ctx, providerID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ProviderReviews{}, ErrProviderNotFound
		}
		return ProviderReviews{}, err
	}
	if provider.Role != auth.RoleProvider {
		return ProviderReviews{}, ErrProviderNotFound
	}

	st, err := s.stats(ctx, providerID)
	if err != nil {
		return ProviderReviews{}, err
	}
	items, err := s.repo.ListForProvider(ctx, providerID, limit, offset)
	if err != nil {
		return ProviderReviews{}, err
	}
	if items == nil {
		items = []Review{}
	}
	return ProviderReviews{
		ProviderID:   providerID,
		ProviderName: provider.DisplayName(),
		Stats:        st,
		Reviews:      items,
		Page:         page,
		Limit:        limit,
	}, nil
}

// BookingReview is visible to the booking's two parties and to admins.
func (s *Service) BookingReview(ctx context.Context, p auth.Principal, bookingID string) (Review, error) {
	rv, err := s.repo.GetByBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Review{}, ErrNotFound
		}
		return Review{}, err
	}
	if p.Is(auth.RoleAdmin) || rv.CustomerID == p.UserID || rv.ProviderID == p.UserID {
		return rv, nil
	}
	return Review{}, ErrNotFound
}

func (s *Service) MyReviews(ctx context.Context, p auth.Principal) ([]MyReview, error) {
	items, err := s.repo.ListForCustomer(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	names := map[string]string{}
	out := make([]MyReview, 0, len(items))
	for _, rv := range items {
		name, ok := names[rv.ProviderID]
		if !ok {
			if u, err := s.directory.GetByID(ctx, rv.ProviderID); err == nil {
				name = u.DisplayName()
			}
			names[rv.ProviderID] = name
		}
		out = append(out, MyReview{Review: rv, ProviderName: name})
	}
	return out, nil
}
