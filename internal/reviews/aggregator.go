package reviews

import (
	"context"
	"log/slog"
	"math"

	"ayudabesh-backend/internal/cache"
)

// RatingSource lists every rating a provider received on completed bookings.
type RatingSource interface {
	ProviderRatings(ctx context.Context, providerID string) ([]int, error)
}

// RatingWriter stores the cached average on the provider's account.
type RatingWriter interface {
	SetRating(ctx context.Context, id string, rating float64) error
}

// Aggregator recomputes a provider's average from scratch on every rating.
type Aggregator struct {
	source RatingSource
	writer RatingWriter
	cache  cache.Cache
	log    *slog.Logger
}

func NewAggregator(source RatingSource, writer RatingWriter, c cache.Cache, log *slog.Logger) *Aggregator {
	if c == nil {
		c = cache.NewNoop()
	}
	return &Aggregator{source: source, writer: writer, cache: c, log: log}
}

// Average is the arithmetic mean rounded to two decimals, or 0 when empty.
func Average(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return math.Round(float64(sum)/float64(len(ratings))*100) / 100
}

func statsKey(providerID string) string {
	return "reviews:stats:" + providerID
}

func (a *Aggregator) Recompute(ctx context.Context, providerID string) (float64, error) {
	ratings, err := a.source.ProviderRatings(ctx, providerID)
	if err != nil {
		return 0, err
	}
	avg := Average(ratings)
	if err := a.writer.SetRating(ctx, providerID, avg); err != nil {
		return 0, err
	}
	if err := a.cache.Delete(ctx, statsKey(providerID)); err != nil {
		a.log.Warn("rating stats: cache invalidation failed",
			slog.String("provider_id", providerID),
			slog.String("error", err.Error()),
		)
	}
	a.log.Debug("rating recomputed",
		slog.String("provider_id", providerID),
		slog.Int("ratings", len(ratings)),
		slog.Float64("average", avg),
	)
	return avg, nil
}
