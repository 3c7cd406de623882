package catalog

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ayudabesh-backend/internal/cache"
	"ayudabesh-backend/internal/users"
)

const listKey = "services:all"

type ProviderSource interface {
	ListProviders(ctx context.Context, filter users.ProviderFilter) ([]users.User, error)
}

type Service struct {
	repo      Repository
	providers ProviderSource
	cache     cache.Cache
	ttl       time.Duration
	log       *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, providers ProviderSource, c cache.Cache, ttl time.Duration, log *slog.Logger) *Service {
	if c == nil {
		c = cache.NewNoop()
	}
	return &Service{repo: repo, providers: providers, cache: c, ttl: ttl, log: log, now: time.Now}
}

// Prepare fills ids, slugs and timestamps on items meant for Seed.
func Prepare(items []Category, at time.Time) []Category {
	out := make([]Category, len(items))
	for i, s := range items {
		if s.ID == "" {
			s.ID = primitive.NewObjectID().Hex()
		}
		if s.Slug == "" {
			s.Slug = Slugify(s.Name)
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = at.UTC()
		}
		out[i] = s
	}
	return out
}

// SeedDefaults adds any default category missing from the collection.
func (s *Service) SeedDefaults(ctx context.Context) (int64, error) {
	added, err := s.repo.Seed(ctx, Prepare(Defaults, s.now()))
	if err != nil {
		return 0, err
	}
	if added > 0 {
		_ = s.cache.Delete(ctx, listKey)
	}
	return added, nil
}

// List returns every category, seeding the defaults when the collection is empty.
func (s *Service) List(ctx context.Context) ([]Category, error) {
	var items []Category
	if ok, err := cache.GetJSON(ctx, s.cache, listKey, &items); err == nil && ok {
		return items, nil
	}

	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		added, err := s.SeedDefaults(ctx)
		if err != nil {
			return nil, err
		}
		s.log.Info("services: seeded defaults", slog.Int64("count", added))
		if items, err = s.repo.List(ctx); err != nil {
			return nil, err
		}
	}

	if err := cache.SetJSON(ctx, s.cache, listKey, items, s.ttl); err != nil {
		s.log.Warn("services: cache set failed", slog.String("error", err.Error()))
	}
	return items, nil
}

// Available lists one entry per verified provider and offered service.
func (s *Service) Available(ctx context.Context) ([]Listing, error) {
	providers, err := s.providers.ListProviders(ctx, users.ProviderFilter{Status: users.ProviderStatusVerified, Active: true})
	if err != nil {
		return nil, err
	}
	categories, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	byCategory := make(map[string]Category, len(categories))
	for _, c := range categories {
		byCategory[c.Category] = c
	}

	out := make([]Listing, 0, len(providers))
	for _, p := range providers {
		base := Listing{
			ProviderID:  p.ID,
			CompanyName: orDefault(p.Username, "Unknown Company"),
			OwnerName:   orDefault(p.FullName, "Unknown Owner"),
			Location:    orDefault(p.Location, "Not specified"),
			HourlyRate:  p.HourlyRate,
			Rating:      p.Rating,
		}
		if base.HourlyRate == 0 {
			base.HourlyRate = DefaultHourlyRate
		}

		if len(p.ServicesOffered) == 0 {
			l := base
			l.ServiceType = GeneralCategory
			l.ServiceName = GeneralServiceName
			l.Description = orDefault(p.Description, "Professional service provider")
			out = append(out, l)
			continue
		}
		for _, tag := range p.ServicesOffered {
			l := base
			l.ServiceType = tag
			l.ServiceName = Title(tag)
			l.Description = p.Description
			if c, ok := byCategory[tag]; ok {
				l.ServiceName = c.Name
				if l.Description == "" {
					l.Description = c.Description
				}
			}
			l.Description = orDefault(l.Description, "Professional service provider")
			out = append(out, l)
		}
	}
	return out, nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
