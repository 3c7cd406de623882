package availability

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"go.mongodb.org/mongo-driver/mongo"

	"ayudabesh-backend/internal/bookings"
	"ayudabesh-backend/internal/schedule"
)

// BookingLister returns a provider's bookings scheduled in [from, to).
type BookingLister interface {
	ProviderBookingsBetween(ctx context.Context, providerID string, from, to time.Time) ([]bookings.Booking, error)
}

type Service struct {
	repo       Repository
	bookings   BookingLister
	defaultTZ  string
	defaultLoc *time.Location
	log        *slog.Logger
	now        func() time.Time
}

func NewService(repo Repository, lister BookingLister, defaultTZ string, log *slog.Logger) (*Service, error) {
	loc, err := time.LoadLocation(defaultTZ)
	if err != nil {
		return nil, err
	}
	return &Service{
		repo:       repo,
		bookings:   lister,
		defaultTZ:  defaultTZ,
		defaultLoc: loc,
		log:        log,
		now:        time.Now,
	}, nil
}

// location resolves the record's timezone, falling back to the default.
func (s *Service) location(a Availability) *time.Location {
	if a.Timezone == "" || a.Timezone == s.defaultTZ {
		return s.defaultLoc
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		s.log.Warn("availability: unknown timezone",
			slog.String("provider_id", a.ProviderID),
			slog.String("timezone", a.Timezone),
		)
		return s.defaultLoc
	}
	return loc
}

// Get returns the stored record or the default schedule.
func (s *Service) Get(ctx context.Context, providerID string) (Availability, error) {
	a, err := s.repo.GetByProvider(ctx, providerID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Default(providerID, s.defaultTZ), nil
		}
		return Availability{}, err
	}
	if a.Timezone == "" {
		a.Timezone = s.defaultTZ
	}
	return a, nil
}

func (s *Service) Save(ctx context.Context, providerID string, req Request) (Availability, bool, error) {
	if err := Validate(req); err != nil {
		return Availability{}, false, err
	}
	a := Availability{
		ProviderID:    providerID,
		Schedule:      map[string]DaySchedule{},
		SpecificDates: req.SpecificDates,
		Timezone:      strings.TrimSpace(req.Timezone),
	}
	for day, entry := range req.Schedule {
		if entry.Breaks == nil {
			entry.Breaks = []Break{}
		}
		a.Schedule[strings.ToLower(day)] = entry
	}
	if a.SpecificDates == nil {
		a.SpecificDates = []DateOverride{}
	}
	if a.Timezone == "" {
		a.Timezone = s.defaultTZ
	}

	created, err := s.repo.Upsert(ctx, a, s.now().UTC())
	if err != nil {
		return Availability{}, false, err
	}
	return a, created, nil
}

func (s *Service) Reset(ctx context.Context, providerID string) error {
	return s.repo.Delete(ctx, providerID)
}

// IsAvailable evaluates at in the provider's own timezone.
func (s *Service) IsAvailable(ctx context.Context, providerID string, at time.Time) (bool, string, error) {
	a, err := s.Get(ctx, providerID)
	if err != nil {
		return false, "", err
	}
	v := a.Evaluate(at, s.location(a))
	return v.Available, v.Reason, nil
}

// Check reads an offset-less datetime as wall clock in the provider's zone.
func (s *Service) Check(ctx context.Context, req CheckRequest) (Verdict, error) {
	a, err := s.Get(ctx, strings.TrimSpace(req.ProviderID))
	if err != nil {
		return Verdict{}, err
	}
	loc := s.location(a)
	at, err := schedule.ParseTimestamp(req.Datetime, loc)
	if err != nil {
		return Verdict{}, err
	}
	return a.Evaluate(at, loc), nil
}

// Calendar lays out one month of day-level availability with the bookings
// scheduled on each day.
func (s *Service) Calendar(ctx context.Context, providerID string, year int, month time.Month) (Calendar, error) {
	a, err := s.Get(ctx, providerID)
	if err != nil {
		return Calendar{}, err
	}
	loc := s.location(a)
	days, err := schedule.MonthRange(year, month, loc)
	if err != nil {
		return Calendar{}, err
	}

	from := days[0]
	to := days[len(days)-1].AddDate(0, 0, 1)
	items, err := s.bookings.ProviderBookingsBetween(ctx, providerID, from, to)
	if err != nil {
		return Calendar{}, err
	}
	byDate := map[string][]CalendarBooking{}
	for _, b := range items {
		key := b.BookingTime.In(loc).Format(schedule.DateLayout)
		name := b.CustomerName
		if name == "" {
			name = "Unknown"
		}
		byDate[key] = append(byDate[key], CalendarBooking{
			ID:           b.ID,
			Time:         b.BookingTime,
			ServiceType:  b.ServiceType,
			Status:       b.Status,
			CustomerName: name,
		})
	}

	out := Calendar{Month: int(month), Year: year, Calendar: make([]CalendarDay, 0, len(days))}
	for _, d := range days {
		key := d.Format(schedule.DateLayout)
		ok, reason := a.DayStatus(d)
		day := CalendarDay{
			Date:          key,
			DayName:       schedule.WeekdayName(d.Weekday()),
			Available:     ok,
			BookingsCount: len(byDate[key]),
			Bookings:      byDate[key],
		}
		if reason != "" {
			r := reason
			day.Reason = &r
		}
		if day.Bookings == nil {
			day.Bookings = []CalendarBooking{}
		}
		out.Calendar = append(out.Calendar, day)
	}
	return out, nil
}

// Now is the current instant in the default timezone.
func (s *Service) Now() time.Time {
	return s.now().In(s.defaultLoc)
}
