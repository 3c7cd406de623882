package reports

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"ayudabesh-backend/internal/auth"
	"ayudabesh-backend/internal/bookings"
	"ayudabesh-backend/internal/moderation"
	"ayudabesh-backend/internal/schedule"
	"ayudabesh-backend/internal/users"
)

var (
	ErrInvalidDate = errors.New("invalid date format, use YYYY-MM-DD")
	ErrInvalidID   = errors.New("invalid id")
)

const (
	recentBookings  = 5
	recentEarnings  = 10
	unknownName     = "Unknown"
	unknownLocation = "Not specified"
)

var trackedStatuses = []string{
	bookings.StatusPending,
	bookings.StatusAccepted,
	bookings.StatusCompleted,
	bookings.StatusRejected,
	bookings.StatusCancelled,
}

type Service struct {
	store Store
	loc   *time.Location
	now   func() time.Time
}

func NewService(store Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, loc: loc, now: time.Now}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func average(sum float64, n int64) float64 {
	if n == 0 {
		return 0
	}
	return round2(sum / float64(n))
}

func emptyBreakdown() map[string]int64 {
	out := make(map[string]int64, len(trackedStatuses))
	for _, s := range trackedStatuses {
		out[s] = 0
	}
	return out
}

func (s *Service) Dashboard(ctx context.Context) (DashboardStats, error) {
	var out DashboardStats
	now := s.now().In(s.loc)
	today, _ := schedule.DayBounds(now, s.loc)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)

	all, err := s.store.Totals(ctx, BookingFilter{})
	if err != nil {
		return out, err
	}
	out.TotalBookings = all.Count

	counts, err := s.store.StatusCounts(ctx)
	if err != nil {
		return out, err
	}
	out.BookingsByStatus = emptyBreakdown()
	for _, status := range trackedStatuses {
		out.BookingsByStatus[status] = counts[status]
	}

	completed, err := s.store.Totals(ctx, BookingFilter{Status: bookings.StatusCompleted})
	if err != nil {
		return out, err
	}
	out.TotalRevenue = round2(completed.Revenue)
	out.AverageRating = average(completed.RatingSum, completed.Rated)
	out.TotalRatings = completed.Rated

	for _, window := range []struct {
		from     time.Time
		count    *int64
		revenue  *float64
	}{
		{today, &out.TodayBookings, &out.TodayRevenue},
		{month, &out.MonthBookings, &out.MonthRevenue},
	} {
		from := window.from
		created, err := s.store.Totals(ctx, BookingFilter{CreatedFrom: &from})
		if err != nil {
			return out, err
		}
		earned, err := s.store.Totals(ctx, BookingFilter{Status: bookings.StatusCompleted, CompletedFrom: &from})
		if err != nil {
			return out, err
		}
		*window.count = created.Count
		*window.revenue = round2(earned.Revenue)
	}

	verified, unverified := true, false
	if out.ActiveProviders, err = s.store.CountUsers(ctx, UserFilter{Role: auth.RoleProvider, Verified: &verified}); err != nil {
		return out, err
	}
	if out.PendingProviders, err = s.store.CountUsers(ctx, UserFilter{Role: auth.RoleProvider, Verified: &unverified}); err != nil {
		return out, err
	}
	if out.TotalCustomers, err = s.store.CountUsers(ctx, UserFilter{Role: auth.RoleCustomer}); err != nil {
		return out, err
	}
	if out.OpenDisputes, err = s.store.CountDisputes(ctx, moderation.DisputeOpen); err != nil {
		return out, err
	}
	if out.TotalDisputes, err = s.store.CountDisputes(ctx, ""); err != nil {
		return out, err
	}
	return out, nil
}

// parseDay resolves a YYYY-MM-DD string to its local midnight.
func (s *Service) parseDay(value string) (time.Time, error) {
	d, err := schedule.ParseDate(strings.TrimSpace(value), s.loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// window turns optional inclusive dates into a half-open [from, to) range.
func (s *Service) window(start, end string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if strings.TrimSpace(start) != "" {
		d, err := s.parseDay(start)
		if err != nil {
			return nil, nil, err
		}
		from = &d
	}
	if strings.TrimSpace(end) != "" {
		d, err := s.parseDay(end)
		if err != nil {
			return nil, nil, err
		}
		next := d.AddDate(0, 0, 1)
		to = &next
	}
	return from, to, nil
}

func validID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

func partyIDs(items []bookings.Booking) []string {
	seen := map[string]bool{}
	ids := make([]string, 0, len(items)*2)
	for _, b := range items {
		for _, id := range []string{b.CustomerID, b.ProviderID} {
			if id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func (s *Service) DailyBookings(ctx context.Context, date string) (DailyReport, error) {
	var day time.Time
	if strings.TrimSpace(date) == "" {
		day, _ = schedule.DayBounds(s.now(), s.loc)
	} else {
		d, err := s.parseDay(date)
		if err != nil {
			return DailyReport{}, err
		}
		day = d
	}
	next := day.AddDate(0, 0, 1)

	items, err := s.store.FindBookings(ctx, BookingFilter{CreatedFrom: &day, CreatedTo: &next}, "created_at")
	if err != nil {
		return DailyReport{}, err
	}
	names, err := s.store.UsersByID(ctx, partyIDs(items))
	if err != nil {
		return DailyReport{}, err
	}

	out := DailyReport{
		Date:            day.Format(schedule.DateLayout),
		TotalBookings:   len(items),
		StatusBreakdown: emptyBreakdown(),
		Bookings:        make([]DailyBooking, 0, len(items)),
	}
	var revenue float64
	for _, b := range items {
		if b.Status == bookings.StatusCompleted {
			revenue += b.Amount()
		}
		if _, ok := out.StatusBreakdown[b.Status]; ok {
			out.StatusBreakdown[b.Status]++
		}

		row := DailyBooking{
			Booking:         b,
			CustomerName:    unknownName,
			ProviderName:    unknownName,
			ProviderCompany: unknownName,
		}
		if c, ok := names[b.CustomerID]; ok {
			row.CustomerName = c.DisplayName()
			row.CustomerEmail = c.Email
		}
		if p, ok := names[b.ProviderID]; ok {
			row.ProviderName = p.Username
			row.ProviderCompany = p.Username
		}
		out.Bookings = append(out.Bookings, row)
	}
	out.TotalRevenue = round2(revenue)
	return out, nil
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func (s *Service) ProviderActivity(ctx context.Context) (ActivityReport, error) {
	providers, err := s.store.ListUsers(ctx, UserFilter{Role: auth.RoleProvider})
	if err != nil {
		return ActivityReport{}, err
	}
	tallies, err := s.store.ProviderTallies(ctx)
	if err != nil {
		return ActivityReport{}, err
	}
	byProvider := make(map[string]Tally, len(tallies))
	for _, t := range tallies {
		byProvider[t.ProviderID] = t
	}

	out := ActivityReport{Providers: make([]ProviderActivity, 0, len(providers))}
	for _, p := range providers {
		t := byProvider[p.ID]
		services := p.ServicesOffered
		if services == nil {
			services = []string{}
		}
		out.Providers = append(out.Providers, ProviderActivity{
			ProviderID:      p.ID,
			ProviderName:    orDefault(p.FullName, unknownName),
			CompanyName:     orDefault(p.Username, unknownName),
			Location:        orDefault(p.Location, unknownLocation),
			IsVerified:      p.IsVerified,
			VerifiedAt:      p.VerifiedAt,
			TotalJobs:       t.Completed,
			PendingJobs:     t.Pending,
			AcceptedJobs:    t.Accepted,
			TotalEarnings:   round2(t.Earnings),
			AvgRating:       average(t.RatingSum, t.Rated),
			TotalRatings:    t.Rated,
			ServicesOffered: services,
		})
		if p.IsVerified {
			out.VerifiedProviders++
		}
	}
	sort.SliceStable(out.Providers, func(i, j int) bool {
		return out.Providers[i].TotalJobs > out.Providers[j].TotalJobs
	})
	out.TotalProviders = len(out.Providers)
	return out, nil
}

// partiesOf loads a single user of role when id is set, every user of role otherwise.
func (s *Service) partiesOf(ctx context.Context, id string, f UserFilter) ([]users.User, error) {
	if id == "" {
		return s.store.ListUsers(ctx, f)
	}
	u, err := s.store.GetUser(ctx, id, f.Role)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []users.User{}, nil
		}
		return nil, err
	}
	return []users.User{u}, nil
}

func (s *Service) CustomerHistory(ctx context.Context, q RangeQuery) (CustomerReport, error) {
	customerID := strings.TrimSpace(q.PartyID)
	if customerID != "" && !validID(customerID) {
		return CustomerReport{}, ErrInvalidID
	}
	from, to, err := s.window(q.StartDate, q.EndDate)
	if err != nil {
		return CustomerReport{}, err
	}

	customers, err := s.partiesOf(ctx, customerID, UserFilter{Role: auth.RoleCustomer})
	if err != nil {
		return CustomerReport{}, err
	}
	items, err := s.store.FindBookings(ctx, BookingFilter{CustomerID: customerID, CreatedFrom: from, CreatedTo: to}, "created_at")
	if err != nil {
		return CustomerReport{}, err
	}
	reviewCounts, err := s.store.ReviewCounts(ctx)
	if err != nil {
		return CustomerReport{}, err
	}

	byCustomer := map[string][]bookings.Booking{}
	for _, b := range items {
		byCustomer[b.CustomerID] = append(byCustomer[b.CustomerID], b)
	}

	out := CustomerReport{Customers: make([]CustomerHistory, 0, len(customers))}
	for _, c := range customers {
		mine := byCustomer[c.ID]
		h := CustomerHistory{
			CustomerID:     c.ID,
			CustomerName:   orDefault(c.FullName, unknownName),
			Email:          c.Email,
			TotalBookings:  len(mine),
			ReviewsGiven:   reviewCounts[c.ID],
			RecentBookings: make([]RecentBooking, 0, recentBookings),
		}
		if !c.CreatedAt.IsZero() {
			registered := c.CreatedAt
			h.RegistrationDate = &registered
		}

		providers := map[string]bool{}
		var spent float64
		for i, b := range mine {
			providers[b.ProviderID] = true
			switch b.Status {
			case bookings.StatusCompleted:
				h.CompletedBookings++
				spent += b.Amount()
			case bookings.StatusPending:
				h.PendingBookings++
			}
			if i < recentBookings {
				h.RecentBookings = append(h.RecentBookings, RecentBooking{
					BookingID:   b.ID,
					ServiceType: b.ServiceType,
					Status:      b.Status,
					CreatedAt:   b.CreatedAt,
					Price:       b.Amount(),
				})
			}
		}
		h.TotalSpent = round2(spent)
		h.UniqueProviders = len(providers)
		out.Customers = append(out.Customers, h)
	}
	sort.SliceStable(out.Customers, func(i, j int) bool {
		return out.Customers[i].TotalBookings > out.Customers[j].TotalBookings
	})
	out.TotalCustomers = len(out.Customers)
	return out, nil
}

func (s *Service) ProviderEarnings(ctx context.Context, q RangeQuery) (EarningsReport, error) {
	providerID := strings.TrimSpace(q.PartyID)
	if providerID != "" && !validID(providerID) {
		return EarningsReport{}, ErrInvalidID
	}
	from, to, err := s.window(q.StartDate, q.EndDate)
	if err != nil {
		return EarningsReport{}, err
	}

	verified := true
	providers, err := s.partiesOf(ctx, providerID, UserFilter{Role: auth.RoleProvider, Verified: &verified})
	if err != nil {
		return EarningsReport{}, err
	}
	items, err := s.store.FindBookings(ctx, BookingFilter{
		ProviderID:    providerID,
		Status:        bookings.StatusCompleted,
		CompletedFrom: from,
		CompletedTo:   to,
	}, "completed_at")
	if err != nil {
		return EarningsReport{}, err
	}
	names, err := s.store.UsersByID(ctx, partyIDs(items))
	if err != nil {
		return EarningsReport{}, err
	}

	byProvider := map[string][]bookings.Booking{}
	for _, b := range items {
		byProvider[b.ProviderID] = append(byProvider[b.ProviderID], b)
	}

	out := EarningsReport{Providers: make([]ProviderEarnings, 0, len(providers))}
	var platform float64
	for _, p := range providers {
		jobs := byProvider[p.ID]
		e := ProviderEarnings{
			ProviderID:        p.ID,
			ProviderName:      orDefault(p.FullName, unknownName),
			CompanyName:       orDefault(p.Username, unknownName),
			Location:          orDefault(p.Location, unknownLocation),
			TotalJobs:         len(jobs),
			EarningsBreakdown: make([]Earning, 0, recentEarnings),
		}
		var total float64
		for i, b := range jobs {
			total += b.Amount()
			if i >= recentEarnings {
				continue
			}
			customer := unknownName
			if c, ok := names[b.CustomerID]; ok {
				customer = orDefault(c.FullName, unknownName)
			}
			e.EarningsBreakdown = append(e.EarningsBreakdown, Earning{
				BookingID:    b.ID,
				ServiceType:  b.ServiceType,
				CustomerName: customer,
				Amount:       b.Amount(),
				CompletedAt:  b.CompletedAt,
			})
		}
		e.TotalEarnings = round2(total)
		e.AvgEarningsPerJob = average(total, int64(len(jobs)))
		platform += total
		out.Providers = append(out.Providers, e)
	}
	sort.SliceStable(out.Providers, func(i, j int) bool {
		return out.Providers[i].TotalEarnings > out.Providers[j].TotalEarnings
	})
	out.TotalProviders = len(out.Providers)
	out.TotalPlatformEarnings = round2(platform)
	return out, nil
}
