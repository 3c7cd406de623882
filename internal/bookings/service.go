package bookings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"ayudabesh-backend/internal/auth"
	"ayudabesh-backend/internal/notifications"
	"ayudabesh-backend/internal/schedule"
	"ayudabesh-backend/internal/users"
)

// Directory resolves accounts referenced by bookings.
type Directory interface {
	GetByID(ctx context.Context, id string) (users.User, error)
}

// AvailabilityChecker answers whether a provider works at an instant. The
// string result carries the reason when it does not.
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, providerID string, at time.Time) (bool, string, error)
}

// RatingEvent is emitted after a booking rating is stored.
type RatingEvent struct {
	BookingID    string
	ProviderID   string
	CustomerID   string
	CustomerName string
	ServiceType  string
	Rating       int
	Review       string
	At           time.Time
}

// Ratings projects a rating event into reviews and returns the provider's
// recomputed average.
type Ratings interface {
	Record(ctx context.Context, ev RatingEvent) (float64, error)
}

type Service struct {
	repo         Repository
	directory    Directory
	availability AvailabilityChecker
	ratings      Ratings
	notifier     notifications.Notifier
	log          *slog.Logger
	loc          *time.Location
	now          func() time.Time
}

func NewService(repo Repository, directory Directory, ratings Ratings, notifier notifications.Notifier, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		ratings:   ratings,
		notifier:  notifier,
		log:       log,
		loc:       time.UTC,
		now:       time.Now,
	}
}

// SetLocation sets the zone for booking times sent without an offset.
func (s *Service) SetLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

// EnforceAvailability makes Create refuse times outside the provider's hours.
func (s *Service) EnforceAvailability(checker AvailabilityChecker) {
	s.availability = checker
}

// refused logs why a guarded update matched nothing. Callers only ever see
// ErrNotFound.
func (s *Service) refused(ctx context.Context, op, id string, owns func(Booking) bool, want []string) error {
	cause := "missing"
	b, err := s.repo.GetByID(ctx, id)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
	case err != nil:
		cause = "lookup failed"
	case !owns(b):
		cause = "not owner"
	case !contains(want, b.Status) && IsTerminal(b.Status):
		cause = "terminal state " + b.Status
	case !contains(want, b.Status):
		cause = "wrong state " + b.Status
	default:
		cause = "concurrent update"
	}
	s.log.Warn("booking "+op+": refused",
		slog.String("booking_id", id),
		slog.String("cause", cause),
	)
	return ErrNotFound
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func (s *Service) Create(ctx context.Context, p auth.Principal, req CreateRequest) (Booking, error) {
	at, err := schedule.ParseTimestamp(req.BookingTime, s.loc)
	if err != nil {
		return Booking{}, ErrInvalidTime
	}
	now := s.now().UTC()

	provider, err := s.directory.GetByID(ctx, strings.TrimSpace(req.ProviderID))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Booking{}, ErrProviderUnavailable
		}
		return Booking{}, err
	}
	if !provider.Bookable(now) {
		return Booking{}, ErrProviderUnavailable
	}

	if s.availability != nil {
		ok, reason, err := s.availability.IsAvailable(ctx, provider.ID, at)
		if err != nil {
			return Booking{}, err
		}
		if !ok {
			if reason != "" {
				return Booking{}, fmt.Errorf("%w: %s", ErrOutsideAvailability, reason)
			}
			return Booking{}, ErrOutsideAvailability
		}
	}

	b := Booking{
		ID:                  primitive.NewObjectID().Hex(),
		CustomerID:          p.UserID,
		CustomerName:        strings.TrimSpace(req.CustomerName),
		CustomerEmail:       strings.TrimSpace(req.CustomerEmail),
		CustomerPhone:       strings.TrimSpace(req.CustomerPhone),
		ProviderID:          provider.ID,
		ServiceType:         strings.TrimSpace(req.ServiceType),
		BookingTime:         at.UTC(),
		ServiceAddress:      strings.TrimSpace(req.ServiceAddress),
		SpecialInstructions: strings.TrimSpace(req.SpecialInstructions),
		Status:              StatusPending,
		Price:               *req.Price,
		PaymentMethod:       PaymentFaceToFace,
		CreatedAt:           now,
	}
	if b.CustomerName == "" || b.CustomerEmail == "" || b.CustomerPhone == "" {
		if customer, err := s.directory.GetByID(ctx, p.UserID); err == nil {
			if b.CustomerName == "" {
				b.CustomerName = customer.DisplayName()
			}
			if b.CustomerEmail == "" {
				b.CustomerEmail = customer.Email
			}
			if b.CustomerPhone == "" {
				b.CustomerPhone = customer.Phone
			}
		}
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return Booking{}, err
	}

	notifications.Send(ctx, s.notifier, s.log, notifications.Message{
		UserID:    b.ProviderID,
		Title:     "New Booking Request",
		Message:   fmt.Sprintf("You have a new booking request for %s from %s.", b.ServiceType, nameOr(b.CustomerName, "a customer")),
		Type:      notifications.TypeInfo,
		BookingID: b.ID,
	})
	return b, nil
}

func nameOr(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}

func ownedByProvider(p auth.Principal) func(Booking) bool {
	return func(b Booking) bool { return b.ProviderID == p.UserID }
}

func ownedByCustomer(p auth.Principal) func(Booking) bool {
	return func(b Booking) bool { return b.CustomerID == p.UserID }
}

// providerTransition runs a provider-side guarded transition.
func (s *Service) providerTransition(ctx context.Context, op string, p auth.Principal, id, to, reason string) (Booking, error) {
	from := sourcesOf(to)
	b, err := s.repo.Transition(ctx, Transition{
		ID:         id,
		ProviderID: p.UserID,
		From:       from,
		To:         to,
		At:         s.now().UTC(),
		Reason:     reason,
		By:         p.UserID,
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Booking{}, s.refused(ctx, op, id, ownedByProvider(p), from)
		}
		return Booking{}, err
	}
	return b, nil
}

func (s *Service) Accept(ctx context.Context, p auth.Principal, id string) (Booking, error) {
	b, err := s.providerTransition(ctx, "accept", p, id, StatusAccepted, "")
	if err != nil {
		return Booking{}, err
	}
	notifications.Send(ctx, s.notifier, s.log, notifications.Message{
		UserID:    b.CustomerID,
		Title:     "Booking Accepted",
		Message:   fmt.Sprintf("Your booking for %s has been accepted by the provider.", b.ServiceType),
		Type:      notifications.TypeSuccess,
		BookingID: b.ID,
	})
	return b, nil
}

func (s *Service) Reject(ctx context.Context, p auth.Principal, id, reason string) (Booking, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "No reason provided"
	}
	b, err := s.providerTransition(ctx, "reject", p, id, StatusRejected, reason)
	if err != nil {
		return Booking{}, err
	}
	notifications.Send(ctx, s.notifier, s.log, notifications.Message{
		UserID:    b.CustomerID,
		Title:     "Booking Rejected",
		Message:   fmt.Sprintf("Your booking for %s has been rejected. Reason: %s", b.ServiceType, reason),
		Type:      notifications.TypeWarning,
		BookingID: b.ID,
	})
	return b, nil
}

func (s *Service) Complete(ctx context.Context, p auth.Principal, id string) (Booking, error) {
	if !p.Is(auth.RoleProvider) {
		return Booking{}, ErrForbidden
	}
	b, err := s.providerTransition(ctx, "complete", p, id, StatusCompleted, "")
	if err != nil {
		return Booking{}, err
	}
	notifications.Send(ctx, s.notifier, s.log, notifications.Message{
		UserID:    b.CustomerID,
		Title:     "Booking Completed",
		Message:   fmt.Sprintf("Your booking for %s has been completed. Please rate your provider!", b.ServiceType),
		Type:      notifications.TypeSuccess,
		BookingID: b.ID,
	})
	return b, nil
}

// UpdatePrice settles the final price. The customer is not notified.
func (s *Service) UpdatePrice(ctx context.Context, p auth.Principal, id string, price float64) (Booking, error) {
	if price < 0 {
		return Booking{}, ErrInvalidPrice
	}
	b, err := s.repo.SetFinalPrice(ctx, id, p.UserID, price, s.now().UTC())
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Booking{}, s.refused(ctx, "update price", id, ownedByProvider(p), activeStatuses)
		}
		return Booking{}, err
	}
	return b, nil
}

// Rate stores the customer's rating. Repeated calls overwrite the previous one.
func (s *Service) Rate(ctx context.Context, p auth.Principal, id string, req RateRequest) (RateResult, error) {
	if !p.Is(auth.RoleCustomer) {
		return RateResult{}, ErrForbidden
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return RateResult{}, ErrNotFound
		}
		return RateResult{}, err
	}
	if current.CustomerID != p.UserID {
		return RateResult{}, ErrForbidden
	}
	if current.Status != StatusCompleted {
		return RateResult{}, ErrNotCompleted
	}

	review := strings.TrimSpace(req.Review)
	at := s.now().UTC()
	b, err := s.repo.SetRating(ctx, id, p.UserID, req.Rating, review, at)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return RateResult{}, s.refused(ctx, "rate", id, ownedByCustomer(p), []string{StatusCompleted})
		}
		return RateResult{}, err
	}

	customerName := b.CustomerName
	if customer, err := s.directory.GetByID(ctx, p.UserID); err == nil {
		customerName = customer.DisplayName()
	}

	avg, err := s.ratings.Record(ctx, RatingEvent{
		BookingID:    b.ID,
		ProviderID:   b.ProviderID,
		CustomerID:   b.CustomerID,
		CustomerName: customerName,
		ServiceType:  b.ServiceType,
		Rating:       req.Rating,
		Review:       review,
		At:           at,
	})
	if err != nil {
		return RateResult{}, err
	}

	withReview := ""
	if review != "" {
		withReview = " with a review"
	}
	notifications.Send(ctx, s.notifier, s.log, notifications.Message{
		UserID:    b.ProviderID,
		Title:     "New Review Received",
		Message:   fmt.Sprintf("You received a %d-star rating%s from %s.", req.Rating, withReview, nameOr(customerName, "a customer")),
		Type:      notifications.TypeInfo,
		BookingID: b.ID,
	})

	return RateResult{
		Message:       "Rating submitted successfully",
		AverageRating: avg,
		ReviewAdded:   review != "",
	}, nil
}

// Cancel lets either party withdraw a booking that is not yet terminal.
func (s *Service) Cancel(ctx context.Context, p auth.Principal, id, reason string) (Booking, error) {
	if !p.Is(auth.RoleCustomer) && !p.Is(auth.RoleProvider) {
		return Booking{}, ErrForbidden
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, err
	}

	t := Transition{ID: id, From: sourcesOf(StatusCancelled), To: StatusCancelled}
	owns := ownedByCustomer(p)
	if p.Is(auth.RoleProvider) {
		owns = ownedByProvider(p)
		t.ProviderID = p.UserID
	} else {
		t.CustomerID = p.UserID
	}
	if !owns(current) {
		return Booking{}, ErrForbidden
	}
	if !CanTransition(current.Status, StatusCancelled) {
		return Booking{}, ErrNotCancellable
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Cancelled by user"
	}
	t.Reason = reason
	t.By = p.UserID
	t.At = s.now().UTC()

	b, err := s.repo.Transition(ctx, t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Booking{}, s.refused(ctx, "cancel", id, owns, t.From)
		}
		return Booking{}, err
	}

	other := b.ProviderID
	if p.Is(auth.RoleProvider) {
		other = b.CustomerID
	}
	notifications.Send(ctx, s.notifier, s.log, notifications.Message{
		UserID:    other,
		Title:     "Booking Cancelled",
		Message:   fmt.Sprintf("The booking for %s has been cancelled. Reason: %s", b.ServiceType, reason),
		Type:      notifications.TypeWarning,
		BookingID: b.ID,
	})
	return b, nil
}

// Get returns a booking to its customer, its provider or an admin.
func (s *Service) Get(ctx context.Context, p auth.Principal, id string) (Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, err
	}
	if p.Is(auth.RoleAdmin) || b.CustomerID == p.UserID || b.ProviderID == p.UserID {
		return b, nil
	}
	s.log.Warn("booking get: refused", slog.String("booking_id", id), slog.String("cause", "not owner"))
	return Booking{}, ErrNotFound
}

func (s *Service) listFor(ctx context.Context, p auth.Principal) ([]Booking, error) {
	switch p.Role {
	case auth.RoleCustomer:
		return s.repo.ListForCustomer(ctx, p.UserID)
	case auth.RoleProvider:
		return s.repo.ListForProvider(ctx, p.UserID)
	default:
		return nil, ErrForbidden
	}
}

// lookup memoizes directory reads for one listing.
type lookup struct {
	dir  Directory
	seen map[string]*users.User
}

func (l *lookup) get(ctx context.Context, id string) *users.User {
	if u, ok := l.seen[id]; ok {
		return u
	}
	var found *users.User
	if u, err := l.dir.GetByID(ctx, id); err == nil {
		found = &u
	}
	l.seen[id] = found
	return found
}

// MyBookings lists the caller's bookings newest first, enriched with the
// counterpart's names.
func (s *Service) MyBookings(ctx context.Context, p auth.Principal) ([]View, error) {
	items, err := s.listFor(ctx, p)
	if err != nil {
		return nil, err
	}
	dir := &lookup{dir: s.directory, seen: map[string]*users.User{}}
	out := make([]View, 0, len(items))
	for _, b := range items {
		v := View{Booking: b}
		if p.Is(auth.RoleCustomer) {
			if provider := dir.get(ctx, b.ProviderID); provider != nil {
				v.ProviderName = provider.DisplayName()
				v.ProviderCompanyName = provider.Username
				v.ProviderOwnerName = provider.FullName
			}
		} else if v.CustomerName == "" || v.CustomerEmail == "" {
			if customer := dir.get(ctx, b.CustomerID); customer != nil {
				if v.CustomerName == "" {
					v.CustomerName = customer.DisplayName()
				}
				if v.CustomerEmail == "" {
					v.CustomerEmail = customer.Email
				}
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// Transactions lists payment records derived from settled bookings.
func (s *Service) Transactions(ctx context.Context, p auth.Principal) ([]Transaction, error) {
	items, err := s.listFor(ctx, p)
	if err != nil {
		return nil, err
	}
	kind := TransactionPaymentOut
	if p.Is(auth.RoleProvider) {
		kind = TransactionPaymentIn
	}
	dir := &lookup{dir: s.directory, seen: map[string]*users.User{}}

	out := make([]Transaction, 0, len(items))
	for _, b := range items {
		if b.Status != StatusCompleted && b.FinalPrice == nil {
			continue
		}
		counterpart := ""
		if kind == TransactionPaymentOut {
			if provider := dir.get(ctx, b.ProviderID); provider != nil {
				counterpart = provider.DisplayName()
			}
		} else {
			counterpart = b.CustomerName
			if counterpart == "" {
				if customer := dir.get(ctx, b.CustomerID); customer != nil {
					counterpart = customer.DisplayName()
				}
			}
		}
		date := b.CreatedAt
		if b.CompletedAt != nil {
			date = *b.CompletedAt
		}
		method := b.PaymentMethod
		if method == "" {
			method = PaymentFaceToFace
		}
		out = append(out, Transaction{
			TransactionID:   "txn_" + b.ID,
			BookingID:       b.ID,
			Type:            kind,
			Amount:          b.Amount(),
			Status:          b.Status,
			PaymentMethod:   method,
			ServiceType:     b.ServiceType,
			CounterpartName: counterpart,
			Date:            date,
		})
	}
	return out, nil
}

// ProviderBookingsBetween feeds the availability calendar.
func (s *Service) ProviderBookingsBetween(ctx context.Context, providerID string, from, to time.Time) ([]Booking, error) {
	return s.repo.ListForProviderBetween(ctx, providerID, from, to)
}
