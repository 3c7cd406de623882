package moderation

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
	"ayudabesh-backend/internal/bookings"
	"ayudabesh-backend/internal/notifications"
	"ayudabesh-backend/internal/users"
)

var (
	ErrDisputeNotFound     = errors.New("dispute not found")
	ErrReportNotFound      = errors.New("report not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrForbidden           = errors.New("access denied")
	ErrResponseRequired    = errors.New("response text is required")
	ErrDescriptionRequired = errors.New("description is required")
)

type BookingLookup interface {
	GetByID(ctx context.Context, id string) (bookings.Booking, error)
}

type Directory interface {
	GetByID(ctx context.Context, id string) (users.User, error)
}

type Service struct {
	store     Store
	bookings  BookingLookup
	directory Directory
	notifier  notifications.Notifier
	log       *slog.Logger
	now       func() time.Time
}

func NewService(store Store, lookup BookingLookup, directory Directory, notifier notifications.Notifier, log *slog.Logger) *Service {
	return &Service{
		store:     store,
		bookings:  lookup,
		directory: directory,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
	}
}

// ownBooking loads a booking the calling customer may file against.
func (s *Service) ownBooking(ctx context.Context, p auth.Principal, bookingID string) (bookings.Booking, error) {
	if !p.Is(auth.RoleCustomer) {
		return bookings.Booking{}, ErrForbidden
	}
	b, err := s.bookings.GetByID(ctx, strings.TrimSpace(bookingID))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return bookings.Booking{}, ErrBookingNotFound
		}
		return bookings.Booking{}, err
	}
	if b.CustomerID != p.UserID {
		return bookings.Booking{}, ErrForbidden
	}
	return b, nil
}

func (s *Service) FileDispute(ctx context.Context, p auth.Principal, req FileDisputeRequest) (Dispute, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return Dispute{}, ErrDescriptionRequired
	}
	b, err := s.ownBooking(ctx, p, req.BookingID)
	if err != nil {
		return Dispute{}, err
	}

	d := Dispute{
		ID:          primitive.NewObjectID().Hex(),
		BookingID:   b.ID,
		CustomerID:  b.CustomerID,
		ProviderID:  b.ProviderID,
		Description: description,
		Status:      DisputeOpen,
		Responses:   []Response{},
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.InsertDispute(ctx, d); err != nil {
		return Dispute{}, err
	}

	notifications.Send(ctx, s.notifier, s.log, notifications.Message{
		UserID:    b.ProviderID,
		Title:     "New Dispute Filed",
		Message:   fmt.Sprintf("A customer opened a dispute about your %s booking.", b.ServiceType),
		Type:      notifications.TypeWarning,
		BookingID: b.ID,
	})
	return d, nil
}

func (s *Service) FileReport(ctx context.Context, p auth.Principal, req FileReportRequest) (Report, error) {
	description := strings.TrimSpace(req.Description)
	details := strings.TrimSpace(req.Details)
	if description == "" {
		description = details
	}
	if details == "" {
		details = description
	}
	if description == "" {
		return Report{}, ErrDescriptionRequired
	}
	b, err := s.ownBooking(ctx, p, req.BookingID)
	if err != nil {
		return Report{}, err
	}

	kind := strings.TrimSpace(req.Type)
	if kind == "" {
		kind = ReportTypeService
	}
	r := Report{
		ID:          primitive.NewObjectID().Hex(),
		BookingID:   b.ID,
		CustomerID:  b.CustomerID,
		ProviderID:  b.ProviderID,
		Description: description,
		Details:     details,
		Type:        kind,
		Status:      ReportPending,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.InsertReport(ctx, r); err != nil {
		return Report{}, err
	}

	notifications.Send(ctx, s.notifier, s.log, notifications.Message{
		UserID:    b.ProviderID,
		Title:     "New Report Filed",
		Message:   fmt.Sprintf("A customer filed a report about your %s booking.", b.ServiceType),
		Type:      notifications.TypeWarning,
		BookingID: b.ID,
	})
	return r, nil
}

// listScope maps the caller to a provider filter. Customers cannot list.
func listScope(p auth.Principal) (string, error) {
	switch p.Role {
	case auth.RoleAdmin:
		return "", nil
	case auth.RoleProvider:
		return p.UserID, nil
	default:
		return "", ErrForbidden
	}
}

func canRead(p auth.Principal, customerID, providerID string) bool {
	return p.Is(auth.RoleAdmin) || p.UserID == customerID || p.UserID == providerID
}

// parties memoizes directory reads across one listing.
type parties struct {
	dir  Directory
	seen map[string]*users.User
}

func newParties(dir Directory) *parties {
	return &parties{dir: dir, seen: map[string]*users.User{}}
}

func (ps *parties) user(ctx context.Context, id string) *users.User {
	if u, ok := ps.seen[id]; ok {
		return u
	}
	var found *users.User
	if u, err := ps.dir.GetByID(ctx, id); err == nil {
		found = &u
	}
	ps.seen[id] = found
	return found
}

func (ps *parties) of(ctx context.Context, customerID, providerID string) Parties {
	out := Parties{
		CustomerName:        "Unknown",
		ProviderName:        "Unknown",
		ProviderCompanyName: "Unknown",
		ProviderOwnerName:   "Unknown",
	}
	if c := ps.user(ctx, customerID); c != nil {
		out.CustomerName = c.DisplayName()
		out.CustomerEmail = c.Email
	}
	if p := ps.user(ctx, providerID); p != nil {
		out.ProviderName = p.Username
		out.ProviderCompanyName = p.Username
		out.ProviderOwnerName = p.DisplayName()
	}
	return out
}

func (s *Service) bookingDetails(ctx context.Context, id string) *BookingDetails {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil
	}
	return &BookingDetails{
		ServiceType:    b.ServiceType,
		BookingTime:    b.BookingTime,
		ServiceAddress: b.ServiceAddress,
		Price:          b.Price,
		FinalPrice:     b.FinalPrice,
	}
}

func (s *Service) ListDisputes(ctx context.Context, p auth.Principal) ([]DisputeView, error) {
	providerID, err := listScope(p)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListDisputes(ctx, providerID)
	if err != nil {
		return nil, err
	}
	ps := newParties(s.directory)
	out := make([]DisputeView, 0, len(items))
	for _, d := range items {
		out = append(out, DisputeView{Dispute: d, Parties: ps.of(ctx, d.CustomerID, d.ProviderID)})
	}
	return out, nil
}

func (s *Service) ListReports(ctx context.Context, p auth.Principal) ([]ReportView, error) {
	providerID, err := listScope(p)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListReports(ctx, providerID)
	if err != nil {
		return nil, err
	}
	ps := newParties(s.directory)
	out := make([]ReportView, 0, len(items))
	for _, r := range items {
		out = append(out, ReportView{Report: r, Parties: ps.of(ctx, r.CustomerID, r.ProviderID)})
	}
	return out, nil
}

func (s *Service) GetDispute(ctx context.Context, p auth.Principal, id string) (DisputeView, error) {
	d, err := s.store.GetDispute(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return DisputeView{}, ErrDisputeNotFound
		}
		return DisputeView{}, err
	}
	if !canRead(p, d.CustomerID, d.ProviderID) {
		return DisputeView{}, ErrForbidden
	}
	return DisputeView{
		Dispute:        d,
		Parties:        newParties(s.directory).of(ctx, d.CustomerID, d.ProviderID),
		BookingDetails: s.bookingDetails(ctx, d.BookingID),
	}, nil
}

func (s *Service) GetReport(ctx context.Context, p auth.Principal, id string) (ReportView, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ReportView{}, ErrReportNotFound
		}
		return ReportView{}, err
	}
	if !canRead(p, r.CustomerID, r.ProviderID) {
		return ReportView{}, ErrForbidden
	}
	return ReportView{
		Report:         r,
		Parties:        newParties(s.directory).of(ctx, r.CustomerID, r.ProviderID),
		BookingDetails: s.bookingDetails(ctx, r.BookingID),
	}, nil
}

// Respond appends the dispute provider's answer to the response log.
func (s *Service) Respond(ctx context.Context, p auth.Principal, id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrResponseRequired
	}
	d, err := s.store.GetDispute(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrDisputeNotFound
		}
		return err
	}
	if !p.Is(auth.RoleProvider) || d.ProviderID != p.UserID {
		return ErrForbidden
	}

	err = s.store.AppendResponse(ctx, id, Response{Text: text, RespondedBy: p.UserID, RespondedAt: s.now().UTC()})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrDisputeNotFound
		}
		return err
	}

	notifications.Send(ctx, s.notifier, s.log, notifications.Message{
		UserID:    d.CustomerID,
		Title:     "Dispute Response",
		Message:   "The provider responded to your dispute.",
		Type:      notifications.TypeInfo,
		BookingID: d.BookingID,
	})
	return nil
}

// Resolve closes an open dispute. Resolved or missing disputes look the same.
func (s *Service) Resolve(ctx context.Context, p auth.Principal, id, notes string) error {
	d, err := s.store.ResolveDispute(ctx, id, p.UserID, strings.TrimSpace(notes), s.now().UTC())
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			s.log.Warn("dispute resolve: refused", slog.String("dispute_id", id))
			return ErrDisputeNotFound
		}
		return err
	}

	for _, userID := range []string{d.CustomerID, d.ProviderID} {
		notifications.Send(ctx, s.notifier, s.log, notifications.Message{
			UserID:    userID,
			Title:     "Dispute Resolved",
			Message:   "A dispute on your booking has been resolved by an administrator.",
			Type:      notifications.TypeSuccess,
			BookingID: d.BookingID,
		})
	}
	return nil
}

func (s *Service) CheckReport(ctx context.Context, p auth.Principal, id, notes string) error {
	err := s.store.CheckReport(ctx, id, p.UserID, strings.TrimSpace(notes), s.now().UTC())
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrReportNotFound
	}
	return err
}
