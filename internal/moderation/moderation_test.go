package moderation

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"ayudabesh-backend/internal/auth"
	"ayudabesh-backend/internal/bookings"
	"ayudabesh-backend/internal/middleware"
	"ayudabesh-backend/internal/notifications"
	"ayudabesh-backend/internal/users"
	"ayudabesh-backend/internal/validation"
)

type memoryStore struct {
	mu       sync.Mutex
	disputes map[string]Dispute
	reports  map[string]Report
}

func newMemoryStore() *memoryStore {
	return &memoryStore{disputes: map[string]Dispute{}, reports: map[string]Report{}}
}

func (m *memoryStore) InsertDispute(ctx context.Context, d Dispute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disputes[d.ID] = d
	return nil
}

func (m *memoryStore) GetDispute(ctx context.Context, id string) (Dispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.disputes[id]
	if !ok {
		return Dispute{}, mongo.ErrNoDocuments
	}
	return d, nil
}

func (m *memoryStore) ListDisputes(ctx context.Context, providerID string) ([]Dispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Dispute, 0)
	for _, d := range m.disputes {
		if providerID == "" || d.ProviderID == providerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryStore) AppendResponse(ctx context.Context, id string, r Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.disputes[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	d.Responses = append(d.Responses, r)
	m.disputes[id] = d
	return nil
}

func (m *memoryStore) ResolveDispute(ctx context.Context, id, by, notes string, at time.Time) (Dispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.disputes[id]
	if !ok || d.Status != DisputeOpen {
		return Dispute{}, mongo.ErrNoDocuments
	}
	d.Status = DisputeResolved
	d.ResolvedBy = by
	d.ResolutionNotes = notes
	d.ResolvedAt = &at
	m.disputes[id] = d
	return d, nil
}

func (m *memoryStore) InsertReport(ctx context.Context, r Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.ID] = r
	return nil
}

func (m *memoryStore) GetReport(ctx context.Context, id string) (Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return Report{}, mongo.ErrNoDocuments
	}
	return r, nil
}

func (m *memoryStore) ListReports(ctx context.Context, providerID string) ([]Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Report, 0)
	for _, r := range m.reports {
		if providerID == "" || r.ProviderID == providerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryStore) CheckReport(ctx context.Context, id, by, notes string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	r.Checked = true
	r.Status = ReportChecked
	r.CheckedBy = by
	r.CheckNotes = notes
	r.CheckedAt = &at
	m.reports[id] = r
	return nil
}

type bookingMap map[string]bookings.Booking

func (b bookingMap) GetByID(ctx context.Context, id string) (bookings.Booking, error) {
	v, ok := b[id]
	if !ok {
		return bookings.Booking{}, mongo.ErrNoDocuments
	}
	return v, nil
}

type directory map[string]users.User

func (d directory) GetByID(ctx context.Context, id string) (users.User, error) {
	u, ok := d[id]
	if !ok {
		return users.User{}, mongo.ErrNoDocuments
	}
	return u, nil
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

var (
	customer = auth.Principal{UserID: "c1", Role: auth.RoleCustomer}
	stranger = auth.Principal{UserID: "c2", Role: auth.RoleCustomer}
	provider = auth.Principal{UserID: "p1", Role: auth.RoleProvider}
	other    = auth.Principal{UserID: "p2", Role: auth.RoleProvider}
	admin    = auth.Principal{UserID: "a1", Role: auth.RoleAdmin}
)

func newService() (*Service, *memoryStore, *recordingNotifier) {
	store := newMemoryStore()
	notifier := &recordingNotifier{}
	lookup := bookingMap{
		"b1": {ID: "b1", CustomerID: "c1", ProviderID: "p1", ServiceType: "plumbing", Price: 900},
	}
	dir := directory{
		"c1": {ID: "c1", Username: "maria", FullName: "Maria Cruz", Email: "maria@example.com"},
		"p1": {ID: "p1", Username: "fixit", FullName: "Jun Reyes"},
	}
	svc := NewService(store, lookup, dir, notifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, store, notifier
}

func TestFileDisputeTakesProviderFromBooking(t *testing.T) {
	svc, _, notifier := newService()
	ctx := context.Background()

	d, err := svc.FileDispute(ctx, customer, FileDisputeRequest{BookingID: "b1", Description: "no show"})
	require.NoError(t, err)
	assert.Equal(t, "p1", d.ProviderID)
	assert.Equal(t, DisputeOpen, d.Status)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "p1", notifier.sent[0].UserID)

	_, err = svc.FileDispute(ctx, customer, FileDisputeRequest{BookingID: "missing", Description: "x"})
	assert.ErrorIs(t, err, ErrBookingNotFound)
	_, err = svc.FileDispute(ctx, stranger, FileDisputeRequest{BookingID: "b1", Description: "x"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.FileDispute(ctx, provider, FileDisputeRequest{BookingID: "b1", Description: "x"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestFileReportDefaults(t *testing.T) {
	svc, _, _ := newService()
	r, err := svc.FileReport(context.Background(), customer, FileReportRequest{BookingID: "b1", Details: "rude"})
	require.NoError(t, err)
	assert.Equal(t, ReportTypeService, r.Type)
	assert.Equal(t, ReportPending, r.Status)
	assert.False(t, r.Checked)
	assert.Equal(t, "rude", r.Description)
	assert.Equal(t, "rude", r.Details)

	_, err = svc.FileReport(context.Background(), customer, FileReportRequest{BookingID: "b1"})
	assert.ErrorIs(t, err, ErrDescriptionRequired)
}

func TestListingScope(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()
	_, err := svc.FileDispute(ctx, customer, FileDisputeRequest{BookingID: "b1", Description: "late"})
	require.NoError(t, err)
	store.disputes["x"] = Dispute{ID: "x", ProviderID: "p2", CustomerID: "c9", Status: DisputeOpen}

	all, err := svc.ListDisputes(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := svc.ListDisputes(ctx, provider)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Maria Cruz", mine[0].CustomerName)
	assert.Equal(t, "fixit", mine[0].ProviderCompanyName)
	assert.Equal(t, "Jun Reyes", mine[0].ProviderOwnerName)

	_, err = svc.ListDisputes(ctx, customer)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.ListReports(ctx, customer)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRespondAndResolve(t *testing.T) {
	svc, store, notifier := newService()
	ctx := context.Background()
	d, err := svc.FileDispute(ctx, customer, FileDisputeRequest{BookingID: "b1", Description: "leak"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Respond(ctx, provider, d.ID, "  "), ErrResponseRequired)
	assert.ErrorIs(t, svc.Respond(ctx, other, d.ID, "hi"), ErrForbidden)
	assert.ErrorIs(t, svc.Respond(ctx, customer, d.ID, "hi"), ErrForbidden)
	require.NoError(t, svc.Respond(ctx, provider, d.ID, "will fix"))
	require.NoError(t, svc.Respond(ctx, provider, d.ID, "fixed"))
	assert.Len(t, store.disputes[d.ID].Responses, 2)

	before := len(notifier.sent)
	require.NoError(t, svc.Resolve(ctx, admin, d.ID, "refunded"))
	assert.Equal(t, DisputeResolved, store.disputes[d.ID].Status)
	assert.Equal(t, "refunded", store.disputes[d.ID].ResolutionNotes)
	assert.Len(t, notifier.sent, before+2)

	assert.ErrorIs(t, svc.Resolve(ctx, admin, d.ID, "again"), ErrDisputeNotFound)
}

func TestGetVisibilityAndCheck(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()
	r, err := svc.FileReport(ctx, customer, FileReportRequest{BookingID: "b1", Description: "late"})
	require.NoError(t, err)

	view, err := svc.GetReport(ctx, customer, r.ID)
	require.NoError(t, err)
	require.NotNil(t, view.BookingDetails)
	assert.Equal(t, "plumbing", view.BookingDetails.ServiceType)

	_, err = svc.GetReport(ctx, other, r.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.GetReport(ctx, admin, "nope")
	assert.ErrorIs(t, err, ErrReportNotFound)

	require.NoError(t, svc.CheckReport(ctx, admin, r.ID, "ok"))
	checked := store.reports[r.ID]
	assert.True(t, checked.Checked)
	assert.Equal(t, ReportChecked, checked.Status)
	assert.Equal(t, "a1", checked.CheckedBy)
	assert.ErrorIs(t, svc.CheckReport(ctx, admin, "nope", ""), ErrReportNotFound)
}

func TestHandlerStatusCodes(t *testing.T) {
	svc, _, _ := newService()
	h := NewHandler(svc, validation.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	as := func(p auth.Principal) http.Handler {
		r := chi.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(middleware.WithPrincipal(req.Context(), p)))
			})
		})
		r.Post("/disputes", h.FileDispute)
		r.Get("/disputes", h.ListDisputes)
		return r
	}

	rr := httptest.NewRecorder()
	as(customer).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/disputes", strings.NewReader(`{"booking_id":"b1","description":"late"}`)))
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	as(stranger).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/disputes", strings.NewReader(`{"booking_id":"b1","description":"late"}`)))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	as(customer).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/disputes", strings.NewReader(`{"booking_id":"zz","description":"late"}`)))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	as(customer).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/disputes", strings.NewReader(`{"booking_id":"b1"}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var invalid struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &invalid))
	assert.Equal(t, "validation error", invalid.Error)
	assert.Equal(t, map[string]string{"Description": "required"}, invalid.Details)

	rr = httptest.NewRecorder()
	as(customer).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/disputes", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
