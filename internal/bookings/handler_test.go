package bookings

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ayudabesh-backend/internal/auth"
	"ayudabesh-backend/internal/middleware"
	"ayudabesh-backend/internal/validation"
)

func asPrincipal(p auth.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithPrincipal(r.Context(), p)))
		})
	}
}

func router(f fixture, p auth.Principal) http.Handler {
	h := NewHandler(f.svc, validation.New(), discardLogger())
	r := chi.NewRouter()
	r.Use(asPrincipal(p))
	r.Post("/book", h.Create)
	r.Get("/my-bookings", h.MyBookings)
	r.Get("/payment-transactions", h.Transactions)
	r.Get("/bookings/{id}", h.Get)
	r.Post("/bookings/{id}/accept", h.Accept)
	r.Post("/bookings/{id}/reject", h.Reject)
	r.Post("/bookings/{id}/update-price", h.UpdatePrice)
	r.Post("/bookings/{id}/complete", h.Complete)
	r.Post("/bookings/{id}/rate", h.Rate)
	r.Post("/bookings/{id}/cancel", h.Cancel)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	h.ServeHTTP(rr, req)
	return rr
}

func TestCreateHandler(t *testing.T) {
	f := newFixture()
	h := router(f, customer)

	rr := do(h, http.MethodPost, "/book", `{"provider_id":"p1","service_type":"cleaning","booking_time":"2024-06-05T10:00:00Z","price":500}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var out map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.NotEmpty(t, out["booking_id"])
	assert.Equal(t, "Booking created successfully", out["message"])

	rr = do(h, http.MethodPost, "/book", `{"provider_id":"p1","service_type":"cleaning"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "validation error")

	rr = do(h, http.MethodPost, "/book", `{"provider_id":"p3","service_type":"cleaning","booking_time":"2024-06-05T10:00:00Z","price":500}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTransitionHandlersStatusCodes(t *testing.T) {
	f := newFixture(booking("b1", StatusPending), booking("b2", StatusCompleted))

	rr := do(router(f, otherProvider), http.MethodPost, "/bookings/b1/accept", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(router(f, provider), http.MethodPost, "/bookings/b1/accept", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(router(f, provider), http.MethodPost, "/bookings/b1/accept", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(router(f, customer), http.MethodPost, "/bookings/b1/complete", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(router(f, provider), http.MethodPost, "/bookings/b1/update-price", `{"final_price":-5}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(router(f, provider), http.MethodPost, "/bookings/b1/update-price", `{"final_price":800}`)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCancelHandlerStatusCodes(t *testing.T) {
	f := newFixture(booking("b1", StatusPending), booking("b2", StatusCompleted))

	rr := do(router(f, customer), http.MethodPost, "/bookings/b2/cancel", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(router(f, otherCustomer), http.MethodPost, "/bookings/b1/cancel", `{"reason":"nope"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(router(f, customer), http.MethodPost, "/bookings/b1/cancel", `{"reason":"changed plans"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "changed plans", f.repo.get("b1").CancellationReason)
}

func TestRateHandler(t *testing.T) {
	f := newFixture(booking("b1", StatusCompleted))

	rr := do(router(f, customer), http.MethodPost, "/bookings/b1/rate", `{"rating":6}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(router(f, customer), http.MethodPost, "/bookings/b1/rate", `{"rating":5,"review":"great"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out RateResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, 5.0, out.AverageRating)
	assert.True(t, out.ReviewAdded)
}

func TestMyBookingsHandler(t *testing.T) {
	f := newFixture(booking("b1", StatusPending))

	rr := do(router(f, customer), http.MethodGet, "/my-bookings", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var views []View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "cleanco", views[0].ProviderCompanyName)

	rr = do(router(f, admin), http.MethodGet, "/my-bookings", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCreateHandlerValidationDetails(t *testing.T) {
	h := router(newFixture(), customer)

	rr := do(h, http.MethodPost, "/book", `{"provider_id":"p1","service_type":"cleaning","booking_time":"next week","price":-1}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var out struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "validation error", out.Error)
	assert.Equal(t, map[string]string{"BookingTime": "iso8601", "Price": "gte"}, out.Details)

	rr = do(h, http.MethodPost, "/bookings/b1/update-price", `{"final_price":-5}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "validation error")
}

func TestCreateHandlerAcceptsLocalDateTimes(t *testing.T) {
	manila, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-06-05T10:00:00+08:00", time.Date(2024, 6, 5, 2, 0, 0, 0, time.UTC)},
		{"2024-06-05T10:00:00", time.Date(2024, 6, 5, 2, 0, 0, 0, time.UTC)},
		{"2024-06-05T10:00", time.Date(2024, 6, 5, 2, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f := newFixture()
			f.svc.SetLocation(manila)
			rr := do(router(f, customer), http.MethodPost, "/book",
				`{"provider_id":"p1","service_type":"cleaning","booking_time":"`+tt.in+`","price":500}`)
			require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

			var out map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
			assert.True(t, f.repo.get(out["booking_id"]).BookingTime.Equal(tt.want))
		})
	}
}
