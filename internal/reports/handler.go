package reports

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ayudabesh-backend/internal/middleware"
	"ayudabesh-backend/internal/transport"
)

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) writeError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidID):
		log.Warn(op+": bad request", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		log.Error(op+": database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "failed to generate report", nil)
	}
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	stats, err := h.svc.Dashboard(ctx)
	if err != nil {
		h.writeError(w, log, "dashboard stats", err)
		return
	}
	log.Info("dashboard stats: ok")
	transport.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) DailyBookings(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	out, err := h.svc.DailyBookings(ctx, r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, log, "daily bookings", err)
		return
	}
	log.Info("daily bookings: ok", slog.String("date", out.Date), slog.Int("count", out.TotalBookings))
	transport.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) ProviderActivity(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	out, err := h.svc.ProviderActivity(ctx)
	if err != nil {
		h.writeError(w, log, "provider activity", err)
		return
	}
	log.Info("provider activity: ok", slog.Int("providers", out.TotalProviders))
	transport.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) CustomerHistory(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	q := r.URL.Query()
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	out, err := h.svc.CustomerHistory(ctx, RangeQuery{
		PartyID:   q.Get("customer_id"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	})
	if err != nil {
		h.writeError(w, log, "customer history", err)
		return
	}
	log.Info("customer history: ok", slog.Int("customers", out.TotalCustomers))
	transport.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) ProviderEarnings(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	q := r.URL.Query()
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	out, err := h.svc.ProviderEarnings(ctx, RangeQuery{
		PartyID:   q.Get("provider_id"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	})
	if err != nil {
		h.writeError(w, log, "provider earnings", err)
		return
	}
	log.Info("provider earnings: ok", slog.Int("providers", out.TotalProviders))
	transport.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
