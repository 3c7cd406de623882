package reviews

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ayudabesh-backend/internal/httpx"
	"ayudabesh-backend/internal/middleware"
	"ayudabesh-backend/internal/transport"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) ProviderReviews(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	providerID := strings.TrimSpace(chi.URLParam(r, "id"))

	page, limit, offset, err := httpx.ParsePage(r.URL.Query(), 10, 50)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out, err := h.svc.ProviderReviews(ctx, providerID, page, limit, offset)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			transport.WriteError(w, http.StatusNotFound, "provider not found", nil)
			return
		}
		log.Error("provider reviews: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	transport.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) BookingReview(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())
	bookingID := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rv, err := h.svc.BookingReview(ctx, p, bookingID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			transport.WriteError(w, http.StatusNotFound, "review not found", nil)
			return
		}
		log.Error("booking review: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	transport.WriteJSON(w, http.StatusOK, rv)
}

func (h *Handler) MyReviews(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := h.svc.MyReviews(ctx, p)
	if err != nil {
		log.Error("my reviews: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	log.Info("my reviews: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, items)
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
