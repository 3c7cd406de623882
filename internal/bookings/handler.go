package bookings

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
	"ayudabesh-backend/internal/validation"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc *Service
	val *validation.Validator
	log *slog.Logger
}

func NewHandler(svc *Service, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{svc: svc, val: val, log: log}
}

// writeError maps service errors onto the API taxonomy.
func (h *Handler) writeError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		log.Warn(op+": not found", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusNotFound, ErrNotFound.Error(), nil)
	case errors.Is(err, ErrForbidden):
		log.Warn(op + ": forbidden")
		transport.WriteError(w, http.StatusForbidden, ErrForbidden.Error(), nil)
	case errors.Is(err, ErrNotCancellable),
		errors.Is(err, ErrNotCompleted),
		errors.Is(err, ErrInvalidTime),
		errors.Is(err, ErrInvalidPrice),
		errors.Is(err, ErrProviderUnavailable),
		errors.Is(err, ErrOutsideAvailability):
		log.Warn(op+": rejected", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		log.Error(op+": database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())

	var req CreateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("booking create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("booking create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	b, err := h.svc.Create(ctx, p, req)
	if err != nil {
		h.writeError(w, log, "booking create", err)
		return
	}

	log.Info("booking create: ok", slog.String("booking_id", b.ID), slog.String("provider_id", b.ProviderID))
	transport.WriteJSON(w, http.StatusCreated, map[string]string{
		"booking_id": b.ID,
		"message":    "Booking created successfully",
	})
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.svc.Accept(ctx, p, id); err != nil {
		h.writeError(w, log, "booking accept", err)
		return
	}
	log.Info("booking accept: ok", slog.String("booking_id", id))
	transport.WriteMessage(w, http.StatusOK, "Booking accepted successfully")
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req ReasonRequest
	if err := httpx.DecodeOptionalJSON(r.Body, &req); err != nil {
		log.Warn("booking reject: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.svc.Reject(ctx, p, id, req.Reason); err != nil {
		h.writeError(w, log, "booking reject", err)
		return
	}
	log.Info("booking reject: ok", slog.String("booking_id", id))
	transport.WriteMessage(w, http.StatusOK, "Booking rejected successfully")
}

func (h *Handler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req PriceRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("booking update price: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("booking update price: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, err := h.svc.UpdatePrice(ctx, p, id, *req.FinalPrice)
	if err != nil {
		h.writeError(w, log, "booking update price", err)
		return
	}
	log.Info("booking update price: ok", slog.String("booking_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Price updated successfully",
		"final_price": b.FinalPrice,
	})
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.svc.Complete(ctx, p, id); err != nil {
		h.writeError(w, log, "booking complete", err)
		return
	}
	log.Info("booking complete: ok", slog.String("booking_id", id))
	transport.WriteMessage(w, http.StatusOK, "Booking marked as completed")
}

func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req RateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("booking rate: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("booking rate: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	res, err := h.svc.Rate(ctx, p, id, req)
	if err != nil {
		h.writeError(w, log, "booking rate", err)
		return
	}
	log.Info("booking rate: ok", slog.String("booking_id", id), slog.Int("rating", req.Rating))
	transport.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req ReasonRequest
	if err := httpx.DecodeOptionalJSON(r.Body, &req); err != nil {
		log.Warn("booking cancel: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.svc.Cancel(ctx, p, id, req.Reason); err != nil {
		h.writeError(w, log, "booking cancel", err)
		return
	}
	log.Info("booking cancel: ok", slog.String("booking_id", id))
	transport.WriteMessage(w, http.StatusOK, "Booking cancelled successfully")
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, err := h.svc.Get(ctx, p, id)
	if err != nil {
		h.writeError(w, log, "booking get", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) MyBookings(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, err := h.svc.MyBookings(ctx, p)
	if err != nil {
		h.writeError(w, log, "my bookings", err)
		return
	}
	log.Info("my bookings: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, err := h.svc.Transactions(ctx, p)
	if err != nil {
		h.writeError(w, log, "payment transactions", err)
		return
	}
	log.Info("payment transactions: ok", slog.Int("count", len(items)))
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
