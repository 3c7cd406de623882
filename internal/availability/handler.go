package availability

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ayudabesh-backend/internal/httpx"
	"ayudabesh-backend/internal/middleware"
	"ayudabesh-backend/internal/schedule"
	"ayudabesh-backend/internal/transport"
	"ayudabesh-backend/internal/validation"
)

type Handler struct {
	svc *Service
	val *validation.Validator
	log *slog.Logger
}

func NewHandler(svc *Service, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{svc: svc, val: val, log: log}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	a, err := h.svc.Get(ctx, p.UserID)
	if err != nil {
		log.Error("availability get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	transport.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())

	var req Request
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("availability save: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("availability save: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	a, created, err := h.svc.Save(ctx, p.UserID, req)
	if err != nil {
		if errors.Is(err, ErrInvalidSchedule) || errors.Is(err, ErrInvalidTimezone) {
			log.Warn("availability save: rejected", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		log.Error("availability save: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	message := "Availability updated successfully"
	if created {
		message = "Availability created successfully"
	}
	log.Info("availability save: ok", slog.Bool("created", created))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":      message,
		"availability": a,
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.Reset(ctx, p.UserID); err != nil {
		log.Error("availability delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	log.Info("availability delete: ok")
	transport.WriteMessage(w, http.StatusOK, "Availability deleted successfully")
}

func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req CheckRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	v, err := h.svc.Check(ctx, req)
	if err != nil {
		if errors.Is(err, schedule.ErrInvalidInstant) {
			transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		log.Error("availability check: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	transport.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())

	now := h.svc.Now()
	q := r.URL.Query()
	month, err := httpx.QueryInt(q, "month", int(now.Month()))
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid month", nil)
		return
	}
	year, err := httpx.QueryInt(q, "year", now.Year())
	if err != nil || year < 1 {
		transport.WriteError(w, http.StatusBadRequest, "invalid year", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	cal, err := h.svc.Calendar(ctx, p.UserID, year, time.Month(month))
	if err != nil {
		if errors.Is(err, schedule.ErrInvalidMonth) {
			transport.WriteError(w, http.StatusBadRequest, "invalid month", nil)
			return
		}
		log.Error("availability calendar: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	transport.WriteJSON(w, http.StatusOK, cal)
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
