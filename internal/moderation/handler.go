package moderation

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

func (h *Handler) writeError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, ErrDisputeNotFound), errors.Is(err, ErrReportNotFound), errors.Is(err, ErrBookingNotFound):
		log.Warn(op+": not found", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, ErrForbidden):
		log.Warn(op + ": forbidden")
		transport.WriteError(w, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, ErrResponseRequired), errors.Is(err, ErrDescriptionRequired):
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		log.Error(op+": database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
	}
}

// decode reads and validates a JSON body. Empty bodies are allowed when
// optional is set.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) bool {
	decode := httpx.DecodeJSON
	if optional {
		decode = httpx.DecodeOptionalJSON
	}
	if err := decode(r.Body, dst); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return false
	}
	if err := h.val.Struct(dst); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return false
	}
	return true
}

func (h *Handler) FileDispute(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())

	var req FileDisputeRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	d, err := h.svc.FileDispute(ctx, p, req)
	if err != nil {
		h.writeError(w, log, "dispute file", err)
		return
	}
	log.Info("dispute file: ok", slog.String("dispute_id", d.ID))
	transport.WriteJSON(w, http.StatusCreated, map[string]string{
		"dispute_id": d.ID,
		"message":    "Dispute submitted successfully",
	})
}

func (h *Handler) FileReport(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())

	var req FileReportRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rep, err := h.svc.FileReport(ctx, p, req)
	if err != nil {
		h.writeError(w, log, "report file", err)
		return
	}
	log.Info("report file: ok", slog.String("report_id", rep.ID))
	transport.WriteJSON(w, http.StatusCreated, map[string]string{
		"report_id": rep.ID,
		"message":   "Report submitted successfully",
	})
}

func (h *Handler) ListDisputes(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, err := h.svc.ListDisputes(ctx, p)
	if err != nil {
		h.writeError(w, log, "dispute list", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, err := h.svc.ListReports(ctx, p)
	if err != nil {
		h.writeError(w, log, "report list", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) GetDispute(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	d, err := h.svc.GetDispute(ctx, p, id)
	if err != nil {
		h.writeError(w, log, "dispute get", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rep, err := h.svc.GetReport(ctx, p, id)
	if err != nil {
		h.writeError(w, log, "report get", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, rep)
}

func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req RespondRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.Respond(ctx, p, id, req.Response); err != nil {
		h.writeError(w, log, "dispute respond", err)
		return
	}
	log.Info("dispute respond: ok", slog.String("dispute_id", id))
	transport.WriteMessage(w, http.StatusOK, "Response added successfully")
}

func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req ResolveRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.Resolve(ctx, p, id, req.ResolutionNotes); err != nil {
		h.writeError(w, log, "dispute resolve", err)
		return
	}
	log.Info("dispute resolve: ok", slog.String("dispute_id", id))
	transport.WriteMessage(w, http.StatusOK, "Dispute resolved successfully")
}

func (h *Handler) CheckReport(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req CheckRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.CheckReport(ctx, p, id, req.Notes); err != nil {
		h.writeError(w, log, "report check", err)
		return
	}
	log.Info("report check: ok", slog.String("report_id", id))
	transport.WriteMessage(w, http.StatusOK, "Report marked as checked successfully")
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
