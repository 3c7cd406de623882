package notifications

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ayudabesh-backend/internal/middleware"
	"ayudabesh-backend/internal/transport"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *Service
	log     *slog.Logger
}

func NewHandler(service *Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	inbox, err := h.service.Inbox(ctx, p.UserID)
	if err != nil {
		log.Error("notifications list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("notifications list: ok", slog.Int("count", len(inbox.Notifications)))
	transport.WriteJSON(w, http.StatusOK, inbox)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.service.MarkRead(ctx, p.UserID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("notifications read: not found", slog.String("notification_id", id))
			transport.WriteError(w, http.StatusNotFound, "notification not found", nil)
			return
		}
		log.Error("notifications read: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("notifications read: ok", slog.String("notification_id", id))
	transport.WriteMessage(w, http.StatusOK, "notification marked as read")
}

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	n, err := h.service.MarkAllRead(ctx, p.UserID)
	if err != nil {
		log.Error("notifications read-all: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("notifications read-all: ok", slog.Int64("modified", n))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "all notifications marked as read",
		"modified": n,
	})
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
