package users

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

type AdminHandler struct {
	trust *TrustService
	val   *validation.Validator
	log   *slog.Logger
}

func NewAdminHandler(trust *TrustService, val *validation.Validator, log *slog.Logger) *AdminHandler {
	return &AdminHandler{trust: trust, val: val, log: log}
}

// writeTrustError maps lifecycle errors. It returns false for unexpected ones.
func writeTrustError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, ErrProviderNotFound):
		transport.WriteError(w, http.StatusNotFound, "provider not found", nil)
	case errors.Is(err, ErrNotFound):
		transport.WriteError(w, http.StatusNotFound, "user not found", nil)
	case errors.Is(err, ErrReasonRequired), errors.Is(err, ErrInvalidDuration), errors.Is(err, ErrHasBookings):
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		return false
	}
	return true
}

func (h *AdminHandler) PendingProviders(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, err := h.trust.PendingProviders(ctx)
	if err != nil {
		log.Error("admin providers pending: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	log.Info("admin providers pending: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, items)
}

func (h *AdminHandler) VerifiedProviders(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, err := h.trust.VerifiedProviders(ctx)
	if err != nil {
		log.Error("admin providers verified: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	log.Info("admin providers verified: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, items)
}

func (h *AdminHandler) ProviderDetails(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.trust.ProviderDetails(ctx, id)
	if err != nil {
		if writeTrustError(w, err) {
			log.Warn("admin provider get: not found", slog.String("provider_id", id))
			return
		}
		log.Error("admin provider get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	transport.WriteJSON(w, http.StatusOK, u)
}

func (h *AdminHandler) VerifyProvider(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.trust.Verify(ctx, id); err != nil {
		if writeTrustError(w, err) {
			log.Warn("admin verify provider: rejected", slog.String("provider_id", id), slog.String("error", err.Error()))
			return
		}
		log.Error("admin verify provider: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin verify provider: ok", slog.String("provider_id", id))
	transport.WriteMessage(w, http.StatusOK, "Provider verified")
}

func (h *AdminHandler) RejectProvider(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req RejectProviderRequest
	if err := httpx.DecodeOptionalJSON(r.Body, &req); err != nil {
		log.Warn("admin reject provider: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.trust.Reject(ctx, id, req.Reason); err != nil {
		if writeTrustError(w, err) {
			log.Warn("admin reject provider: rejected", slog.String("provider_id", id), slog.String("error", err.Error()))
			return
		}
		log.Error("admin reject provider: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin reject provider: ok", slog.String("provider_id", id))
	transport.WriteMessage(w, http.StatusOK, "Provider rejected")
}

func (h *AdminHandler) DeleteProvider(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.trust.DeleteProvider(ctx, id); err != nil {
		if writeTrustError(w, err) {
			log.Warn("admin delete provider: rejected", slog.String("provider_id", id), slog.String("error", err.Error()))
			return
		}
		log.Error("admin delete provider: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin delete provider: ok", slog.String("provider_id", id))
	transport.WriteMessage(w, http.StatusOK, "Provider deleted successfully")
}

func (h *AdminHandler) DisableAccount(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	admin, _ := middleware.PrincipalFromContext(r.Context())

	var req DisableRequest
	if err := httpx.DecodeOptionalJSON(r.Body, &req); err != nil {
		log.Warn("admin disable account: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	until, err := h.trust.Disable(ctx, admin.UserID, id, req.DurationDays, req.Reason)
	if err != nil {
		if writeTrustError(w, err) {
			log.Warn("admin disable account: rejected", slog.String("user_id", id), slog.String("error", err.Error()))
			return
		}
		log.Error("admin disable account: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	message := "Account disabled successfully permanently"
	if until != nil {
		message = "Account disabled successfully until " + until.Format(time.RFC3339)
	}
	log.Info("admin disable account: ok", slog.String("user_id", id), slog.Int("duration_days", req.DurationDays))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":        message,
		"disabled_until": until,
	})
}

func (h *AdminHandler) EnableAccount(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.trust.Enable(ctx, id); err != nil {
		if writeTrustError(w, err) {
			return
		}
		log.Error("admin enable account: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin enable account: ok", slog.String("user_id", id))
	transport.WriteMessage(w, http.StatusOK, "Account enabled successfully")
}

func (h *AdminHandler) DeletionRequests(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, err := h.trust.DeletionRequests(ctx)
	if err != nil {
		log.Error("admin deletion requests: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	log.Info("admin deletion requests: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, items)
}

func (h *AdminHandler) ApproveDeletion(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.trust.ApproveDeletion(ctx, id); err != nil {
		if writeTrustError(w, err) {
			log.Warn("admin approve deletion: rejected", slog.String("user_id", id), slog.String("error", err.Error()))
			return
		}
		log.Error("admin approve deletion: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin approve deletion: ok", slog.String("user_id", id))
	transport.WriteMessage(w, http.StatusOK, "Account deleted permanently")
}

func (h *AdminHandler) RejectDeletion(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req ReasonRequest
	if err := httpx.DecodeOptionalJSON(r.Body, &req); err != nil {
		log.Warn("admin reject deletion: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.trust.RejectDeletion(ctx, id, req.Reason); err != nil {
		if writeTrustError(w, err) {
			return
		}
		log.Error("admin reject deletion: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin reject deletion: ok", slog.String("user_id", id))
	transport.WriteMessage(w, http.StatusOK, "Account deletion request rejected. Account has been re-enabled.")
}

func (h *AdminHandler) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
