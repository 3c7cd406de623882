package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ayudabesh-backend/internal/httpx"
	"ayudabesh-backend/internal/middleware"
	"ayudabesh-backend/internal/transport"
	"ayudabesh-backend/internal/validation"
)

type Handler struct {
	accounts     *AccountService
	trust        *TrustService
	val          *validation.Validator
	log          *slog.Logger
	cookieSecure bool
	cookieTTL    time.Duration
}

func NewHandler(accounts *AccountService, trust *TrustService, val *validation.Validator, log *slog.Logger, cookieSecure bool, cookieTTL time.Duration) *Handler {
	return &Handler{
		accounts:     accounts,
		trust:        trust,
		val:          val,
		log:          log,
		cookieSecure: cookieSecure,
		cookieTTL:    cookieTTL,
	}
}

func (h *Handler) setTokenCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func (h *Handler) writeUniqueness(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrEmailTaken), errors.Is(err, ErrPhoneTaken):
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return true
	}
	return false
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req SignupRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("signup: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("signup: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	session, err := h.accounts.Signup(ctx, req)
	if err != nil {
		if h.writeUniqueness(w, err) {
			log.Warn("signup: duplicate", slog.String("error", err.Error()))
			return
		}
		if errors.Is(err, ErrInvalidRole) {
			transport.WriteError(w, http.StatusBadRequest, "invalid role", map[string]string{"role": "oneof"})
			return
		}
		log.Error("signup: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	h.setTokenCookie(w, session.Token, int(h.cookieTTL.Seconds()))
	log.Info("signup: ok", slog.String("user_id", session.User.ID), slog.String("role", session.User.Role))
	transport.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Account created successfully",
		"user":    session.User,
		"token":   session.Token,
	})
}

func (h *Handler) AdminSignup(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req AdminSignupRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin signup: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("admin signup: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	u, err := h.accounts.AdminSignup(ctx, req)
	if err != nil {
		if h.writeUniqueness(w, err) {
			return
		}
		log.Error("admin signup: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin signup: ok", slog.String("user_id", u.ID))
	transport.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Admin account created successfully",
		"user":    u,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req LoginRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("login: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("login: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	session, err := h.accounts.Login(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			log.Warn("login: invalid credentials", slog.String("username", req.Username))
			transport.WriteError(w, http.StatusUnauthorized, "invalid credentials", nil)
		case errors.Is(err, ErrAccountDisabled):
			log.Warn("login: account disabled", slog.String("user_id", session.User.ID))
			details := map[string]string{"reason": session.User.DisabledReason}
			if session.User.DisabledUntil != nil {
				details["disabled_until"] = session.User.DisabledUntil.Format(time.RFC3339)
			}
			transport.WriteError(w, http.StatusForbidden, "account disabled", details)
		default:
			log.Error("login: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	h.setTokenCookie(w, session.Token, int(h.cookieTTL.Seconds()))
	log.Info("login: ok", slog.String("user_id", session.User.ID))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"user":    session.User,
		"token":   session.Token,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setTokenCookie(w, "", -1)
	h.logWithRequest(r).Info("logout: ok")
	transport.WriteMessage(w, http.StatusOK, "Logged out successfully")
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.accounts.Me(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			transport.WriteError(w, http.StatusNotFound, "user not found", nil)
			return
		}
		log.Error("me: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	transport.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req ForgotPasswordRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("forgot password: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("forgot password: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := h.accounts.ForgotPassword(ctx, req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("forgot password: no account")
			transport.WriteError(w, http.StatusNotFound, "no account found with the provided identifier and account type", nil)
			return
		}
		log.Error("forgot password: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("forgot password: ok", slog.Int("channels", len(result.SentVia)))
	transport.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req ResetPasswordRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("reset password: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("reset password: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.accounts.ResetPassword(ctx, req); err != nil {
		if errors.Is(err, ErrInvalidReset) || errors.Is(err, ErrNotFound) {
			log.Warn("reset password: rejected")
			transport.WriteError(w, http.StatusBadRequest, ErrInvalidReset.Error(), nil)
			return
		}
		log.Error("reset password: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("reset password: ok")
	transport.WriteMessage(w, http.StatusOK, "Password reset successfully")
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())

	var req ProfileUpdate
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("update profile: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("update profile: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	u, err := h.accounts.UpdateProfile(ctx, p, req)
	if err != nil {
		if h.writeUniqueness(w, err) {
			return
		}
		if errors.Is(err, ErrEmptyUpdate) {
			transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		if errors.Is(err, ErrNotFound) {
			transport.WriteError(w, http.StatusNotFound, "user not found", nil)
			return
		}
		log.Error("update profile: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("update profile: ok", slog.String("user_id", p.UserID))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Profile updated successfully",
		"user":    u,
	})
}

func (h *Handler) RequestDeletion(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, _ := middleware.PrincipalFromContext(r.Context())

	var req ReasonRequest
	if err := httpx.DecodeOptionalJSON(r.Body, &req); err != nil {
		log.Warn("delete account: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	if err := h.trust.RequestDeletion(ctx, p, req.Reason); err != nil {
		switch {
		case errors.Is(err, ErrActiveBookings):
			log.Warn("delete account: active bookings", slog.String("user_id", p.UserID))
			transport.WriteError(w, http.StatusBadRequest, "cannot request deletion while you have pending or accepted bookings", nil)
		case errors.Is(err, ErrNotFound):
			transport.WriteError(w, http.StatusNotFound, "user not found", nil)
		default:
			log.Error("delete account: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	h.setTokenCookie(w, "", -1)
	log.Info("delete account: ok", slog.String("user_id", p.UserID))
	transport.WriteMessage(w, http.StatusOK, "Account deletion requested. Your account has been disabled pending admin review.")
}

func (h *Handler) Providers(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	q := r.URL.Query()

	search := ProviderSearch{
		Service:  q.Get("service"),
		Location: q.Get("location"),
	}
	var err error
	if search.Latitude, err = httpx.QueryFloat(q, "latitude"); err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if search.Longitude, err = httpx.QueryFloat(q, "longitude"); err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	radius, err := httpx.QueryFloat(q, "radius")
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if radius != nil {
		search.RadiusKm = *radius
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	providers, err := h.accounts.SearchProviders(ctx, search)
	if err != nil {
		log.Error("providers: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("providers: ok", slog.Int("count", len(providers)))
	transport.WriteJSON(w, http.StatusOK, providers)
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
