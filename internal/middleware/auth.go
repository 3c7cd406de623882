package middleware

import (
	"context"
	"net/http"
	"strings"

	"ayudabesh-backend/internal/auth"
	"ayudabesh-backend/internal/transport"
)

const TokenCookie = "token"

type principalKey struct{}

func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(auth.Principal)
	return p, ok && p.UserID != ""
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

func unauthenticated(w http.ResponseWriter, r *http.Request) {
	if isAPIPath(r.URL.Path) {
		transport.WriteError(w, http.StatusUnauthorized, "authentication required", nil)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// RequireAuth verifies the access token and stores the principal in the
// request context.
func RequireAuth(manager *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				unauthenticated(w, r)
				return
			}
			claims, err := manager.Parse(raw)
			if err != nil {
				unauthenticated(w, r)
				return
			}
			p := auth.Principal{UserID: claims.UserID, Role: claims.Role}
			noteCaller(r.Context(), p)
			ctx := WithPrincipal(r.Context(), p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				unauthenticated(w, r)
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			transport.WriteError(w, http.StatusForbidden, "insufficient permissions", nil)
		})
	}
}
