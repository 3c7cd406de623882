package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"ayudabesh-backend/internal/auth"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// accessEntry is filled in by inner middleware so the access line can name
// the caller once the handler chain has returned.
type accessEntry struct {
	principal auth.Principal
}

type accessKey struct{}

func noteCaller(ctx context.Context, p auth.Principal) {
	if e, ok := ctx.Value(accessKey{}).(*accessEntry); ok {
		e.principal = p
	}
}

func Logger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			entry := &accessEntry{}
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), accessKey{}, entry)))

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case rec.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case rec.status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Int("bytes", rec.bytes),
				slog.Duration("duration", time.Since(start)),
			}
			if entry.principal.UserID != "" {
				attrs = append(attrs,
					slog.String("user_id", entry.principal.UserID),
					slog.String("role", entry.principal.Role),
				)
			}
			log.LogAttrs(r.Context(), level, "request", attrs...)
		})
	}
}
