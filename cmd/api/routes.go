package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"ayudabesh-backend/internal/auth"
	"ayudabesh-backend/internal/availability"
	"ayudabesh-backend/internal/bookings"
	"ayudabesh-backend/internal/catalog"
	"ayudabesh-backend/internal/config"
	"ayudabesh-backend/internal/middleware"
	"ayudabesh-backend/internal/moderation"
	"ayudabesh-backend/internal/notifications"
	"ayudabesh-backend/internal/reports"
	"ayudabesh-backend/internal/reviews"
	"ayudabesh-backend/internal/transport"
	"ayudabesh-backend/internal/users"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/mongo"
)

type routeHandlers struct {
	users         *users.Handler
	admin         *users.AdminHandler
	bookings      *bookings.Handler
	availability  *availability.Handler
	reviews       *reviews.Handler
	notifications *notifications.Handler
	moderation    *moderation.Handler
	reports       *reports.Handler
	catalog       *catalog.Handler
}

func newRouter(cfg *config.Config, logger *slog.Logger, tokens *auth.Manager, client *mongo.Client, h routeHandlers) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.FrontendOrigins))
	r.Use(chiMiddleware.StripSlashes)
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		transport.WriteError(w, http.StatusNotFound, "endpoint not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		transport.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx, nil); err != nil {
			transport.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "disconnected"})
			return
		}
		transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "connected"})
	})

	authLimiter := middleware.NewRateLimiter(cfg.RateLimitAuthPerMin, time.Minute)
	bookingLimiter := middleware.NewRateLimiter(cfg.RateLimitBookingPerMin, time.Minute)
	requireAuth := middleware.RequireAuth(tokens)

	register := func(api chi.Router) {
		api.Route("/auth", func(a chi.Router) {
			a.With(authLimiter.Middleware).Post("/signup", h.users.Signup)
			a.With(authLimiter.Middleware).Post("/login", h.users.Login)
			a.Post("/logout", h.users.Logout)
			a.With(authLimiter.Middleware, middleware.SetupKey(cfg.AdminSetupKey)).Post("/admin/signup", h.users.AdminSignup)
			a.With(authLimiter.Middleware).Post("/forgot-password", h.users.ForgotPassword)
			a.With(authLimiter.Middleware).Post("/reset-password", h.users.ResetPassword)
			a.With(requireAuth).Get("/me", h.users.Me)
		})

		// public marketplace
		api.Get("/services", h.catalog.Services)
		api.Get("/available-services", h.catalog.AvailableServices)
		api.Get("/providers", h.users.Providers)
		api.Post("/availability/check", h.availability.Check)
		api.Get("/reviews/provider/{id}", h.reviews.ProviderReviews)

		api.Group(func(p chi.Router) {
			p.Use(requireAuth)

			p.Get("/update-profile", h.users.Me)
			p.Post("/update-profile", h.users.UpdateProfile)
			p.Post("/delete-account", h.users.RequestDeletion)

			p.With(middleware.RequireRole(auth.RoleCustomer), bookingLimiter.Middleware).Post("/book", h.bookings.Create)
			p.Get("/my-bookings", h.bookings.MyBookings)
			p.Get("/payment-transactions", h.bookings.Transactions)
			p.Route("/bookings/{id}", func(b chi.Router) {
				b.Get("/", h.bookings.Get)
				b.Post("/accept", h.bookings.Accept)
				b.Post("/reject", h.bookings.Reject)
				b.Post("/update-price", h.bookings.UpdatePrice)
				b.Post("/complete", h.bookings.Complete)
				b.Post("/cancel", h.bookings.Cancel)
				b.Post("/rate", h.bookings.Rate)
			})

			p.Group(func(pv chi.Router) {
				pv.Use(middleware.RequireRole(auth.RoleProvider))
				pv.Get("/availability", h.availability.Get)
				pv.Post("/availability", h.availability.Save)
				pv.Put("/availability", h.availability.Save)
				pv.Delete("/availability", h.availability.Delete)
				pv.Get("/availability/calendar", h.availability.Calendar)
			})

			p.Get("/reviews/booking/{id}", h.reviews.BookingReview)
			p.With(middleware.RequireRole(auth.RoleCustomer)).Get("/reviews/my-reviews", h.reviews.MyReviews)

			p.Get("/notifications", h.notifications.List)
			p.Post("/notifications/{id}/read", h.notifications.MarkRead)
			p.Post("/notifications/read-all", h.notifications.MarkAllRead)
		})

		api.Route("/admin", func(a chi.Router) {
			a.Use(requireAuth)

			// Parties to a booking reach these; the service enforces who may do what.
			a.Get("/disputes", h.moderation.ListDisputes)
			a.Post("/disputes", h.moderation.FileDispute)
			a.Get("/disputes/{id}", h.moderation.GetDispute)
			a.Post("/disputes/{id}/response", h.moderation.Respond)
			a.Get("/reports", h.moderation.ListReports)
			a.Post("/reports", h.moderation.FileReport)
			a.Get("/reports/{id}", h.moderation.GetReport)

			a.Group(func(adm chi.Router) {
				adm.Use(middleware.RequireRole(auth.RoleAdmin))

				adm.Get("/providers/pending", h.admin.PendingProviders)
				adm.Get("/providers/verified", h.admin.VerifiedProviders)
				adm.Get("/providers/{id}", h.admin.ProviderDetails)
				adm.Post("/verify-provider/{id}", h.admin.VerifyProvider)
				adm.Post("/reject-provider/{id}", h.admin.RejectProvider)
				adm.Delete("/delete-provider/{id}", h.admin.DeleteProvider)

				adm.Post("/accounts/{id}/disable", h.admin.DisableAccount)
				adm.Post("/accounts/{id}/enable", h.admin.EnableAccount)
				adm.Get("/accounts/deletion-requests", h.admin.DeletionRequests)
				adm.Post("/accounts/{id}/approve-deletion", h.admin.ApproveDeletion)
				adm.Post("/accounts/{id}/reject-deletion", h.admin.RejectDeletion)

				adm.Post("/disputes/{id}/resolve", h.moderation.Resolve)
				adm.Post("/reports/{id}/check", h.moderation.CheckReport)

				adm.Get("/reports/daily-bookings", h.reports.DailyBookings)
				adm.Get("/reports/provider-activity", h.reports.ProviderActivity)
				adm.Get("/reports/customer-history", h.reports.CustomerHistory)
				adm.Get("/reports/provider-earnings", h.reports.ProviderEarnings)
				adm.Get("/dashboard/stats", h.reports.Dashboard)
			})
		})
	}

	r.Route("/api", register)
	r.Route("/api/v1", register)
	return r
}
