package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ayudabesh-backend/internal/auth"
	"ayudabesh-backend/internal/availability"
	"ayudabesh-backend/internal/bookings"
	"ayudabesh-backend/internal/cache"
	"ayudabesh-backend/internal/catalog"
	"ayudabesh-backend/internal/config"
	"ayudabesh-backend/internal/db"
	"ayudabesh-backend/internal/jobs"
	"ayudabesh-backend/internal/moderation"
	"ayudabesh-backend/internal/notifications"
	"ayudabesh-backend/internal/reports"
	"ayudabesh-backend/internal/reviews"
	"ayudabesh-backend/internal/users"
	"ayudabesh-backend/internal/validation"

	"github.com/hibiken/asynq"
)

const cacheKeyPrefix = "ayudabesh:"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("mongo connected", slog.String("db", cfg.MongoDB))
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		logger.Error("index creation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var cacheStore cache.Cache = cache.NewNoop()
	var redisCache *cache.RedisCache
	if cfg.RedisConfigured() {
		if cfg.RedisURL != "" {
			redisCache, err = cache.NewRedisFromURL(cfg.RedisURL, cacheKeyPrefix)
		} else {
			redisCache = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cacheKeyPrefix)
		}
		if err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("redis connected", slog.String("addr", redisCache.Options().Addr))
		cacheStore = redisCache
		defer redisCache.Close()
	}
	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second

	tokens := &auth.Manager{
		Secret:    []byte(cfg.JWTSecret),
		AccessTTL: time.Duration(cfg.AccessTTLMinutes) * time.Minute,
		ResetTTL:  time.Duration(cfg.ResetCodeTTLMinutes) * time.Minute,
		Issuer:    "ayudabesh-backend",
	}

	mailer := notifications.NewBrevoClient(cfg.BrevoAPIKey, cfg.BrevoSenderEmail, cfg.BrevoSenderName, cfg.BrevoSandbox)
	var resetMailer users.ResetMailer
	if mailer == nil {
		logger.Info("brevo mailer disabled")
	} else {
		logger.Info("brevo mailer enabled", slog.String("sender", cfg.BrevoSenderEmail), slog.Bool("sandbox", cfg.BrevoSandbox))
		resetMailer = mailer
	}

	userRepo := users.NewRepository(cols.Users)
	bookingRepo := bookings.NewRepository(cols.Bookings)

	// E-mail delivery for notifications goes through the job queue, so it
	// only runs when Redis is configured and a mailer exists.
	var emailQueue notifications.EmailQueue
	var jobServer *asynq.Server
	if redisCache != nil && mailer != nil {
		opts := redisCache.Options()
		redisOpt := asynq.RedisClientOpt{
			Addr:      opts.Addr,
			Username:  opts.Username,
			Password:  opts.Password,
			DB:        cfg.JobsRedisDB,
			TLSConfig: opts.TLSConfig,
		}
		queueClient := asynq.NewClient(redisOpt)
		defer queueClient.Close()
		emailQueue = jobs.NewDispatcher(queueClient, logger)

		jobServer = jobs.NewServer(redisOpt, cfg.JobsConcurrency, logger)
		mux := asynq.NewServeMux()
		jobs.NewWorker(userRepo, mailer, logger).Register(mux)
		go func() {
			if err := jobServer.Run(mux); err != nil {
				logger.Error("job worker stopped", slog.String("error", err.Error()))
			}
		}()
		logger.Info("job worker started", slog.Int("concurrency", cfg.JobsConcurrency))
	}

	notificationRepo := notifications.NewRepository(cols.Notifications)
	sink := notifications.NewSink(notificationRepo, emailQueue, logger)

	trust := users.NewTrustService(userRepo, bookingRepo, sink, logger)
	accounts := users.NewAccountService(userRepo, users.NewResetStore(cols.PasswordResets), tokens, resetMailer,
		time.Duration(cfg.ResetCodeTTLMinutes)*time.Minute, logger)

	aggregator := reviews.NewAggregator(bookingRepo, userRepo, cacheStore, logger)
	reviewService := reviews.NewService(reviews.NewRepository(cols.Reviews), aggregator, userRepo, cacheStore, cacheTTL, logger)

	bookingService := bookings.NewService(bookingRepo, userRepo, reviewService, sink, logger)
	bookingService.SetLocation(cfg.Timezone)
	availabilityService, err := availability.NewService(availability.NewRepository(cols.Availability), bookingService, cfg.Timezone.String(), logger)
	if err != nil {
		logger.Error("availability setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.EnforceAvailability {
		bookingService.EnforceAvailability(availabilityService)
		logger.Info("booking availability enforcement enabled")
	}

	moderationService := moderation.NewService(moderation.NewStore(cols.Disputes, cols.Reports), bookingRepo, userRepo, sink, logger)
	reportService := reports.NewService(reports.NewStore(cols.Bookings, cols.Users, cols.Disputes, cols.Reviews), cfg.Timezone)
	catalogService := catalog.NewService(catalog.NewRepository(cols.Services), userRepo, cacheStore, cacheTTL, logger)

	scheduler, err := jobs.NewScheduler(cfg.SweepCron, trust, logger)
	if err != nil {
		logger.Error("scheduler setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	scheduler.Start()

	val := validation.New()
	r := newRouter(cfg, logger, tokens, client, routeHandlers{
		users:         users.NewHandler(accounts, trust, val, logger, cfg.CookieSecure, tokens.AccessTTL),
		admin:         users.NewAdminHandler(trust, val, logger),
		bookings:      bookings.NewHandler(bookingService, val, logger),
		availability:  availability.NewHandler(availabilityService, val, logger),
		reviews:       reviews.NewHandler(reviewService, logger),
		notifications: notifications.NewHandler(notifications.NewService(notificationRepo), logger),
		moderation:    moderation.NewHandler(moderationService, val, logger),
		reports:       reports.NewHandler(reportService, logger),
		catalog:       catalog.NewHandler(catalogService, logger),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	scheduler.Stop(shutdownCtx)
	if jobServer != nil {
		jobServer.Shutdown()
	}
	logger.Info("server stopped")
}
