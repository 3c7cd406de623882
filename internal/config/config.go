package config

import (
	"errors"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env                    string
	LogLevel               slog.Level
	MongoURI               string
	MongoDB                string
	ServerAddr             string
	FrontendOrigins        []string
	RateLimitAuthPerMin    int
	RateLimitBookingPerMin int
	RedisURL               string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	CacheTTLSeconds        int
	JWTSecret              string
	AccessTTLMinutes       int
	CookieSecure           bool
	AdminSetupKey          string
	BrevoAPIKey            string
	BrevoSenderEmail       string
	BrevoSenderName        string
	BrevoSandbox           bool
	JobsRedisDB            int
	JobsConcurrency        int
	SweepCron              string
	ResetCodeTTLMinutes    int
	EnforceAvailability    bool
	Timezone               *time.Location
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func Load() (*Config, error) {
	// A missing .env is fine; real environment variables always win.
	_ = godotenv.Load()

	loc, err := time.LoadLocation(getEnv("TZ", "Asia/Manila"))
	if err != nil {
		return nil, err
	}

	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017/ayudabesh")
	mongoDB := getEnv("MONGO_DB", "")
	if mongoDB == "" {
		mongoDB = mongoDBFromURI(mongoURI)
	}
	if mongoDB == "" {
		mongoDB = "ayudabesh"
	}

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		LogLevel:               parseLevel(getEnv("LOG_LEVEL", "info")),
		MongoURI:               mongoURI,
		MongoDB:                mongoDB,
		ServerAddr:             getEnv("SERVER_ADDR", ":8080"),
		FrontendOrigins:        splitCSV(getEnv("FRONTEND_ORIGINS", "http://localhost:3000")),
		RateLimitAuthPerMin:    getEnvInt("RATE_LIMIT_AUTH_PER_MIN", 20),
		RateLimitBookingPerMin: getEnvInt("RATE_LIMIT_BOOKING_PER_MIN", 30),
		RedisURL:               getEnv("REDIS_URL", ""),
		RedisAddr:              getEnv("REDIS_ADDR", ""),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		RedisDB:                getEnvInt("REDIS_DB", 0),
		CacheTTLSeconds:        getEnvInt("CACHE_TTL_SECONDS", 300),
		JWTSecret:              getEnv("JWT_SECRET", ""),
		AccessTTLMinutes:       getEnvInt("ACCESS_TTL_MINUTES", 60),
		CookieSecure:           getEnvBool("COOKIE_SECURE", false),
		AdminSetupKey:          getEnv("ADMIN_SETUP_KEY", ""),
		BrevoAPIKey:            getEnv("BREVO_API_KEY", ""),
		BrevoSenderEmail:       getEnv("BREVO_SENDER_EMAIL", ""),
		BrevoSenderName:        getEnv("BREVO_SENDER_NAME", "AyudaBesh"),
		BrevoSandbox:           getEnvBool("BREVO_SANDBOX", false),
		JobsRedisDB:            getEnvInt("JOBS_REDIS_DB", 1),
		JobsConcurrency:        getEnvInt("JOBS_CONCURRENCY", 5),
		SweepCron:              getEnv("SWEEP_CRON", "@every 5m"),
		ResetCodeTTLMinutes:    getEnvInt("RESET_CODE_TTL_MINUTES", 15),
		EnforceAvailability:    getEnvBool("ENFORCE_AVAILABILITY", false),
		Timezone:               loc,
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// RedisConfigured reports whether either a URL or an address was supplied.
func (c *Config) RedisConfigured() bool {
	return c.RedisURL != "" || c.RedisAddr != ""
}

func mongoDBFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	db := strings.Trim(u.Path, "/")
	if db == "" {
		return ""
	}
	if idx := strings.Index(db, "/"); idx >= 0 {
		db = db[:idx]
	}
	return db
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
