package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// StorageTimeout bounds every storage interaction of the engine.
	StorageTimeout time.Duration

	// JWT (issued by the auth layer, validated here)
	JWTSecret string

	// Admin
	AdminUserIDs      string
	AdminTokenHash    string
	AdminTokenActorID string

	// Shared secrets for collaborator callbacks
	EventsSecret          string
	PaymentsWebhookSecret string

	// Economy defaults, overridable at runtime through remote config
	ReferralRewardCoins int64
	ReportRewardMin     int64
	ReportRewardMax     int64

	// Jobs
	SweepSchedule    string
	LogRetentionDays int

	// Server
	Port        string
	CORSOrigins string
	AppEnv      string
}

func Load() *Config {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "amora_economy"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		StorageTimeout: parseDuration(getEnv("STORAGE_TIMEOUT", "5s"), 5*time.Second),

		JWTSecret: getEnv("JWT_SECRET", ""),

		AdminUserIDs:      getEnv("ADMIN_USER_IDS", ""),
		AdminTokenHash:    getEnv("ADMIN_TOKEN_HASH", ""),
		AdminTokenActorID: getEnv("ADMIN_TOKEN_ACTOR_ID", ""),

		EventsSecret:          getEnv("EVENTS_SECRET", ""),
		PaymentsWebhookSecret: getEnv("PAYMENTS_WEBHOOK_SECRET", ""),

		ReferralRewardCoins: parseInt64(getEnv("REFERRAL_REWARD_COINS", "100"), 100),
		ReportRewardMin:     parseInt64(getEnv("REPORT_REWARD_MIN", "100"), 100),
		ReportRewardMax:     parseInt64(getEnv("REPORT_REWARD_MAX", "10000"), 10000),

		SweepSchedule:    getEnv("SWEEP_SCHEDULE", "*/15 * * * *"),
		LogRetentionDays: int(parseInt64(getEnv("LOG_RETENTION_DAYS", "30"), 30)),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		AppEnv:      getEnv("APP_ENV", "development"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt64(s string, fallback int64) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}
