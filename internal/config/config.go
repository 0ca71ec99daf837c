package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	AppEnv      string
	LogLevel    string
	CORSOrigins string

	// Database
	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Admin
	AdminEmails string

	// Document storage
	StorageBackend string
	StorageDir     string
	S3Bucket       string
	AWSRegion      string
	S3Endpoint     string
	DownloadURLTTL time.Duration
	UploadMaxBytes int

	// Mail
	SMTPHost      string
	SMTPPort      int
	EmailSender   string
	EmailPassword string

	// Reminders
	RemindersEnabled   bool
	ReminderSchedule   string
	ReminderTimezone   string
	ReminderRatePerSec float64
	ReminderBurst      int

	SentryDSN string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		slog.Info(".env loaded")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		AppEnv:      getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBPath:     getEnv("DB_PATH", "health_manager.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "health_manager"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h"), 168*time.Hour),

		AdminEmails: getEnv("ADMIN_EMAILS", ""),

		StorageBackend: getEnv("STORAGE_BACKEND", "local"),
		StorageDir:     getEnv("STORAGE_DIR", "uploads"),
		S3Bucket:       getEnv("S3_BUCKET_NAME", ""),
		AWSRegion:      getEnv("AWS_REGION", ""),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		DownloadURLTTL: parseDuration(getEnv("DOWNLOAD_URL_TTL", "5m"), 5*time.Minute),
		UploadMaxBytes: parseInt(getEnv("UPLOAD_MAX_BYTES", ""), 20*1024*1024),

		SMTPHost:      getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:      parseInt(getEnv("SMTP_PORT", ""), 465),
		EmailSender:   getEnv("EMAIL_SENDER", ""),
		EmailPassword: getEnv("EMAIL_PASSWORD", ""),

		RemindersEnabled:   parseBool(getEnv("REMINDERS_ENABLED", "false")),
		ReminderSchedule:   getEnv("REMINDER_SCHEDULE", "@every 10m"),
		ReminderTimezone:   getEnv("REMINDER_TIMEZONE", "Local"),
		ReminderRatePerSec: parseFloat(getEnv("REMINDER_RATE_PER_SEC", ""), 2),
		ReminderBurst:      parseInt(getEnv("REMINDER_BURST", ""), 5),

		SentryDSN: getEnv("SENTRY_DSN", ""),
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	switch c.DBDriver {
	case "sqlite":
	case "postgres":
		if c.DBPassword == "" {
			return errors.New("DB_PASSWORD environment variable is required for postgres")
		}
	default:
		return errors.New("DB_DRIVER must be sqlite or postgres")
	}
	switch c.StorageBackend {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET_NAME environment variable is required for s3 storage")
		}
	default:
		return errors.New("STORAGE_BACKEND must be local or s3")
	}
	return nil
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

// Location resolves ReminderTimezone, falling back to the host zone.
func (c *Config) Location() *time.Location {
	if c.ReminderTimezone == "" || c.ReminderTimezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.ReminderTimezone)
	if err != nil {
		slog.Warn("invalid REMINDER_TIMEZONE, using local", "tz", c.ReminderTimezone, "error", err)
		return time.Local
	}
	return loc
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}
