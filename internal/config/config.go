package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
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

	// Identity provider (Clerk)
	ClerkSecretKey       string
	ClerkAPIURL          string
	ClerkJWKSURL         string
	ClerkWebhookSecret   string
	SessionSigningSecret string

	// Admin
	AdminUserIDs string

	// Public links embedded in notifications
	AppBaseURL string

	// File storage
	DataDir             string
	UploadMaxPhotoBytes int64
	UploadMaxAudioBytes int64

	// Email
	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	SMTPSecure bool
	EmailFrom  string

	// Bulk SMS
	SMSAPIKey   string
	SMSSenderID string
	SMSAPIURL   string

	// Notification delivery
	NotifyTransport   string
	NotifyRelay       string
	NotifyMaxAttempts int
	NotifySendTimeout time.Duration
	AMQPURL           string
	NotifyQueue       string

	// Live queries
	RedisURL string

	// Logging
	LogRetention time.Duration

	// Server
	Port        string
	CORSOrigins string
	AppEnv      string
	SentryDSN   string
}

// Load reads .env (if present) and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "surokha"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		ClerkSecretKey:       getEnv("CLERK_SECRET_KEY", ""),
		ClerkAPIURL:          getEnv("CLERK_API_URL", "https://api.clerk.com/v1"),
		ClerkJWKSURL:         getEnv("CLERK_JWKS_URL", ""),
		ClerkWebhookSecret:   getEnv("CLERK_WEBHOOK_SECRET", ""),
		SessionSigningSecret: getEnv("SESSION_SIGNING_SECRET", ""),

		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),

		AppBaseURL: strings.TrimRight(getEnv("APP_BASE_URL", "https://localhost:3000"), "/"),

		DataDir:             getEnv("DATA_DIR", "data"),
		UploadMaxPhotoBytes: parseInt64(getEnv("UPLOAD_MAX_PHOTO_BYTES", ""), 4*1024*1024),
		UploadMaxAudioBytes: parseInt64(getEnv("UPLOAD_MAX_AUDIO_BYTES", ""), 10*1024*1024),

		SMTPHost:   getEnv("SMTP_HOST", ""),
		SMTPPort:   int(parseInt64(getEnv("SMTP_PORT", ""), 587)),
		SMTPUser:   getEnv("SMTP_USER", ""),
		SMTPPass:   getEnv("SMTP_PASS", ""),
		SMTPSecure: getEnv("SMTP_SECURE", "false") == "true",
		EmailFrom:  getEnv("EMAIL_FROM", ""),

		SMSAPIKey:   getEnv("SMS_API_KEY", ""),
		SMSSenderID: getEnv("SMS_SENDER_ID", ""),
		SMSAPIURL:   getEnv("SMS_API_URL", "https://sms.onecodesoft.com/api/send-bulk-sms"),

		NotifyTransport:   getEnv("NOTIFY_TRANSPORT", "direct"),
		NotifyRelay:       getEnv("NOTIFY_RELAY", "embedded"),
		NotifyMaxAttempts: int(parseInt64(getEnv("NOTIFY_MAX_ATTEMPTS", ""), 5)),
		NotifySendTimeout: parseDuration(getEnv("NOTIFY_SEND_TIMEOUT", "30s"), 30*time.Second),
		AMQPURL:           getEnv("AMQP_URL", ""),
		NotifyQueue:       getEnv("NOTIFY_QUEUE", "surokha.notifications"),

		RedisURL: getEnv("REDIS_URL", ""),

		LogRetention: parseDuration(getEnv("LOG_RETENTION", "720h"), 30*24*time.Hour),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		AppEnv:      getEnv("APP_ENV", "development"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),
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

// ShareLink builds the public, unauthenticated link for a report token.
func (c *Config) ShareLink(token string) string {
	return c.AppBaseURL + "/report/" + token
}

// AdminIDs returns the external identity ids that are always treated as admins.
func (c *Config) AdminIDs() []string {
	return parseCSV(c.AdminUserIDs)
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

func parseInt64(s string, fallback int64) int64 {
	if s == "" {
		return fallback
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
