package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every environment-derived setting. It is loaded once in main
// and injected; no other package reads the environment.
type Config struct {
	AppEnv           string
	LogLevel         string
	HTTPListenAddr   string
	MetricsNamespace string

	// Public origin used when building proposal links in outbound
	// notifications.
	PublicBaseURL string

	// Store. DatabasePath selects the embedded SQLite file; DatabaseURL,
	// when set, switches to the Postgres backend instead.
	DatabasePath string
	DatabaseURL  string

	// LLM completion provider.
	OpenAIAPIKey string
	OpenAIModel  string

	// Transactional email.
	SendGridAPIKey string
	SenderEmail    string

	// SMS.
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	// Push.
	OneSignalAppID      string
	OneSignalRESTAPIKey string

	// Optional settings read cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool

	// Deadline applied to every external gateway call.
	UpstreamTimeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	timeout, err := time.ParseDuration(getEnv("UPSTREAM_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}

	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		HTTPListenAddr:   getEnv("HTTP_LISTEN_ADDR", ":8080"),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "zyberfy"),
		PublicBaseURL:    getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),

		DatabasePath: getEnv("DATABASE", "zyberfy.db"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		SenderEmail:    os.Getenv("SENDER_EMAIL"),

		TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioPhoneNumber: os.Getenv("TWILIO_PHONE_NUMBER"),

		OneSignalAppID:      os.Getenv("ONESIGNAL_APP_ID"),
		OneSignalRESTAPIKey: os.Getenv("ONESIGNAL_REST_API_KEY"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		RedisTLS:      parseBool(os.Getenv("REDIS_TLS")),

		UpstreamTimeout: timeout,
	}

	if cfg.DatabasePath == "" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("no database configured")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
