package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrConfig = errors.New("invalid config")

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DatabaseDriver string
	DatabaseURL    string

	JWTSecret      []byte
	JWTEd25519Seed string
	JWTIssuer      string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	RefreshRetain  time.Duration
	RefreshBytes   int
	ResetTTL       time.Duration
	RevokeOnReset  bool
	BcryptCost     int
	ResetURLBase   string
	ResetOrigins   []string
	CSRFEnabled    bool

	NotifyDriver string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPass     string
	SMTPFrom     string

	KafkaBrokers       []string
	UserEventsTopic    string
	NotificationsTopic string

	ESURL        string
	ESUser       string
	ESPassword   string
	ESAuditIndex string
}

// Load reads the environment, optionally overlaid by a local .env file.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found, using system environment")
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "account"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DatabaseDriver: EnvDefault("DATABASE_DRIVER", "postgres"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),

		JWTSecret:      []byte(os.Getenv("JWT_SECRET")),
		JWTEd25519Seed: os.Getenv("JWT_ED25519_SEED"),
		JWTIssuer:      EnvDefault("JWT_ISSUER", "account"),
		AccessTTL:      EnvDurationDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:     EnvDurationDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		RefreshRetain:  EnvDurationDefault("REFRESH_TOKEN_RETENTION", 2*24*time.Hour),
		RefreshBytes:   EnvIntDefault("REFRESH_TOKEN_BYTES", 32),
		ResetTTL:       EnvDurationDefault("RESET_TOKEN_TTL", 24*time.Hour),
		RevokeOnReset:  EnvBoolDefault("REVOKE_SESSIONS_ON_RESET", false),
		BcryptCost:     EnvIntDefault("BCRYPT_COST", 12),
		ResetURLBase:   EnvDefault("RESET_URL_BASE", "http://localhost:3000"),
		ResetOrigins:   CSV(os.Getenv("RESET_ALLOWED_ORIGINS")),
		CSRFEnabled:    EnvBoolDefault("CSRF_ENABLED", true),

		NotifyDriver: EnvDefault("NOTIFY_DRIVER", "log"),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     EnvIntDefault("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPass:     os.Getenv("SMTP_PASS"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),

		KafkaBrokers:       CSV(os.Getenv("KAFKA_BROKERS")),
		UserEventsTopic:    EnvDefault("KAFKA_USER_EVENTS_TOPIC", "user_events"),
		NotificationsTopic: EnvDefault("KAFKA_NOTIFICATIONS_TOPIC", "notifications"),

		ESURL:        os.Getenv("ES_URL"),
		ESUser:       os.Getenv("ES_USER"),
		ESPassword:   os.Getenv("ES_PASSWORD"),
		ESAuditIndex: EnvDefault("ES_AUDIT_INDEX", "auth-audit"),
	}
}

// Validate checks the security-relevant bounds.
func (c Config) Validate() error {
	switch {
	case c.AccessTTL <= 0, c.RefreshTTL <= 0, c.ResetTTL <= 0:
		return fmt.Errorf("%w: token ttl must be positive", ErrConfig)
	case c.RefreshRetain < 0:
		return fmt.Errorf("%w: refresh retention must not be negative", ErrConfig)
	case c.RefreshBytes < 32 || c.RefreshBytes > 64:
		return fmt.Errorf("%w: REFRESH_TOKEN_BYTES must be within 32..64", ErrConfig)
	case c.BcryptCost < 4 || c.BcryptCost > 31:
		return fmt.Errorf("%w: BCRYPT_COST must be within 4..31", ErrConfig)
	}

	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("%w: unknown DATABASE_DRIVER %q", ErrConfig, c.DatabaseDriver)
	}

	switch c.NotifyDriver {
	case "log", "smtp", "kafka":
	default:
		return fmt.Errorf("%w: unknown NOTIFY_DRIVER %q", ErrConfig, c.NotifyDriver)
	}
	return nil
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
