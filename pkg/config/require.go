package config

import "log"

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}

// MustLoad loads the configuration and exits on anything the service cannot start with.
func MustLoad() Config {
	cfg := Load()

	MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	if cfg.JWTEd25519Seed == "" {
		MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")
	}
	if cfg.NotifyDriver == "smtp" {
		MustNonEmpty(cfg.SMTPHost, "SMTP_HOST")
		MustNonEmpty(cfg.SMTPFrom, "SMTP_FROM")
	}
	if cfg.NotifyDriver == "kafka" && len(cfg.KafkaBrokers) == 0 {
		log.Fatalf("missing required env KAFKA_BROKERS")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}
