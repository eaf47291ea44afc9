package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
)

// Config holds the engine's entire runtime configuration. spec.md §6 names
// five required fields; REDIS_URL is an ambient addition for the webhook
// idempotency lock (SPEC_FULL.md §4.10) and is optional by design.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Gateway  GatewayConfig
	Redis    RedisConfig
}

// DatabaseConfig wraps the single connection string the engine accepts.
// Unlike the teacher's host/port/user/password tuple, this engine exposes
// only DATABASE_URL (spec.md §6); pgx/sqlx both accept a DSN directly.
type DatabaseConfig struct {
	URL string
}

// ServerConfig is the HTTP listener configuration.
type ServerConfig struct {
	Port             string
	Env              string // development, production
	ProductionDomain string
}

// GatewayConfig holds the credentials the Stripe adapter needs to create
// checkout sessions, issue refunds, and verify webhook signatures.
type GatewayConfig struct {
	SecretKey     string
	WebhookSecret string
	FrontendURL   string
}

// RedisConfig is optional: an empty URL means the idempotency locker falls
// back to an in-process map (SPEC_FULL.md §6), never a startup failure.
type RedisConfig struct {
	URL string
}

// maskSecret masks a secret for safe logging, showing only its edges.
func maskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 6 {
		return "***"
	}
	return secret[:3] + "..." + secret[len(secret)-3:]
}

// Load reads configuration from the environment. A missing DATABASE_URL, a
// malformed FRONTEND_URL, and (in production) a missing gateway secret or
// PRODUCTION_DOMAIN fail the load; outside production a missing gateway
// secret only logs a warning. FRONTEND_URL defaults to
// http://localhost:5173 and PORT to 8080.
func Load() (*Config, error) {
	env := getEnv("ENV", "development")
	isProduction := env == "production"

	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	gatewaySecret := getEnv("PAYMENT_GATEWAY_SECRET", "")
	gatewayWebhookSecret := getEnv("PAYMENT_GATEWAY_WEBHOOK_SECRET", "")
	frontendURL := getEnv("FRONTEND_URL", "http://localhost:5173")

	if isProduction {
		if gatewaySecret == "" {
			return nil, fmt.Errorf("PAYMENT_GATEWAY_SECRET is required in production")
		}
		if gatewayWebhookSecret == "" {
			return nil, fmt.Errorf("PAYMENT_GATEWAY_WEBHOOK_SECRET is required in production")
		}
	} else if gatewaySecret == "" {
		log.Println("[WARNING] PAYMENT_GATEWAY_SECRET not set in development; gateway calls will fail")
	}

	if _, err := url.ParseRequestURI(frontendURL); err != nil {
		return nil, fmt.Errorf("invalid FRONTEND_URL: %w", err)
	}

	redisURL := getEnv("REDIS_URL", "")
	if redisURL == "" {
		log.Println("REDIS_URL not set; webhook idempotency lock falls back to an in-process map")
	}

	cfg := &Config{
		Database: DatabaseConfig{URL: databaseURL},
		Server: ServerConfig{
			Port:             getEnv("PORT", "8080"),
			Env:              env,
			ProductionDomain: getEnv("PRODUCTION_DOMAIN", ""),
		},
		Gateway: GatewayConfig{
			SecretKey:     gatewaySecret,
			WebhookSecret: gatewayWebhookSecret,
			FrontendURL:   frontendURL,
		},
		Redis: RedisConfig{URL: redisURL},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate re-checks invariants Load already enforces, so a Config built by
// hand (tests) still gets the same guarantees.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.IsProduction() {
		if c.Gateway.SecretKey == "" {
			return fmt.Errorf("PAYMENT_GATEWAY_SECRET is required in production")
		}
		if c.Gateway.WebhookSecret == "" {
			return fmt.Errorf("PAYMENT_GATEWAY_WEBHOOK_SECRET is required in production")
		}
		if c.Server.ProductionDomain == "" {
			return fmt.Errorf("PRODUCTION_DOMAIN is required in production")
		}
	}
	return nil
}

// IsProduction reports whether the environment is production.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// IsDevelopment reports whether the environment is development.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// String renders the configuration for startup logging without leaking
// secrets (gateway keys, the database DSN's embedded credentials).
func (c *Config) String() string {
	maskedDB := c.Database.URL
	if i := strings.Index(maskedDB, "@"); i != -1 {
		maskedDB = "***" + maskedDB[i:]
	}
	return fmt.Sprintf(
		"Config{Database:{URL:%s} Server:{Port:%s Env:%s ProductionDomain:%s} Gateway:{SecretKey:%s WebhookSecret:%s FrontendURL:%s} Redis:{Configured:%v}}",
		maskedDB,
		c.Server.Port,
		c.Server.Env,
		c.Server.ProductionDomain,
		maskSecret(c.Gateway.SecretKey),
		maskSecret(c.Gateway.WebhookSecret),
		c.Gateway.FrontendURL,
		c.Redis.URL != "",
	)
}

// getEnv reads an environment variable or returns a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
