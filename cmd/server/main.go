package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"tutoring-platform/internal/config"
	"tutoring-platform/internal/database"
	"tutoring-platform/internal/gateway"
	"tutoring-platform/internal/handlers"
	"tutoring-platform/internal/idempotency"
	"tutoring-platform/internal/middleware"
	"tutoring-platform/internal/repository"
	"tutoring-platform/internal/service"
	"tutoring-platform/pkg/concurrent"
	"tutoring-platform/pkg/logger"
	"tutoring-platform/pkg/metrics"
)

// loadEnvFile загружает переменные окружения из .env файла
func loadEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		// Если файл не существует, это не критическая ошибка - используем переменные окружения системы
		if os.IsNotExist(err) {
			log.Warn().Str("file", filename).Msg(".env file not found, using system environment variables")
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		line = strings.TrimSpace(line)

		// Пропускаем пустые строки и комментарии
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Не перезаписываем переменные окружения, которые уже установлены
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}

func main() {
	if err := loadEnvFile(".env"); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Setup(cfg.Server.Env)

	log.Info().Str("env", cfg.Server.Env).Str("port", cfg.Server.Port).Str("config", cfg.String()).Msg("Starting booking engine")

	db, err := database.New(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	// NOTE: Do NOT defer db.Close() here - database must be closed AFTER all goroutines stop.
	// See graceful shutdown sequence at the end of initializeApp (Phase 4).

	if err := initializeApp(cfg, db); err != nil {
		log.Error().Err(err).Msg("Application initialization failed, cleaning up resources")
		if closeErr := db.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Error closing database during error cleanup")
		}
		log.Fatal().Err(err).Msg("Fatal initialization error")
	}
}

// initializeApp wires the engine's collaborators and runs the HTTP server
// until a shutdown signal arrives. It collects errors instead of calling
// log.Fatal() so the caller can close the database on any failure path.
func initializeApp(cfg *config.Config, db *database.DB) error {
	log.Info().Msg("Database connected successfully")

	// Background database health check and connection-pool metrics, cancelled
	// in Phase 2 of the shutdown sequence below, before the DB is closed.
	healthCheckCtx, cancelHealthCheck := context.WithCancel(context.Background())

	concurrent.SafeGo(func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		failureCount := 0
		const healthCheckTimeout = 5 * time.Second

		for {
			select {
			case <-healthCheckCtx.Done():
				log.Debug().Msg("Health check goroutine shutting down")
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(healthCheckCtx, healthCheckTimeout)
				err := db.Pool.Ping(ctx)
				cancel()

				if healthCheckCtx.Err() != nil {
					log.Debug().Msg("Health check interrupted by shutdown signal")
					return
				}

				if err != nil {
					failureCount++
					log.Warn().Err(err).Int("failure_count", failureCount).Msg("Database health check failed")
					metrics.DBErrorsTotal.Inc()
				} else {
					failureCount = 0
				}

				stats := db.Pool.Stat()
				metrics.DBConnectionsActive.Set(float64(stats.AcquiredConns()))
				metrics.DBConnectionsIdle.Set(float64(stats.IdleConns()))
			}
		}
	})

	// Repositories
	userRepo := repository.NewUserRepository(db.Sqlx)
	bookingRepo := repository.NewBookingRepository(db.Sqlx)
	paymentRepo := repository.NewPaymentRepository(db.Sqlx)
	templateRepo := repository.NewRecurringTemplateRepository(db.Sqlx)
	eventRepo := repository.NewWebhookEventRepository(db.Sqlx)

	// Payment gateway adapter
	gw := gateway.NewStripeGateway(cfg.Gateway.SecretKey, cfg.Gateway.WebhookSecret, cfg.Gateway.FrontendURL)

	// Webhook idempotency lock: Redis-backed when REDIS_URL is configured,
	// otherwise an in-process fallback (SPEC_FULL.md §6). An unset or
	// unreachable Redis is not a startup failure; a REDIS_URL that does not
	// parse is.
	var locker idempotency.Locker
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			cancelHealthCheck()
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(opt)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable, falling back to in-process idempotency lock")
			redisClient.Close()
			redisClient = nil
			locker = idempotency.NewInProcessLocker()
		} else {
			locker = idempotency.NewRedisLocker(redisClient)
			log.Info().Msg("Redis-backed idempotency lock configured")
		}
	} else {
		log.Info().Msg("REDIS_URL not set, using in-process idempotency lock")
		locker = idempotency.NewInProcessLocker()
	}

	clock := service.SystemClock{}

	// Services
	engine := service.NewBookingEngine(db, bookingRepo, paymentRepo, userRepo, gw, clock)
	recurrence := service.NewRecurrenceExpander(db, bookingRepo, templateRepo, clock)
	webhooks := service.NewWebhookReducer(db, bookingRepo, paymentRepo, eventRepo, gw, locker)

	// Handlers
	bookingHandler := handlers.NewBookingHandler(engine, recurrence)
	paymentHandler := handlers.NewPaymentHandler(webhooks)
	healthHandler := handlers.NewHealthHandler(db.Pool)

	// CORS
	corsConfig := middleware.DefaultCORSConfig()
	if cfg.Server.ProductionDomain != "" {
		corsConfig.AllowedOrigins = append(corsConfig.AllowedOrigins, "https://"+cfg.Server.ProductionDomain)
		log.Info().Str("domain", cfg.Server.ProductionDomain).Msg("Added production domain to CORS allowed origins")
	}

	bodyLimitConfig := middleware.DefaultBodyLimitConfig()

	// Public webhook endpoint rate limiter (SPEC_FULL.md §6): the payment
	// gateway retries aggressively on non-2xx, and this is the one route
	// reachable without an upstream-issued identity, so it gets its own
	// per-IP limit independent of the identity-scoped routes.
	webhookLimiter := middleware.WebhookRateLimiter()

	// Router
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.BodyLimitMiddleware(bodyLimitConfig))
	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.CORSMiddleware(corsConfig))

	r.Get("/health", healthHandler.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Payment gateway webhook: authenticated by signature, not by user
		// session, so it lives outside the identity-context group below.
		r.With(middleware.RateLimitMiddleware(webhookLimiter)).Post("/payments/webhook", paymentHandler.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(trustedIdentityMiddleware)

			r.Route("/bookings", func(r chi.Router) {
				r.Post("/", bookingHandler.Create)
				r.Post("/recurring", bookingHandler.CreateRecurring)
				r.Get("/", bookingHandler.List)
				r.Get("/{id}", bookingHandler.Get)
				r.Patch("/{id}/reschedule", bookingHandler.Reschedule)
				r.Patch("/{id}/confirm", bookingHandler.Confirm)
				r.Patch("/{id}/cancel", bookingHandler.Cancel)
				r.Patch("/{id}/cancel/refund", bookingHandler.RequestRefund)
			})
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		cancelHealthCheck()
		return fmt.Errorf("server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server is shutting down")

	// GRACEFUL SHUTDOWN SEQUENCE (ORDER MATTERS)
	// Phase 1: stop accepting new requests
	// Phase 2: cancel background goroutines that touch the database
	// Phase 3: grace period for them to exit
	// Phase 4: close the database

	log.Debug().Msg("Phase 1: Shutting down HTTP server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Debug().Msg("Phase 1: HTTP server shutdown complete")

	log.Debug().Msg("Phase 2: Stopping background goroutines")
	cancelHealthCheck()
	log.Debug().Msg("  - Health check goroutine cancelled")

	webhookLimiter.Stop()
	log.Debug().Msg("  - Webhook rate limiter cleanup goroutine stopped")

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing Redis client")
		}
		log.Debug().Msg("  - Redis client closed")
	}

	shutdownGracePeriod := 200 * time.Millisecond
	log.Debug().Dur("grace_period", shutdownGracePeriod).Msg("Phase 3: waiting for background goroutines to exit")
	time.Sleep(shutdownGracePeriod)

	log.Debug().Msg("Phase 4: Closing database connection")
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database")
	}
	log.Debug().Msg("Phase 4: Database connection closed")

	log.Info().Msg("Server shutdown complete")
	return nil
}
