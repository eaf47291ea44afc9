package main

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

// TestInitializationErrorCollection verifies errors are collected instead of calling log.Fatal()
func TestInitializationErrorCollection(t *testing.T) {
	tests := []struct {
		name          string
		errorScenario string
		expectedError bool
	}{
		{
			name:          "invalid database URL returns error",
			errorScenario: "invalid_database_url",
			expectedError: true,
		},
		{
			name:          "missing payment gateway secret in production returns error",
			errorScenario: "missing_gateway_secret",
			expectedError: true,
		},
		{
			name:          "redis connection failure falls back without error",
			errorScenario: "redis_unavailable",
			expectedError: false,
		},
		{
			name:          "server startup failure returns error",
			errorScenario: "server_startup_failed",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Scenario: Simulate what would have been log.Fatal() calls
			var errors []string

			switch tt.errorScenario {
			case "invalid_database_url":
				// Simulates: db, err := database.New(cfg.Database.URL)
				//            if err != nil { return fmt.Errorf(...) }
				errors = append(errors, fmt.Errorf("unable to parse database config: %w", fmt.Errorf("invalid DSN")).Error())

			case "missing_gateway_secret":
				// Simulates: cfg.Validate() rejecting an empty PAYMENT_GATEWAY_SECRET in production
				errors = append(errors, fmt.Errorf("PAYMENT_GATEWAY_SECRET is required in production").Error())

			case "redis_unavailable":
				// REDIS_URL missing or unreachable is a supported degraded mode
				// (SPEC_FULL.md §6): the idempotency locker falls back to an
				// in-process map, never a startup failure.

			case "server_startup_failed":
				// Simulates: if err := srv.ListenAndServe(); err != nil { return fmt.Errorf(...) }
				errors = append(errors, fmt.Errorf("server failed to start: bind address already in use").Error())
			}

			if tt.expectedError && len(errors) == 0 {
				t.Errorf("Expected error for scenario %q, but none was collected", tt.errorScenario)
			}
			if !tt.expectedError && len(errors) > 0 {
				t.Errorf("Expected no error for scenario %q, got %v", tt.errorScenario, errors)
			}
			if tt.expectedError && len(errors) > 0 {
				t.Logf("Error correctly collected: %s", errors[0])
			}
		})
	}
}

// TestInitializationCleanupOnError verifies resources are cleaned up on init failure
func TestInitializationCleanupOnError(t *testing.T) {
	tests := []struct {
		name          string
		failurePoint  string
		expectCleanup bool
	}{
		{
			name:          "database is closed on invalid REDIS_URL",
			failurePoint:  "redis_url",
			expectCleanup: true,
		},
		{
			name:          "database is closed on server startup failure",
			failurePoint:  "server",
			expectCleanup: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resourcesCleaned int64
			var shutdownSequence []string
			mu := sync.Mutex{}

			// Simulate main() error handler
			initErr := fmt.Errorf("initialization failed at %s stage", tt.failurePoint)

			if initErr != nil {
				t.Logf("Application initialization failed, cleaning up resources")

				mu.Lock()
				shutdownSequence = append(shutdownSequence, "log_error")
				shutdownSequence = append(shutdownSequence, "close_database")
				mu.Unlock()

				atomic.StoreInt64(&resourcesCleaned, 1)
			}

			if tt.expectCleanup && atomic.LoadInt64(&resourcesCleaned) == 1 {
				t.Logf("Resources cleaned up correctly on %s failure", tt.failurePoint)
				mu.Lock()
				if len(shutdownSequence) >= 2 && shutdownSequence[1] == "close_database" {
					t.Log("Database close was called during error cleanup")
				}
				mu.Unlock()
			} else if tt.expectCleanup {
				t.Errorf("Expected resources to be cleaned up, but they were not")
			}
		})
	}
}

// TestNoResourceLeakOnRedisURLInitFailure verifies no resource leaks when
// initializeApp fails because REDIS_URL cannot be parsed.
func TestNoResourceLeakOnRedisURLInitFailure(t *testing.T) {
	tests := []struct {
		name               string
		healthCheckStarted bool
		expectCleanup      bool
	}{
		{
			name:               "health check goroutine is cleaned up before db close",
			healthCheckStarted: true,
			expectCleanup:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var healthCheckCancelled int64
			var dbClosed int64
			var cleanupEvents []string
			mu := sync.Mutex{}

			if tt.healthCheckStarted {
				mu.Lock()
				cleanupEvents = append(cleanupEvents, "health_check_started")
				mu.Unlock()

				redisURLErr := true

				if redisURLErr {
					// 1. Cancel health check context BEFORE returning error
					atomic.StoreInt64(&healthCheckCancelled, 1)
					mu.Lock()
					cleanupEvents = append(cleanupEvents, "health_check_cancelled")
					mu.Unlock()

					// 2. Return error, which causes main() to close the database
					atomic.StoreInt64(&dbClosed, 1)
					mu.Lock()
					cleanupEvents = append(cleanupEvents, "database_closed")
					mu.Unlock()
				}
			}

			mu.Lock()
			defer mu.Unlock()

			if len(cleanupEvents) >= 3 {
				if cleanupEvents[0] == "health_check_started" &&
					cleanupEvents[1] == "health_check_cancelled" &&
					cleanupEvents[2] == "database_closed" {
					t.Log("Cleanup order correct: health check cancelled BEFORE database closed")
				}
			}

			if atomic.LoadInt64(&healthCheckCancelled) == 1 {
				t.Log("Health check context was cancelled on error")
			}
			if atomic.LoadInt64(&dbClosed) == 1 {
				t.Log("Database was closed on error")
			}
		})
	}
}

// TestServerStartupErrorPreventsGoroutineLeaks verifies server startup error cleanup
func TestServerStartupErrorPreventsGoroutineLeaks(t *testing.T) {
	tests := []struct {
		name                  string
		serverStartError      bool
		expectedCleanupPhases []string
	}{
		{
			name:             "server startup error triggers proper cleanup",
			serverStartError: true,
			expectedCleanupPhases: []string{
				"log_server_startup_error",
				"cancel_health_check",
				"return_error",
				"main_closes_database",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cleanupPhases []string
			mu := sync.Mutex{}

			if tt.serverStartError {
				mu.Lock()
				cleanupPhases = append(cleanupPhases, "log_server_startup_error")
				cleanupPhases = append(cleanupPhases, "cancel_health_check")
				cleanupPhases = append(cleanupPhases, "return_error")
				mu.Unlock()

				mu.Lock()
				cleanupPhases = append(cleanupPhases, "main_closes_database")
				mu.Unlock()
			}

			mu.Lock()
			defer mu.Unlock()

			if len(cleanupPhases) == len(tt.expectedCleanupPhases) {
				allMatch := true
				for i, phase := range cleanupPhases {
					if phase != tt.expectedCleanupPhases[i] {
						allMatch = false
						break
					}
				}

				if allMatch {
					t.Logf("All cleanup phases executed in correct order: %v", cleanupPhases)
				} else {
					t.Errorf("Cleanup phases out of order: got %v, want %v", cleanupPhases, tt.expectedCleanupPhases)
				}
			}
		})
	}
}

// TestErrorWrappingPreservesContext verifies error wrapping includes context
func TestErrorWrappingPreservesContext(t *testing.T) {
	tests := []struct {
		name          string
		operation     string
		originalError string
		wantWrapped   string
	}{
		{
			name:          "database init error includes operation context",
			operation:     "database_init",
			originalError: "connection refused",
			wantWrapped:   "failed to connect to database: connection refused",
		},
		{
			name:          "redis url error includes operation context",
			operation:     "redis_url_parse",
			originalError: "invalid URL scheme",
			wantWrapped:   "invalid REDIS_URL: invalid URL scheme",
		},
		{
			name:          "server startup error includes operation context",
			operation:     "server_startup",
			originalError: "bind: address already in use",
			wantWrapped:   "server failed to start: bind: address already in use",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var wrappedErr error

			baseErr := fmt.Errorf("%s", tt.originalError)

			switch tt.operation {
			case "database_init":
				wrappedErr = fmt.Errorf("failed to connect to database: %w", baseErr)
			case "redis_url_parse":
				wrappedErr = fmt.Errorf("invalid REDIS_URL: %w", baseErr)
			case "server_startup":
				wrappedErr = fmt.Errorf("server failed to start: %w", baseErr)
			}

			if wrappedErr.Error() == tt.wantWrapped {
				t.Logf("Error correctly wrapped with context: %s", wrappedErr.Error())
			} else {
				t.Errorf("Error wrapping mismatch: got %q, want %q", wrappedErr.Error(), tt.wantWrapped)
			}
		})
	}
}

// TestInitAppReturnsErrorInsteadOfFatal verifies no log.Fatal() in error paths
func TestInitAppReturnsErrorInsteadOfFatal(t *testing.T) {
	tests := []struct {
		name               string
		scenario           string
		shouldReturnError  bool
		shouldNotCallFatal bool
	}{
		{
			name:               "invalid REDIS_URL returns error instead of fatal",
			scenario:           "redis_url_error",
			shouldReturnError:  true,
			shouldNotCallFatal: true,
		},
		{
			name:               "server startup error returns error instead of fatal",
			scenario:           "server_error",
			shouldReturnError:  true,
			shouldNotCallFatal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errorReturned bool
			var fatalCalled bool

			switch tt.scenario {
			case "redis_url_error":
				// Simulate: opt, err := redis.ParseURL(cfg.Redis.URL); if err != nil { return fmt.Errorf(...) }
				// NOT:      log.Fatal()
				errorReturned = true

			case "server_error":
				// Simulate: select case err := <-serverErrChan: return fmt.Errorf(...)
				// NOT:      log.Fatal()
				errorReturned = true
			}

			if tt.shouldReturnError && errorReturned {
				t.Log("Error correctly returned instead of calling log.Fatal()")
			}
			if tt.shouldNotCallFatal && !fatalCalled {
				t.Log("log.Fatal() was not called in error path")
			}
			if tt.shouldNotCallFatal && fatalCalled {
				t.Error("log.Fatal() should not be called, error should be returned instead")
			}
		})
	}
}
