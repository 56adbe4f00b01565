// Copyright 2026 The OpenFleet Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openfleet/openfleet/internal/accessgate"
	"github.com/openfleet/openfleet/internal/audit"
	"github.com/openfleet/openfleet/internal/authz"
	"github.com/openfleet/openfleet/internal/config"
	"github.com/openfleet/openfleet/internal/fleet"
	"github.com/openfleet/openfleet/internal/identity"
	"github.com/openfleet/openfleet/internal/observability/logger"
	"github.com/openfleet/openfleet/internal/observability/metrics"
	"github.com/openfleet/openfleet/internal/observability/tracing"
	"github.com/openfleet/openfleet/internal/session"
	"github.com/openfleet/openfleet/internal/store/postgres"
	"github.com/openfleet/openfleet/internal/tenant"
	transportHTTP "github.com/openfleet/openfleet/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting openfleet admin backend")

	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	// Initialize meter
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	}
	gateMetrics, err := metrics.NewGateMetrics(meter)
	if err != nil {
		slog.Error("failed to create gate metrics", logger.Error(err))
	}

	// Initialize database
	db, err := postgres.New(ctx, postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	tenantRepo := postgres.NewTenantRepository(db)
	membershipRepo := postgres.NewMembershipRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	vehicleRepo := postgres.NewVehicleRepository(db)
	garageRepo := postgres.NewGarageRepository(db)

	// Initialize helpers
	auditLogger := audit.NewSlogLogger()
	passwordHasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)
	resetTokens := identity.NewResetTokenIssuer(cfg.Security.ResetTokenSecret, cfg.Security.ResetTokenTTL)

	// Initialize services
	identityService := identity.NewService(
		userRepo,
		passwordHasher,
		auditLogger,
		cfg.Security.LockoutMaxAttempts,
		cfg.Security.LockoutDuration,
		resetTokens,
	)
	sessionService := session.NewService(sessionRepo, cfg.Session.Lifetime)
	resolver := tenant.NewResolver(
		tenantRepo,
		membershipRepo,
		cfg.Tenancy.HeaderName,
		cfg.Tenancy.QueryParam,
		cfg.Tenancy.ReservedSlugs,
	)
	evaluator := authz.NewEvaluator(membershipRepo)
	fleetService := fleet.NewService(vehicleRepo, garageRepo)

	gate := accessgate.New(
		sessionService,
		identityService,
		resolver,
		evaluator,
		auditLogger,
		gateMetrics,
		accessgate.Config{
			CookieName:      cfg.Session.CookieName,
			TokenQueryParam: cfg.Session.QueryParam,
		},
	)

	// Rate limiter
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	// Configure SameSite mode
	sameSite := http.SameSiteLaxMode
	switch cfg.Session.CookieSameSite {
	case "Strict":
		sameSite = http.SameSiteStrictMode
	case "None":
		sameSite = http.SameSiteNoneMode
	}

	// Initialize HTTP handler
	handler := transportHTTP.NewHandler(
		gate,
		identityService,
		sessionService,
		fleetService,
		resolver,
		evaluator,
		tenantRepo,
		membershipRepo,
		auditLogger,
		transportHTTP.SessionConfig{
			CookieName:     cfg.Session.CookieName,
			CookieDomain:   cfg.Session.CookieDomain,
			CookiePath:     cfg.Session.CookiePath,
			CookieSecure:   cfg.Session.CookieSecure,
			CookieHTTPOnly: cfg.Session.CookieHTTPOnly,
			CookieSameSite: sameSite,
			MaxAge:         int(cfg.Session.Lifetime.Seconds()),
		},
	)

	// Create router
	router := transportHTTP.NewRouter(handler, rateLimiter, cfg.Tenancy.APIPrefix)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start expired session sweep goroutine
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			n, err := sessionService.CleanupExpired(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "failed to cleanup expired sessions", logger.Error(err))
				continue
			}
			if n > 0 {
				slog.InfoContext(ctx, "deactivated expired sessions", "count", n)
			}
		}
	}()

	// Start server
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}
