/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires configuration, storage, services and the HTTP
// surface into one runnable unit.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"

	"github.com/seatwise/seatwise/internal/api"
	"github.com/seatwise/seatwise/internal/audit"
	"github.com/seatwise/seatwise/internal/booking"
	"github.com/seatwise/seatwise/internal/cache"
	"github.com/seatwise/seatwise/internal/config"
	"github.com/seatwise/seatwise/internal/db"
	"github.com/seatwise/seatwise/internal/eventbus"
	"github.com/seatwise/seatwise/internal/events"
	"github.com/seatwise/seatwise/internal/notifications"
	"github.com/seatwise/seatwise/internal/payments"
	"github.com/seatwise/seatwise/internal/schedule"
	"github.com/seatwise/seatwise/internal/settings"
	"github.com/seatwise/seatwise/internal/telemetry"
	"github.com/seatwise/seatwise/internal/waitlist"
	"github.com/seatwise/seatwise/internal/webhooks"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db              *gorm.DB
	cache           *cache.Cache
	bus             *events.Bus
	settings        *settings.Store
	booking         *booking.Service
	waitlist        *waitlist.Service
	export          *schedule.ExportService
	notificationSvc *notifications.Service
	auditSvc        *audit.Service
	webhookSvc      *webhooks.Service
	bridge          *eventbus.RedisBridge
	api             *api.API

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(srv.router, "seatwise-api"),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		// The events WebSocket holds its connection open; handlers manage
		// their own write deadlines.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return srv, nil
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := db.RegisterCallbacks(database); err != nil {
		return fmt.Errorf("register db callbacks: %w", err)
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	s.cache = cache.New(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, s.logger)
	if s.cache != nil {
		s.DeferClose(s.cache.Close)
	}

	s.settings = settings.NewStore(s.db, s.cache, s.bus,
		s.cfg.DefaultSlotIntervalMinutes, s.cfg.DefaultSeatingBufferMins, s.logger)

	var processor payments.Processor = payments.NoopProcessor{}
	if s.cfg.StripeSecretKey != "" {
		processor = payments.NewStripeProcessor(s.cfg.StripeSecretKey, s.logger)
	}

	s.booking = booking.NewService(s.db, s.settings, processor, s.bus, s.logger)
	s.waitlist = waitlist.NewService(s.db, s.bus, s.logger)
	s.export = schedule.NewExportService(s.db, s.logger)
	s.notificationSvc = notifications.NewService(s.db, s.bus, notifications.ConfigFromEnv(), nil, s.logger)
	s.auditSvc = audit.NewService(s.db, s.bus, s.logger)
	s.webhookSvc = webhooks.NewService(s.db, s.bus, s.logger)

	if s.cfg.RedisAddr != "" {
		bridgeCfg := eventbus.DefaultRedisConfig()
		bridgeCfg.Addr = s.cfg.RedisAddr
		bridgeCfg.Password = s.cfg.RedisPassword
		bridgeCfg.DB = s.cfg.RedisDB
		s.bridge = eventbus.NewRedisBridge(bridgeCfg, uuid.NewString(), s.bus, s.logger)
		s.DeferClose(s.bridge.Close)
	}

	s.api = api.New(s.db, []byte(s.cfg.JWTSigningKey),
		s.booking, s.waitlist, s.settings, s.export, s.webhookSvc, s.bus, s.logger)

	return nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.api.Routes(s.router)
}

// HTTPServer exposes the configured HTTP server for the caller to run.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// MetricsServer returns a server exposing /metrics on the metrics bind.
func (s *Server) MetricsServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	return &http.Server{
		Addr:              s.cfg.MetricsBind,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// DB exposes the database handle for migrations and seeding commands.
func (s *Server) DB() *gorm.DB {
	return s.db
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.notificationSvc.Start(ctx)
	}()

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.auditSvc.Start(ctx)
	}()

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.webhookSvc.Start(ctx)
	}()

	if s.bridge != nil {
		s.bridge.Start(ctx)
	}

	if s.cache != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.runCacheInvalidationListener(ctx)
		}()
	}
}

// runCacheInvalidationListener drops cached restaurant state when other
// components publish update events. Settings saves already invalidate
// their own key; this covers cross-component publishes.
func (s *Server) runCacheInvalidationListener(ctx context.Context) {
	settingsUpdated := s.bus.Subscribe(events.EventSettingsUpdated)
	restaurantUpdated := s.bus.Subscribe(events.EventRestaurantUpdated)

	defer func() {
		s.bus.Unsubscribe(events.EventSettingsUpdated, settingsUpdated)
		s.bus.Unsubscribe(events.EventRestaurantUpdated, restaurantUpdated)
	}()

	s.logger.Info().Msg("cache invalidation listener started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("cache invalidation listener stopped")
			return

		case payload := <-settingsUpdated:
			if restaurantID, ok := payload["restaurant_id"].(string); ok {
				s.cache.Delete(ctx, cache.KeySettings+restaurantID)
			}

		case payload := <-restaurantUpdated:
			if restaurantID, ok := payload["restaurant_id"].(string); ok {
				s.cache.Delete(ctx, cache.KeyRestaurant+restaurantID, cache.KeySettings+restaurantID)
			}
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
