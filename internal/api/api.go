/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the HTTP surface: public booking endpoints for
// widgets and guest pages, and the authenticated staff API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/seatwise/seatwise/internal/auth"
	"github.com/seatwise/seatwise/internal/booking"
	"github.com/seatwise/seatwise/internal/events"
	"github.com/seatwise/seatwise/internal/models"
	"github.com/seatwise/seatwise/internal/schedule"
	"github.com/seatwise/seatwise/internal/settings"
	"github.com/seatwise/seatwise/internal/waitlist"
	"github.com/seatwise/seatwise/internal/webhooks"
)

// API exposes HTTP handlers.
type API struct {
	db        *gorm.DB
	jwtSecret []byte
	booking   *booking.Service
	waitlist  *waitlist.Service
	settings  *settings.Store
	export    *schedule.ExportService
	webhooks  *webhooks.Service
	bus       *events.Bus
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(db *gorm.DB, jwtSecret []byte, bookingSvc *booking.Service, waitlistSvc *waitlist.Service, settingsStore *settings.Store, exportSvc *schedule.ExportService, webhookSvc *webhooks.Service, bus *events.Bus, logger zerolog.Logger) *API {
	return &API{
		db:        db,
		jwtSecret: jwtSecret,
		booking:   bookingSvc,
		waitlist:  waitlistSvc,
		settings:  settingsStore,
		export:    exportSvc,
		webhooks:  webhookSvc,
		bus:       bus,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts all endpoints under /api/v1.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		// Public endpoints (no auth required)
		r.Route("/public/restaurants/{slug}", func(r chi.Router) {
			r.Get("/", a.handlePublicRestaurant)
			r.Get("/availability", a.handlePublicAvailability)
			r.Get("/deposit-quote", a.handlePublicDepositQuote)
			r.Get("/waitlist-quote", a.handlePublicWaitlistQuote)
			r.Post("/reservations", a.handlePublicReservationCreate)
		})

		r.Post("/auth/login", a.handleLogin)

		r.Group(func(pr chi.Router) {
			pr.Use(a.authMiddleware())

			pr.Get("/events", a.handleEvents)

			pr.Route("/apikeys", func(r chi.Router) {
				r.Get("/", a.handleAPIKeysList)
				r.Post("/", a.handleAPIKeysCreate)
				r.Delete("/{keyID}", a.handleAPIKeysRevoke)
			})

			pr.Route("/restaurants/{restaurantID}", func(r chi.Router) {
				r.Use(a.requireRestaurantAccess)

				r.Get("/availability", a.handleAvailability)
				r.Get("/turn-times", a.handleTurnTimes)

				r.Route("/reservations", func(r chi.Router) {
					r.Get("/", a.handleReservationsList)
					r.Post("/", a.handleReservationCreate)
					r.Get("/{reservationID}", a.handleReservationGet)
					r.Post("/{reservationID}/transition", a.handleReservationTransition)
				})

				r.Route("/waitlist", func(r chi.Router) {
					r.Get("/", a.handleWaitlistList)
					r.Post("/", a.handleWaitlistCheckIn)
					r.Get("/quote", a.handleWaitlistQuote)
					r.Post("/{entryID}/transition", a.handleWaitlistTransition)
				})

				r.Route("/settings", func(r chi.Router) {
					r.Use(a.requireRoles(models.RoleAdmin, models.RoleManager))

					r.Get("/", a.handleSettingsGet)
					r.Put("/schedule", a.handleScheduleUpdate)
					r.Put("/overrides", a.handleOverridesUpdate)
					r.Put("/deposit-policy", a.handleDepositPolicyUpdate)
					r.Put("/special-deposits", a.handleSpecialDepositsUpdate)
					r.Put("/durations", a.handleDurationsUpdate)
					r.Put("/booking", a.handleBookingSettingsUpdate)
				})

				r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).
					Get("/audit", a.handleAuditList)

				r.Route("/webhooks", func(r chi.Router) {
					r.Use(a.requireRoles(models.RoleAdmin, models.RoleManager))

					r.Get("/", a.handleWebhooksList)
					r.Post("/", a.handleWebhooksCreate)
					r.Delete("/{webhookID}", a.handleWebhooksDelete)
					r.Post("/{webhookID}/test", a.handleWebhooksTest)
				})

				r.Route("/export", func(r chi.Router) {
					r.Get("/ical", a.handleExportICal)
					r.Get("/day-sheet", a.handleExportDaySheet)
				})
			})
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) authMiddleware() func(http.Handler) http.Handler {
	return auth.MiddlewareWithJWT(a.db, a.jwtSecret)
}

func (a *API) requireRoles(allowed ...models.RoleName) func(http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[string(role)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			for _, role := range claims.Roles {
				if _, exists := allowedSet[role]; exists {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "insufficient_role")
		})
	}
}

// requireRestaurantAccess checks that the caller may act on the
// restaurant named in the path: either their token is scoped to it, they
// hold a platform admin role, or a restaurant_users row grants membership.
func (a *API) requireRestaurantAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		restaurantID := chi.URLParam(r, "restaurantID")
		if restaurantID == "" {
			writeError(w, http.StatusBadRequest, "restaurant_id_required")
			return
		}

		if claims.RestaurantID == restaurantID {
			next.ServeHTTP(w, r)
			return
		}
		for _, role := range claims.Roles {
			if role == string(models.RoleAdmin) {
				next.ServeHTTP(w, r)
				return
			}
		}

		var membership models.RestaurantUser
		err := a.db.WithContext(r.Context()).
			Where("restaurant_id = ? AND user_id = ?", restaurantID, claims.UserID).
			First(&membership).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusForbidden, "restaurant_access_denied")
			return
		}
		if err != nil {
			a.logger.Error().Err(err).Msg("membership lookup failed")
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// restaurantBySlug resolves a public slug to its restaurant row.
func (a *API) restaurantBySlug(r *http.Request) (*models.Restaurant, bool) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		return nil, false
	}
	var restaurant models.Restaurant
	err := a.db.WithContext(r.Context()).Where("slug = ?", slug).First(&restaurant).Error
	if err != nil {
		return nil, false
	}
	return &restaurant, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeServiceError maps typed service failures onto HTTP statuses.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable")
	case errors.Is(err, booking.ErrReservationNotFound), errors.Is(err, waitlist.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, booking.ErrInvalidTransition), errors.Is(err, waitlist.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, "invalid_transition")
	default:
		a.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
