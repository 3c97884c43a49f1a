/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/seatwise/seatwise/internal/events"
	"github.com/seatwise/seatwise/internal/models"
)

// Service handles audit logging by subscribing to events and storing audit entries.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates a new audit service.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Start subscribes to relevant events and logs them as audit entries.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info().Msg("audit service starting")

	// Reservation lifecycle
	reservationCreated := s.bus.Subscribe(events.EventReservationCreated)
	reservationConfirmed := s.bus.Subscribe(events.EventReservationConfirmed)
	reservationSeated := s.bus.Subscribe(events.EventReservationSeated)
	reservationCompleted := s.bus.Subscribe(events.EventReservationCompleted)
	reservationCancelled := s.bus.Subscribe(events.EventReservationCancelled)
	reservationNoShow := s.bus.Subscribe(events.EventReservationNoShow)
	reservationDeclined := s.bus.Subscribe(events.EventReservationDeclined)

	// Waitlist lifecycle
	waitlistCheckIn := s.bus.Subscribe(events.EventWaitlistCheckIn)
	waitlistNotified := s.bus.Subscribe(events.EventWaitlistNotified)
	waitlistSeated := s.bus.Subscribe(events.EventWaitlistSeated)
	waitlistLeft := s.bus.Subscribe(events.EventWaitlistLeft)

	// Audit-specific events published by the API layer with user context
	apiKeyCreate := s.bus.Subscribe(events.EventAuditAPIKeyCreate)
	apiKeyRevoke := s.bus.Subscribe(events.EventAuditAPIKeyRevoke)
	settingsUpdate := s.bus.Subscribe(events.EventAuditSettingsUpdate)

	defer func() {
		s.bus.Unsubscribe(events.EventReservationCreated, reservationCreated)
		s.bus.Unsubscribe(events.EventReservationConfirmed, reservationConfirmed)
		s.bus.Unsubscribe(events.EventReservationSeated, reservationSeated)
		s.bus.Unsubscribe(events.EventReservationCompleted, reservationCompleted)
		s.bus.Unsubscribe(events.EventReservationCancelled, reservationCancelled)
		s.bus.Unsubscribe(events.EventReservationNoShow, reservationNoShow)
		s.bus.Unsubscribe(events.EventReservationDeclined, reservationDeclined)
		s.bus.Unsubscribe(events.EventWaitlistCheckIn, waitlistCheckIn)
		s.bus.Unsubscribe(events.EventWaitlistNotified, waitlistNotified)
		s.bus.Unsubscribe(events.EventWaitlistSeated, waitlistSeated)
		s.bus.Unsubscribe(events.EventWaitlistLeft, waitlistLeft)
		s.bus.Unsubscribe(events.EventAuditAPIKeyCreate, apiKeyCreate)
		s.bus.Unsubscribe(events.EventAuditAPIKeyRevoke, apiKeyRevoke)
		s.bus.Unsubscribe(events.EventAuditSettingsUpdate, settingsUpdate)
	}()

	s.logger.Info().Msg("audit service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("audit service stopping")
			return

		case payload := <-reservationCreated:
			s.logAuditEntry(ctx, models.AuditActionReservationCreate, payload)

		case payload := <-reservationConfirmed:
			s.logAuditEntry(ctx, models.AuditActionReservationTransition, payload)

		case payload := <-reservationSeated:
			s.logAuditEntry(ctx, models.AuditActionReservationTransition, payload)

		case payload := <-reservationCompleted:
			s.logAuditEntry(ctx, models.AuditActionReservationTransition, payload)

		case payload := <-reservationCancelled:
			s.logAuditEntry(ctx, models.AuditActionReservationTransition, payload)

		case payload := <-reservationNoShow:
			s.logAuditEntry(ctx, models.AuditActionReservationTransition, payload)

		case payload := <-reservationDeclined:
			s.logAuditEntry(ctx, models.AuditActionReservationTransition, payload)

		case payload := <-waitlistCheckIn:
			s.logAuditEntry(ctx, models.AuditActionWaitlistCheckIn, payload)

		case payload := <-waitlistNotified:
			s.logAuditEntry(ctx, models.AuditActionWaitlistTransition, payload)

		case payload := <-waitlistSeated:
			s.logAuditEntry(ctx, models.AuditActionWaitlistTransition, payload)

		case payload := <-waitlistLeft:
			s.logAuditEntry(ctx, models.AuditActionWaitlistTransition, payload)

		case payload := <-apiKeyCreate:
			s.logAuditEntry(ctx, models.AuditActionAPIKeyCreate, payload)

		case payload := <-apiKeyRevoke:
			s.logAuditEntry(ctx, models.AuditActionAPIKeyRevoke, payload)

		case payload := <-settingsUpdate:
			s.logAuditEntry(ctx, models.AuditActionSettingsUpdate, payload)
		}
	}
}

// logAuditEntry creates an audit log entry from an event payload.
func (s *Service) logAuditEntry(ctx context.Context, action models.AuditAction, payload events.Payload) {
	entry := &models.AuditLog{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Action:    action,
		Details:   make(map[string]any),
		CreatedAt: time.Now(),
	}

	if userID, ok := payload["user_id"].(string); ok && userID != "" {
		entry.UserID = &userID
	}
	if userEmail, ok := payload["user_email"].(string); ok {
		entry.UserEmail = userEmail
	}
	if restaurantID, ok := payload["restaurant_id"].(string); ok && restaurantID != "" {
		entry.RestaurantID = &restaurantID
	}
	if resourceType, ok := payload["resource_type"].(string); ok {
		entry.ResourceType = resourceType
	}
	if resourceID, ok := payload["resource_id"].(string); ok {
		entry.ResourceID = resourceID
	}
	if ipAddress, ok := payload["ip_address"].(string); ok {
		entry.IPAddress = ipAddress
	}
	if userAgent, ok := payload["user_agent"].(string); ok {
		entry.UserAgent = userAgent
	}

	// Reservation and waitlist events identify the resource by domain keys.
	if entry.ResourceID == "" {
		if id, ok := payload["reservation_id"].(string); ok {
			entry.ResourceType = "reservation"
			entry.ResourceID = id
		} else if id, ok := payload["entry_id"].(string); ok {
			entry.ResourceType = "waitlist_entry"
			entry.ResourceID = id
		}
	}

	for k, v := range payload {
		switch k {
		case "user_id", "user_email", "restaurant_id", "resource_type", "resource_id", "ip_address", "user_agent":
			// Already extracted
		default:
			entry.Details[k] = v
		}
	}

	if err := s.Log(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("action", string(action)).
			Msg("failed to log audit entry")
	}
}

// Log records an audit entry directly (for non-event-bus actions).
func (s *Service) Log(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Details == nil {
		entry.Details = make(map[string]any)
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}

	s.logger.Debug().
		Str("action", string(entry.Action)).
		Str("id", entry.ID).
		Msg("audit entry logged")

	return nil
}

// QueryFilters defines filters for querying audit logs.
type QueryFilters struct {
	UserID       *string
	RestaurantID *string
	Action       *models.AuditAction
	StartTime    *time.Time
	EndTime      *time.Time
	Limit        int
	Offset       int
}

// Query retrieves audit logs with filters.
func (s *Service) Query(ctx context.Context, filters QueryFilters) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.RestaurantID != nil {
		query = query.Where("restaurant_id = ?", *filters.RestaurantID)
	}
	if filters.Action != nil {
		query = query.Where("action = ?", *filters.Action)
	}
	if filters.StartTime != nil {
		query = query.Where("timestamp >= ?", *filters.StartTime)
	}
	if filters.EndTime != nil {
		query = query.Where("timestamp <= ?", *filters.EndTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	} else {
		query = query.Limit(100)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("timestamp DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
