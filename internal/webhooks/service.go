/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package webhooks delivers signed event notifications to external
// endpoints registered per restaurant.
package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/seatwise/seatwise/internal/events"
	"github.com/seatwise/seatwise/internal/models"
)

// Payload is the body sent to webhook endpoints.
type Payload struct {
	Event        string                `json:"event"`
	Timestamp    time.Time             `json:"timestamp"`
	RestaurantID string                `json:"restaurant_id"`
	Reservation  *ReservationPayload   `json:"reservation,omitempty"`
	Waitlist     *WaitlistEntryPayload `json:"waitlist_entry,omitempty"`
}

// ReservationPayload is the reservation projection sent to endpoints.
type ReservationPayload struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	EndTime    string `json:"end_time,omitempty"`
	PartySize  int    `json:"party_size"`
	Status     string `json:"status"`
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email,omitempty"`
	GuestPhone string `json:"guest_phone,omitempty"`
}

// WaitlistEntryPayload is the waitlist projection sent to endpoints.
type WaitlistEntryPayload struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	GuestName     string `json:"guest_name"`
	PartySize     int    `json:"party_size"`
	Status        string `json:"status"`
	Position      int    `json:"position"`
	QuotedMinutes int    `json:"quoted_minutes"`
}

// Service handles webhook delivery.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
	client *http.Client
}

// NewService creates a new webhook service.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "webhooks").Logger(),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Start begins listening for events to trigger webhooks.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info().Msg("webhook service starting")

	reservationCreated := s.bus.Subscribe(events.EventReservationCreated)
	reservationConfirmed := s.bus.Subscribe(events.EventReservationConfirmed)
	reservationCancelled := s.bus.Subscribe(events.EventReservationCancelled)
	reservationNoShow := s.bus.Subscribe(events.EventReservationNoShow)
	reservationSeated := s.bus.Subscribe(events.EventReservationSeated)
	waitlistNotified := s.bus.Subscribe(events.EventWaitlistNotified)

	defer func() {
		s.bus.Unsubscribe(events.EventReservationCreated, reservationCreated)
		s.bus.Unsubscribe(events.EventReservationConfirmed, reservationConfirmed)
		s.bus.Unsubscribe(events.EventReservationCancelled, reservationCancelled)
		s.bus.Unsubscribe(events.EventReservationNoShow, reservationNoShow)
		s.bus.Unsubscribe(events.EventReservationSeated, reservationSeated)
		s.bus.Unsubscribe(events.EventWaitlistNotified, waitlistNotified)
	}()

	s.logger.Info().Msg("webhook service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("webhook service stopping")
			return

		case payload := <-reservationCreated:
			s.handleReservationEvent(ctx, payload, string(events.EventReservationCreated))

		case payload := <-reservationConfirmed:
			s.handleReservationEvent(ctx, payload, string(events.EventReservationConfirmed))

		case payload := <-reservationCancelled:
			s.handleReservationEvent(ctx, payload, string(events.EventReservationCancelled))

		case payload := <-reservationNoShow:
			s.handleReservationEvent(ctx, payload, string(events.EventReservationNoShow))

		case payload := <-reservationSeated:
			s.handleReservationEvent(ctx, payload, string(events.EventReservationSeated))

		case payload := <-waitlistNotified:
			s.handleWaitlistEvent(ctx, payload, string(events.EventWaitlistNotified))
		}
	}
}

func (s *Service) handleReservationEvent(ctx context.Context, payload events.Payload, eventType string) {
	reservationID, _ := payload["reservation_id"].(string)
	if reservationID == "" {
		return
	}

	var res models.Reservation
	if err := s.db.WithContext(ctx).First(&res, "id = ?", reservationID).Error; err != nil {
		s.logger.Error().Err(err).Str("reservation", reservationID).Msg("failed to load reservation for webhook")
		return
	}

	body := Payload{
		Event:        eventType,
		Timestamp:    time.Now().UTC(),
		RestaurantID: res.RestaurantID,
		Reservation: &ReservationPayload{
			ID:         res.ID,
			Date:       res.Date,
			Time:       res.Time,
			EndTime:    res.EndTime,
			PartySize:  res.PartySize,
			Status:     string(res.Status),
			GuestName:  res.GuestName,
			GuestEmail: res.GuestEmail,
			GuestPhone: res.GuestPhone,
		},
	}
	s.fire(ctx, res.RestaurantID, eventType, body)
}

func (s *Service) handleWaitlistEvent(ctx context.Context, payload events.Payload, eventType string) {
	entryID, _ := payload["entry_id"].(string)
	if entryID == "" {
		return
	}

	var entry models.WaitlistEntry
	if err := s.db.WithContext(ctx).First(&entry, "id = ?", entryID).Error; err != nil {
		s.logger.Error().Err(err).Str("entry", entryID).Msg("failed to load waitlist entry for webhook")
		return
	}

	body := Payload{
		Event:        eventType,
		Timestamp:    time.Now().UTC(),
		RestaurantID: entry.RestaurantID,
		Waitlist: &WaitlistEntryPayload{
			ID:            entry.ID,
			Date:          entry.Date,
			GuestName:     entry.GuestName,
			PartySize:     entry.PartySize,
			Status:        string(entry.Status),
			Position:      entry.Position,
			QuotedMinutes: entry.QuotedMinutes,
		},
	}
	s.fire(ctx, entry.RestaurantID, eventType, body)
}

// fire sends the payload to every matching target for the restaurant.
func (s *Service) fire(ctx context.Context, restaurantID, eventType string, payload Payload) {
	var targets []models.WebhookTarget
	if err := s.db.WithContext(ctx).
		Where("restaurant_id = ? AND active = ?", restaurantID, true).
		Find(&targets).Error; err != nil {
		s.logger.Error().Err(err).Str("restaurant", restaurantID).Msg("failed to fetch webhook targets")
		return
	}

	for _, target := range targets {
		if !s.targetHandlesEvent(target, eventType) {
			continue
		}
		go s.send(ctx, target, eventType, payload)
	}
}

// targetHandlesEvent checks if a target is subscribed to an event type.
func (s *Service) targetHandlesEvent(target models.WebhookTarget, eventType string) bool {
	if target.Events == "" {
		return true
	}
	for _, e := range strings.Split(target.Events, ",") {
		if strings.TrimSpace(e) == eventType {
			return true
		}
	}
	return false
}

// send delivers a single webhook request and logs the attempt.
func (s *Service) send(ctx context.Context, target models.WebhookTarget, eventType string, payload Payload) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("webhook", target.ID).Msg("failed to marshal webhook payload")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(body))
	if err != nil {
		s.logger.Error().Err(err).Str("webhook", target.ID).Msg("failed to create webhook request")
		s.logDelivery(target, eventType, 0, err.Error())
		return
	}
	s.setHeaders(req, eventType, body, target.Secret)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error().Err(err).Str("webhook", target.ID).Str("url", target.URL).Msg("webhook delivery failed")
		s.logDelivery(target, eventType, 0, err.Error())
		return
	}
	defer resp.Body.Close()

	s.logDelivery(target, eventType, resp.StatusCode, "")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		s.logger.Debug().Str("webhook", target.ID).Str("event", eventType).Int("status", resp.StatusCode).Msg("webhook delivered")
	} else {
		s.logger.Warn().Str("webhook", target.ID).Str("event", eventType).Int("status", resp.StatusCode).Msg("webhook returned error status")
	}
}

func (s *Service) setHeaders(req *http.Request, eventType string, body []byte, secret string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Seatwise-Webhook/1.0")
	req.Header.Set("X-Seatwise-Event", eventType)
	req.Header.Set("X-Seatwise-Timestamp", fmt.Sprintf("%d", time.Now().Unix()))

	if secret != "" {
		req.Header.Set("X-Seatwise-Signature", s.signPayload(body, secret))
	}
}

// signPayload creates an HMAC-SHA256 signature.
func (s *Service) signPayload(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

// logDelivery records a webhook delivery attempt.
func (s *Service) logDelivery(target models.WebhookTarget, eventType string, statusCode int, errorMsg string) {
	log := &models.WebhookLog{
		ID:         uuid.NewString(),
		TargetID:   target.ID,
		Event:      eventType,
		StatusCode: statusCode,
		Error:      errorMsg,
	}
	if err := s.db.Create(log).Error; err != nil {
		s.logger.Error().Err(err).Msg("failed to log webhook delivery")
	}
}

// TestDelivery sends a synthetic payload to a target so staff can verify
// the endpoint before enabling it.
func (s *Service) TestDelivery(ctx context.Context, target *models.WebhookTarget) error {
	payload := Payload{
		Event:        "test",
		Timestamp:    time.Now().UTC(),
		RestaurantID: target.RestaurantID,
		Reservation: &ReservationPayload{
			ID:        "test-reservation-id",
			Date:      time.Now().Format("2006-01-02"),
			Time:      "19:00",
			PartySize: 2,
			Status:    "pending",
			GuestName: "Test Guest",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(req, "test", body, target.Secret)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
