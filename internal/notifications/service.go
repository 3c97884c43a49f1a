/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package notifications delivers guest-facing messages (booking
// confirmations, cancellation notices, waitlist table-ready texts)
// driven by bus events, and records every attempt.
package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/seatwise/seatwise/internal/events"
	"github.com/seatwise/seatwise/internal/models"
)

// Config holds notification service configuration.
type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
}

// ConfigFromEnv loads configuration from environment variables.
func ConfigFromEnv() Config {
	port, _ := strconv.Atoi(getEnv("SEATWISE_SMTP_PORT", "587"))

	return Config{
		SMTPHost:     getEnv("SEATWISE_SMTP_HOST", ""),
		SMTPPort:     port,
		SMTPUsername: getEnv("SEATWISE_SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SEATWISE_SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SEATWISE_SMTP_FROM", "noreply@example.com"),
		SMTPFromName: getEnv("SEATWISE_SMTP_FROM_NAME", "Seatwise"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SMSSender sends one text message. Wire an actual gateway here; the
// default logs and reports the message as sent so waitlist flows keep
// working in development.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type logSMS struct {
	logger zerolog.Logger
}

func (l logSMS) SendSMS(_ context.Context, to, body string) error {
	l.logger.Info().Str("to", to).Str("body", body).Msg("sms (log only)")
	return nil
}

// Service handles guest notification delivery.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	config Config
	sms    SMSSender
	logger zerolog.Logger

	mu      sync.RWMutex
	running bool
}

// NewService creates a new notification service. sms may be nil.
func NewService(db *gorm.DB, bus *events.Bus, config Config, sms SMSSender, logger zerolog.Logger) *Service {
	l := logger.With().Str("component", "notifications").Logger()
	if sms == nil {
		sms = logSMS{logger: l}
	}
	return &Service{
		db:     db,
		bus:    bus,
		config: config,
		sms:    sms,
		logger: l,
	}
}

// Start subscribes to booking and waitlist events and delivers guest
// messages until the context is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info().Msg("notification service starting")

	created := s.bus.Subscribe(events.EventReservationCreated)
	confirmed := s.bus.Subscribe(events.EventReservationConfirmed)
	cancelled := s.bus.Subscribe(events.EventReservationCancelled)
	declined := s.bus.Subscribe(events.EventReservationDeclined)
	tableReady := s.bus.Subscribe(events.EventWaitlistNotified)

	defer func() {
		s.bus.Unsubscribe(events.EventReservationCreated, created)
		s.bus.Unsubscribe(events.EventReservationConfirmed, confirmed)
		s.bus.Unsubscribe(events.EventReservationCancelled, cancelled)
		s.bus.Unsubscribe(events.EventReservationDeclined, declined)
		s.bus.Unsubscribe(events.EventWaitlistNotified, tableReady)
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("notification service stopping")
			return

		case payload := <-created:
			s.handleReservationEvent(ctx, payload, "Reservation received",
				"We have received your reservation request for %s at %s. We will confirm shortly.")

		case payload := <-confirmed:
			s.handleReservationEvent(ctx, payload, "Reservation confirmed",
				"Your reservation for %s at %s is confirmed. See you then!")

		case payload := <-cancelled:
			s.handleReservationEvent(ctx, payload, "Reservation cancelled",
				"Your reservation for %s at %s has been cancelled.")

		case payload := <-declined:
			s.handleReservationEvent(ctx, payload, "Reservation declined",
				"Unfortunately we could not accommodate your reservation for %s at %s.")

		case payload := <-tableReady:
			s.handleTableReady(ctx, payload)
		}
	}
}

// handleReservationEvent loads the reservation named in the payload and
// emails the guest.
func (s *Service) handleReservationEvent(ctx context.Context, payload events.Payload, subject, bodyFormat string) {
	reservationID, _ := payload["reservation_id"].(string)
	if reservationID == "" {
		return
	}

	var res models.Reservation
	if err := s.db.WithContext(ctx).First(&res, "id = ?", reservationID).Error; err != nil {
		s.logger.Error().Err(err).Str("reservation_id", reservationID).Msg("reservation lookup failed")
		return
	}
	if res.GuestEmail == "" {
		return
	}

	body := fmt.Sprintf(bodyFormat, res.Date, res.Time)
	if res.DepositRequired && res.Status == models.ReservationPending {
		body += fmt.Sprintf("\n\nA deposit of %.2f applies to this booking.", float64(res.DepositAmountCents)/100)
	}

	notification := &models.Notification{
		ID:            uuid.NewString(),
		RestaurantID:  res.RestaurantID,
		Channel:       models.NotificationChannelEmail,
		Recipient:     res.GuestEmail,
		Subject:       subject,
		Body:          body,
		Status:        models.NotificationStatusPending,
		ReferenceType: "reservation",
		ReferenceID:   res.ID,
		CreatedAt:     time.Now(),
	}

	s.Send(ctx, notification)
}

// handleTableReady texts a waitlisted guest that their table is ready.
func (s *Service) handleTableReady(ctx context.Context, payload events.Payload) {
	entryID, _ := payload["entry_id"].(string)
	if entryID == "" {
		return
	}

	var entry models.WaitlistEntry
	if err := s.db.WithContext(ctx).First(&entry, "id = ?", entryID).Error; err != nil {
		s.logger.Error().Err(err).Str("entry_id", entryID).Msg("waitlist lookup failed")
		return
	}
	if entry.GuestPhone == "" {
		return
	}

	notification := &models.Notification{
		ID:            uuid.NewString(),
		RestaurantID:  entry.RestaurantID,
		Channel:       models.NotificationChannelSMS,
		Recipient:     entry.GuestPhone,
		Subject:       "Table ready",
		Body:          fmt.Sprintf("Hi %s, your table for %d is ready. Please see the host.", entry.GuestName, entry.PartySize),
		Status:        models.NotificationStatusPending,
		ReferenceType: "waitlist_entry",
		ReferenceID:   entry.ID,
		CreatedAt:     time.Now(),
	}

	s.Send(ctx, notification)
}

// Send delivers a notification via its channel and records the outcome.
func (s *Service) Send(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		s.logger.Error().Err(err).Str("id", notification.ID).Msg("failed to save notification")
		return err
	}

	var err error
	switch notification.Channel {
	case models.NotificationChannelEmail:
		err = s.sendEmail(notification)
	case models.NotificationChannelSMS:
		err = s.sms.SendSMS(ctx, notification.Recipient, notification.Body)
		if err == nil {
			notification.Status = models.NotificationStatusSent
			now := time.Now()
			notification.SentAt = &now
		}
	default:
		err = fmt.Errorf("unknown notification channel: %s", notification.Channel)
	}

	if err != nil {
		notification.Status = models.NotificationStatusFailed
		notification.Error = err.Error()
		s.logger.Error().Err(err).
			Str("id", notification.ID).
			Str("channel", string(notification.Channel)).
			Msg("failed to send notification")
	}

	s.db.WithContext(ctx).Model(notification).Updates(map[string]any{
		"status":  notification.Status,
		"sent_at": notification.SentAt,
		"error":   notification.Error,
	})

	return err
}

// sendEmail sends an email notification over SMTP.
func (s *Service) sendEmail(notification *models.Notification) error {
	if s.config.SMTPHost == "" {
		return fmt.Errorf("SMTP not configured")
	}
	if notification.Recipient == "" {
		return fmt.Errorf("notification has no recipient")
	}

	from := s.config.SMTPFrom
	if s.config.SMTPFromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.SMTPFromName, s.config.SMTPFrom)
	}

	msg := strings.Builder{}
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", notification.Recipient))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", notification.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(notification.Body)

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	var auth smtp.Auth
	if s.config.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, s.config.SMTPFrom, []string{notification.Recipient}, []byte(msg.String())); err != nil {
		return fmt.Errorf("SMTP send failed: %w", err)
	}

	notification.Status = models.NotificationStatusSent
	now := time.Now()
	notification.SentAt = &now

	s.logger.Info().
		Str("id", notification.ID).
		Str("to", notification.Recipient).
		Str("subject", notification.Subject).
		Msg("email notification sent")

	return nil
}

// History returns the delivery log for one restaurant, newest first.
func (s *Service) History(ctx context.Context, restaurantID string, limit, offset int) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("restaurant_id = ?", restaurantID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&notifications).Error; err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}
