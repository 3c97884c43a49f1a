/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package booking orchestrates availability queries and the reservation
// lifecycle: settings, schedule resolution, slot generation, deposit
// gating and the capacity-checked write path.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/seatwise/seatwise/internal/deposit"
	"github.com/seatwise/seatwise/internal/events"
	"github.com/seatwise/seatwise/internal/models"
	"github.com/seatwise/seatwise/internal/payments"
	"github.com/seatwise/seatwise/internal/schedule"
	"github.com/seatwise/seatwise/internal/settings"
	"github.com/seatwise/seatwise/internal/slots"
	"github.com/seatwise/seatwise/internal/telemetry"
	"github.com/seatwise/seatwise/internal/turntime"
)

// ErrSlotUnavailable is returned when the requested slot no longer fits
// under the day's max covers, including when another booking wins the
// race between the availability read and the insert.
var ErrSlotUnavailable = errors.New("slot unavailable")

// ErrReservationNotFound is returned for operations on unknown reservations.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrInvalidTransition is returned when the requested status change is
// not part of the reservation lifecycle.
var ErrInvalidTransition = errors.New("invalid reservation transition")

// ErrValidation wraps rejected request input.
var ErrValidation = errors.New("invalid booking request")

// DayAvailability is the full availability answer for one date and party.
type DayAvailability struct {
	Date     string             `json:"date"`
	Schedule schedule.Effective `json:"schedule"`
	Slots    []slots.Slot       `json:"slots"`
	Deposit  deposit.Resolution `json:"deposit"`
}

// Service owns reservation reads and writes for all tenants.
type Service struct {
	db        *gorm.DB
	settings  *settings.Store
	processor payments.Processor
	bus       *events.Bus
	logger    zerolog.Logger
}

// NewService constructs the booking service.
func NewService(db *gorm.DB, store *settings.Store, processor payments.Processor, bus *events.Bus, logger zerolog.Logger) *Service {
	if processor == nil {
		processor = payments.NoopProcessor{}
	}
	return &Service{
		db:        db,
		settings:  store,
		processor: processor,
		bus:       bus,
		logger:    logger.With().Str("component", "booking").Logger(),
	}
}

// Availability resolves the schedule for date, loads the day's capacity
// footprints and generates the slot grid for partySize. excludeID, when
// set, removes that reservation's own footprint so a guest can move
// their booking to an adjacent slot.
func (s *Service) Availability(ctx context.Context, restaurantID, date string, partySize int, excludeID string) (*DayAvailability, error) {
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	if partySize < 1 {
		return nil, fmt.Errorf("%w: party size must be at least 1", ErrValidation)
	}

	bundle, err := s.settings.Load(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	eff := schedule.Resolve(bundle.WeeklySchedule, bundle.OverrideFor(date), day)

	footprints, err := s.footprints(ctx, restaurantID, date)
	if err != nil {
		return nil, err
	}

	telemetry.AvailabilityQueriesTotal.Inc()

	return &DayAvailability{
		Date:     date,
		Schedule: eff,
		Slots: slots.Generate(slots.Params{
			PartySize:             partySize,
			Schedule:              eff,
			Durations:             bundle.Durations,
			SlotIntervalMinutes:   bundle.Booking.SlotIntervalMinutes,
			LastSeatingBufferMins: bundle.Booking.LastSeatingBufferMinutes,
			Footprints:            footprints,
			ExcludeReservationID:  excludeID,
		}),
		Deposit: deposit.Resolve(bundle.DepositPolicy, bundle.SpecialRuleFor(date), partySize),
	}, nil
}

// QuoteDeposit resolves the deposit decision for one date and party size
// without generating slots.
func (s *Service) QuoteDeposit(ctx context.Context, restaurantID, date string, partySize int) (deposit.Resolution, error) {
	if _, err := parseDate(date); err != nil {
		return deposit.Resolution{}, err
	}
	bundle, err := s.settings.Load(ctx, restaurantID)
	if err != nil {
		return deposit.Resolution{}, err
	}
	return deposit.Resolve(bundle.DepositPolicy, bundle.SpecialRuleFor(date), partySize), nil
}

// CreateInput is a reservation request.
type CreateInput struct {
	RestaurantID string
	Date         string
	Time         string
	PartySize    int
	GuestName    string
	GuestEmail   string
	GuestPhone   string
	Notes        string
}

// Create books a reservation. The capacity check from the availability
// read is repeated inside the insert transaction: two requests for the
// last covers of a slot can both see it available, but only one commit
// wins. The loser gets ErrSlotUnavailable.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Reservation, error) {
	day, err := parseDate(in.Date)
	if err != nil {
		return nil, err
	}
	startMin, ok := slots.ParseClock(in.Time)
	if !ok {
		return nil, fmt.Errorf("%w: time must be HH:MM", ErrValidation)
	}
	if in.PartySize < 1 {
		return nil, fmt.Errorf("%w: party size must be at least 1", ErrValidation)
	}
	if in.GuestName == "" {
		return nil, fmt.Errorf("%w: guest name is required", ErrValidation)
	}

	bundle, err := s.settings.Load(ctx, in.RestaurantID)
	if err != nil {
		return nil, err
	}

	eff := schedule.Resolve(bundle.WeeklySchedule, bundle.OverrideFor(in.Date), day)
	if eff.Closed {
		return nil, fmt.Errorf("%w: restaurant is closed on %s", ErrSlotUnavailable, in.Date)
	}

	duration := slots.DurationFor(bundle.Durations, in.PartySize)
	endMin := startMin + duration

	if !withinSeatingWindow(eff, startMin, bundle.Booking.LastSeatingBufferMinutes) {
		return nil, fmt.Errorf("%w: %s is outside seating hours", ErrSlotUnavailable, in.Time)
	}

	dep := deposit.Resolve(bundle.DepositPolicy, bundle.SpecialRuleFor(in.Date), in.PartySize)

	res := &models.Reservation{
		ID:           uuid.NewString(),
		RestaurantID: in.RestaurantID,
		Date:         in.Date,
		Time:         in.Time,
		EndTime:      slots.FormatClock(endMin),
		PartySize:    in.PartySize,
		Status:       models.ReservationPending,
		GuestName:    in.GuestName,
		GuestEmail:   in.GuestEmail,
		GuestPhone:   in.GuestPhone,
		Notes:        in.Notes,

		DepositRequired:    dep.Required,
		DepositAmountCents: 0,
	}
	if dep.Required {
		res.DepositAmountCents = dep.AmountCents
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		footprints, err := footprintsIn(tx, in.RestaurantID, in.Date)
		if err != nil {
			return err
		}
		if !fits(footprints, startMin, endMin, in.PartySize, eff.MaxCovers) {
			return ErrSlotUnavailable
		}
		return tx.Create(res).Error
	})
	if err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			telemetry.BookingConflictsTotal.Inc()
		}
		return nil, err
	}

	if dep.Required {
		hold, err := s.processor.PlaceHold(ctx, payments.HoldRequest{
			ReservationID: res.ID,
			RestaurantID:  res.RestaurantID,
			AmountCents:   dep.AmountCents,
			Currency:      s.depositCurrency(ctx, in.RestaurantID),
			GuestEmail:    res.GuestEmail,
			Description:   fmt.Sprintf("Deposit for %s on %s %s", res.GuestName, res.Date, res.Time),
		})
		if err != nil {
			// The booking stands; the deposit is collected manually.
			s.logger.Error().Err(err).Str("reservation_id", res.ID).Msg("deposit hold failed")
		} else {
			res.DepositPaymentRef = hold.Reference
			if err := s.db.WithContext(ctx).Model(res).Update("deposit_payment_ref", hold.Reference).Error; err != nil {
				s.logger.Error().Err(err).Str("reservation_id", res.ID).Msg("failed to record deposit reference")
			}
		}
	}

	telemetry.BookingsCreatedTotal.Inc()
	s.bus.Publish(events.EventReservationCreated, events.Payload{
		"reservation_id": res.ID,
		"restaurant_id":  res.RestaurantID,
		"date":           res.Date,
		"time":           res.Time,
		"party_size":     res.PartySize,
	})
	s.logger.Info().
		Str("reservation_id", res.ID).
		Str("restaurant_id", res.RestaurantID).
		Str("date", res.Date).
		Str("time", res.Time).
		Int("party_size", res.PartySize).
		Bool("deposit_required", res.DepositRequired).
		Msg("reservation created")

	return res, nil
}

// Get fetches one reservation scoped to a restaurant.
func (s *Service) Get(ctx context.Context, restaurantID, reservationID string) (*models.Reservation, error) {
	var res models.Reservation
	err := s.db.WithContext(ctx).
		Where("restaurant_id = ? AND id = ?", restaurantID, reservationID).
		First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListDay returns all reservations for one date ordered by start time.
func (s *Service) ListDay(ctx context.Context, restaurantID, date string) ([]models.Reservation, error) {
	if _, err := parseDate(date); err != nil {
		return nil, err
	}
	var out []models.Reservation
	err := s.db.WithContext(ctx).
		Where("restaurant_id = ? AND date = ?", restaurantID, date).
		Order("time asc, created_at asc").
		Find(&out).Error
	return out, err
}

// lifecycle maps each status to the statuses it may move to.
var lifecycle = map[models.ReservationStatus][]models.ReservationStatus{
	models.ReservationPending:   {models.ReservationApproved, models.ReservationConfirmed, models.ReservationDeclined, models.ReservationCancelled},
	models.ReservationApproved:  {models.ReservationConfirmed, models.ReservationCancelled, models.ReservationNoShow},
	models.ReservationConfirmed: {models.ReservationArrived, models.ReservationSeated, models.ReservationCancelled, models.ReservationNoShow},
	models.ReservationArrived:   {models.ReservationSeated, models.ReservationCancelled},
	models.ReservationSeated:    {models.ReservationCompleted},
}

var transitionEvents = map[models.ReservationStatus]events.EventType{
	models.ReservationConfirmed: events.EventReservationConfirmed,
	models.ReservationSeated:    events.EventReservationSeated,
	models.ReservationCompleted: events.EventReservationCompleted,
	models.ReservationCancelled: events.EventReservationCancelled,
	models.ReservationNoShow:    events.EventReservationNoShow,
	models.ReservationDeclined:  events.EventReservationDeclined,
}

// Transition moves a reservation along its lifecycle. Seated and
// completed transitions stamp the timestamps the turn-time estimator
// samples from. Cancelling a reservation with a deposit hold releases it.
func (s *Service) Transition(ctx context.Context, restaurantID, reservationID string, target models.ReservationStatus) (*models.Reservation, error) {
	res, err := s.Get(ctx, restaurantID, reservationID)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, t := range lifecycle[res.Status] {
		if t == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, res.Status, target)
	}

	now := time.Now().UTC()
	updates := map[string]any{"status": target}
	switch target {
	case models.ReservationSeated:
		res.SeatedAt = &now
		updates["seated_at"] = &now
	case models.ReservationCompleted:
		res.CompletedAt = &now
		updates["completed_at"] = &now
		if res.SeatedAt == nil {
			res.SeatedAt = &now
			updates["seated_at"] = &now
		}
	}

	if err := s.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("id = ?", res.ID).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	res.Status = target

	if target == models.ReservationCancelled || target == models.ReservationDeclined {
		if res.DepositPaymentRef != "" {
			if err := s.processor.ReleaseHold(ctx, res.DepositPaymentRef); err != nil {
				s.logger.Error().Err(err).Str("reservation_id", res.ID).Msg("deposit release failed")
			}
		}
	}

	if ev, ok := transitionEvents[target]; ok {
		s.bus.Publish(ev, events.Payload{
			"reservation_id": res.ID,
			"restaurant_id":  res.RestaurantID,
			"date":           res.Date,
			"status":         string(target),
		})
	}
	s.logger.Info().
		Str("reservation_id", res.ID).
		Str("status", string(target)).
		Msg("reservation transitioned")

	return res, nil
}

// TurnTimeAverages computes per-bucket dining averages from reservations
// completed within the trailing window configured for the restaurant.
func (s *Service) TurnTimeAverages(ctx context.Context, restaurantID string) (turntime.Averages, error) {
	bundle, err := s.settings.Load(ctx, restaurantID)
	if err != nil {
		return turntime.Averages{}, err
	}

	windowDays := bundle.Booking.TurnTimeWindowDays
	if windowDays <= 0 {
		windowDays = turntime.DefaultWindowDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -windowDays)

	var rows []models.Reservation
	err = s.db.WithContext(ctx).
		Select("party_size", "seated_at", "completed_at").
		Where("restaurant_id = ? AND status = ? AND completed_at >= ?",
			restaurantID, models.ReservationCompleted, cutoff).
		Find(&rows).Error
	if err != nil {
		return turntime.Averages{}, err
	}

	samples := make([]turntime.Sample, 0, len(rows))
	for _, r := range rows {
		if r.SeatedAt == nil || r.CompletedAt == nil {
			continue
		}
		samples = append(samples, turntime.Sample{
			PartySize:   r.PartySize,
			SeatedAt:    *r.SeatedAt,
			CompletedAt: *r.CompletedAt,
		})
	}
	return turntime.ComputeAverages(samples), nil
}

// depositCurrency returns the restaurant's currency as a lowercase ISO
// code. Processors reject an empty currency, so a missing value falls
// back to usd.
func (s *Service) depositCurrency(ctx context.Context, restaurantID string) string {
	var restaurant models.Restaurant
	err := s.db.WithContext(ctx).
		Select("currency").
		First(&restaurant, "id = ?", restaurantID).Error
	if err != nil || restaurant.Currency == "" {
		return "usd"
	}
	return strings.ToLower(restaurant.Currency)
}

func (s *Service) footprints(ctx context.Context, restaurantID, date string) ([]slots.Footprint, error) {
	return footprintsIn(s.db.WithContext(ctx), restaurantID, date)
}

// footprintsIn loads the capacity-consuming reservations for a date and
// projects them to minute intervals. Rows with unparseable times are
// skipped rather than blocking the whole day.
func footprintsIn(tx *gorm.DB, restaurantID, date string) ([]slots.Footprint, error) {
	var rows []models.Reservation
	err := tx.
		Select("id", "time", "end_time", "party_size").
		Where("restaurant_id = ? AND date = ? AND status IN ?",
			restaurantID, date, models.CapacityStatuses).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]slots.Footprint, 0, len(rows))
	for _, r := range rows {
		start, ok := slots.ParseClock(r.Time)
		if !ok {
			continue
		}
		end, ok := slots.ParseClock(r.EndTime)
		if !ok || end <= start {
			end = start + slots.DefaultDiningMinutes
		}
		out = append(out, slots.Footprint{
			ReservationID: r.ID,
			Start:         start,
			End:           end,
			PartySize:     r.PartySize,
		})
	}
	return out, nil
}

// fits re-checks a single slot against the live footprints.
func fits(footprints []slots.Footprint, startMin, endMin, partySize, maxCovers int) bool {
	if maxCovers <= 0 {
		return false
	}
	occupied := 0
	for _, f := range footprints {
		if f.Start < endMin && f.End > startMin {
			occupied += f.PartySize
		}
	}
	return occupied+partySize <= maxCovers
}

func withinSeatingWindow(eff schedule.Effective, startMin, bufferMins int) bool {
	openMin, ok := slots.ParseClock(eff.Open)
	if !ok {
		return false
	}
	closeMin, ok := slots.ParseClock(eff.Close)
	if !ok {
		return false
	}
	return startMin >= openMin && startMin <= closeMin-bufferMins
}

func parseDate(date string) (time.Time, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	return day, nil
}
