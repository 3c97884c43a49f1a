/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package waitlist maintains the dense, 1-based ordering of active
// waitlist entries per restaurant and day, and quotes estimated waits
// from turn-time averages.
package waitlist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/seatwise/seatwise/internal/events"
	"github.com/seatwise/seatwise/internal/models"
	"github.com/seatwise/seatwise/internal/turntime"
)

// ErrEntryNotFound is returned for transitions on unknown entries.
var ErrEntryNotFound = errors.New("waitlist entry not found")

// ErrInvalidTransition is returned when the requested status change is
// not part of the waitlist lifecycle.
var ErrInvalidTransition = errors.New("invalid waitlist transition")

// Quote is an estimated wait for a party checking in.
type Quote struct {
	EstimatedMinutes int `json:"estimated_minutes"`
	PartiesAhead     int `json:"parties_ahead"`
}

// Estimate quotes the wait for a party against the current active set.
// Parties of equal or larger size count as ahead: they compete for the
// same or larger tables. That bias is a product policy, kept deliberately
// conservative. Pure function.
func Estimate(partySize int, entries []models.WaitlistEntry, averages turntime.Averages) Quote {
	ahead := 0
	for _, e := range entries {
		if !e.Status.IsActive() {
			continue
		}
		if e.PartySize >= partySize {
			ahead++
		}
	}
	return Quote{
		EstimatedMinutes: ahead * averages.For(partySize),
		PartiesAhead:     ahead,
	}
}

// Service owns waitlist mutations. Reorders for the same restaurant/date
// are serialized through a keyed mutex; the surrounding transaction guards
// the writes themselves.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService constructs the waitlist service.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "waitlist").Logger(),
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *Service) lockFor(restaurantID, date string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := restaurantID + "|" + date
	if l, ok := s.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[key] = l
	return l
}

// CheckInInput is a walk-in party joining the waitlist.
type CheckInInput struct {
	RestaurantID string
	Date         string
	GuestName    string
	GuestPhone   string
	PartySize    int
	Notes        string
}

// CheckIn appends a party to the end of the active queue and records the
// quoted wait derived from the supplied turn-time averages.
func (s *Service) CheckIn(ctx context.Context, in CheckInInput, averages turntime.Averages) (*models.WaitlistEntry, Quote, error) {
	lock := s.lockFor(in.RestaurantID, in.Date)
	lock.Lock()
	defer lock.Unlock()

	active, err := s.ActiveEntries(ctx, in.RestaurantID, in.Date)
	if err != nil {
		return nil, Quote{}, err
	}

	quote := Estimate(in.PartySize, active, averages)

	entry := &models.WaitlistEntry{
		ID:            uuid.NewString(),
		RestaurantID:  in.RestaurantID,
		Date:          in.Date,
		GuestName:     in.GuestName,
		GuestPhone:    in.GuestPhone,
		PartySize:     in.PartySize,
		Status:        models.WaitlistWaiting,
		Position:      len(active) + 1,
		QuotedMinutes: quote.EstimatedMinutes,
		QuotedAt:      time.Now(),
		Notes:         in.Notes,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, Quote{}, fmt.Errorf("create waitlist entry: %w", err)
	}

	s.publish(events.EventWaitlistCheckIn, entry)
	return entry, quote, nil
}

// Transition moves an entry to a new status. Leaving the active set
// (seated, cancelled, no-show) triggers a reorder so positions stay dense.
func (s *Service) Transition(ctx context.Context, restaurantID, entryID string, to models.WaitlistStatus) (*models.WaitlistEntry, error) {
	switch to {
	case models.WaitlistNotified, models.WaitlistSeated, models.WaitlistCancelled, models.WaitlistNoShow:
	default:
		return nil, ErrInvalidTransition
	}

	var entry models.WaitlistEntry
	err := s.db.WithContext(ctx).
		First(&entry, "id = ? AND restaurant_id = ?", entryID, restaurantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}

	wasActive := entry.Status.IsActive()
	entry.Status = to
	if err := s.db.WithContext(ctx).Save(&entry).Error; err != nil {
		return nil, fmt.Errorf("update waitlist entry: %w", err)
	}

	if wasActive && !to.IsActive() {
		if _, err := s.Reorder(ctx, restaurantID, entry.Date); err != nil {
			s.logger.Warn().Err(err).
				Str("restaurant", restaurantID).
				Str("date", entry.Date).
				Msg("waitlist reorder after transition failed")
		}
	}

	s.publish(eventFor(to), &entry)
	return &entry, nil
}

// Reorder re-walks the active entries for the date ordered by
// (position, quoted_at) and reassigns positions 1..n contiguously,
// writing back only the entries whose position actually changed.
// Idempotent: a second run over dense positions writes nothing.
func (s *Service) Reorder(ctx context.Context, restaurantID, date string) (int, error) {
	lock := s.lockFor(restaurantID, date)
	lock.Lock()
	defer lock.Unlock()

	changed := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entries []models.WaitlistEntry
		if err := tx.
			Where("restaurant_id = ? AND date = ? AND status IN ?", restaurantID, date, models.ActiveWaitlistStatuses).
			Order("position asc, quoted_at asc").
			Find(&entries).Error; err != nil {
			return err
		}

		for i := range entries {
			want := i + 1
			if entries[i].Position == want {
				continue
			}
			if err := tx.Model(&models.WaitlistEntry{}).
				Where("id = ?", entries[i].ID).
				Update("position", want).Error; err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("reorder waitlist: %w", err)
	}

	if changed > 0 {
		s.bus.Publish(events.EventWaitlistReorder, events.Payload{
			"restaurant_id": restaurantID,
			"date":          date,
			"updates":       changed,
		})
	}
	return changed, nil
}

// ActiveEntries lists waiting/notified entries for the date in queue order.
func (s *Service) ActiveEntries(ctx context.Context, restaurantID, date string) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry
	err := s.db.WithContext(ctx).
		Where("restaurant_id = ? AND date = ? AND status IN ?", restaurantID, date, models.ActiveWaitlistStatuses).
		Order("position asc, quoted_at asc").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list active waitlist: %w", err)
	}
	return entries, nil
}

func (s *Service) publish(eventType events.EventType, entry *models.WaitlistEntry) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventType, events.Payload{
		"entry_id":      entry.ID,
		"restaurant_id": entry.RestaurantID,
		"date":          entry.Date,
		"party_size":    entry.PartySize,
		"position":      entry.Position,
		"status":        string(entry.Status),
	})
}

func eventFor(status models.WaitlistStatus) events.EventType {
	switch status {
	case models.WaitlistNotified:
		return events.EventWaitlistNotified
	case models.WaitlistSeated:
		return events.EventWaitlistSeated
	default:
		return events.EventWaitlistLeft
	}
}
