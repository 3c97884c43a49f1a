/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package settings loads and saves per-restaurant configuration stored as
// loosely typed JSON blobs. Parsing never fails: malformed or partial
// stored data degrades to documented defaults so a corrupted settings row
// can never take booking offline.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seatwise/seatwise/internal/cache"
	"github.com/seatwise/seatwise/internal/events"
	"github.com/seatwise/seatwise/internal/models"
)

// Bundle is the full resolved settings set for one restaurant.
type Bundle struct {
	WeeklySchedule models.WeeklySchedule                `json:"weekly_schedule"`
	DateOverrides  map[string]models.DateOverride       `json:"date_overrides"`
	DepositPolicy  models.DepositPolicy                 `json:"deposit_policy"`
	SpecialRules   map[string]models.SpecialDepositRule `json:"special_deposit_rules"`
	Durations      models.DiningDurations               `json:"dining_durations"`
	Booking        models.BookingSettings               `json:"booking"`
}

// OverrideFor returns the date override for a YYYY-MM-DD date, if any.
func (b *Bundle) OverrideFor(date string) *models.DateOverride {
	if ov, ok := b.DateOverrides[date]; ok {
		return &ov
	}
	return nil
}

// SpecialRuleFor returns the special deposit rule for a date, if any.
func (b *Bundle) SpecialRuleFor(date string) *models.SpecialDepositRule {
	if rule, ok := b.SpecialRules[date]; ok {
		return &rule
	}
	return nil
}

// Store reads and writes restaurant settings rows with a cache in front.
type Store struct {
	db     *gorm.DB
	cache  *cache.Cache
	bus    *events.Bus
	logger zerolog.Logger

	defaultInterval int
	defaultBuffer   int
}

// NewStore constructs the settings store. defaultInterval and
// defaultBuffer seed booking settings for tenants with no stored row.
func NewStore(db *gorm.DB, c *cache.Cache, bus *events.Bus, defaultInterval, defaultBuffer int, logger zerolog.Logger) *Store {
	if defaultInterval <= 0 {
		defaultInterval = 30
	}
	return &Store{
		db:              db,
		cache:           c,
		bus:             bus,
		logger:          logger.With().Str("component", "settings").Logger(),
		defaultInterval: defaultInterval,
		defaultBuffer:   defaultBuffer,
	}
}

// Load resolves the full settings bundle for a restaurant, serving from
// cache when possible.
func (s *Store) Load(ctx context.Context, restaurantID string) (*Bundle, error) {
	cacheKey := cache.KeySettings + restaurantID
	var cached Bundle
	if s.cache.GetJSON(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	var rows []models.RestaurantSetting
	if err := s.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	raw := make(map[string]string, len(rows))
	for _, row := range rows {
		raw[row.Key] = row.Value
	}

	bundle := &Bundle{
		WeeklySchedule: s.parseWeeklySchedule(restaurantID, raw[models.SettingWeeklySchedule]),
		DateOverrides:  parseDateOverrides(raw[models.SettingDateOverrides]),
		DepositPolicy:  parseDepositPolicy(raw[models.SettingDepositPolicy]),
		SpecialRules:   parseSpecialRules(raw[models.SettingSpecialDeposits]),
		Durations:      parseDiningDurations(raw[models.SettingDiningDurations]),
		Booking:        s.parseBookingSettings(raw[models.SettingBooking]),
	}

	s.cache.SetJSON(ctx, cacheKey, bundle, cache.DefaultSettingsTTL)
	return bundle, nil
}

// Save upserts one settings blob and invalidates the cached bundle.
func (s *Store) Save(ctx context.Context, restaurantID, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}

	row := models.RestaurantSetting{
		RestaurantID: restaurantID,
		Key:          key,
		Value:        string(raw),
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "restaurant_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}

	s.cache.Delete(ctx, cache.KeySettings+restaurantID)
	if s.bus != nil {
		s.bus.Publish(events.EventSettingsUpdated, events.Payload{
			"restaurant_id": restaurantID,
			"key":           key,
		})
	}
	return nil
}

// weekday key aliases accepted in stored weekly schedules.
var weekdayIndexes = map[string]int{
	"sunday": 0, "sun": 0, "0": 0,
	"monday": 1, "mon": 1, "1": 1,
	"tuesday": 2, "tue": 2, "2": 2,
	"wednesday": 3, "wed": 3, "3": 3,
	"thursday": 4, "thu": 4, "4": 4,
	"friday": 5, "fri": 5, "5": 5,
	"saturday": 6, "sat": 6, "6": 6,
}

// parseWeeklySchedule accepts the stored map-of-weekday shape. Missing or
// garbled weekday keys fall back to the Sunday entry, then to the builtin
// default day. This mirrors the documented resolver fallback: unknown
// weekdays are never closed or rejected outright.
func (s *Store) parseWeeklySchedule(restaurantID, raw string) models.WeeklySchedule {
	weekly := DefaultWeeklySchedule()
	if raw == "" {
		return weekly
	}

	var stored map[string]models.DayHours
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Warn().Err(err).
			Str("restaurant", restaurantID).
			Msg("weekly schedule blob malformed, using defaults")
		return weekly
	}

	parsed := make(map[int]models.DayHours, 7)
	for key, day := range stored {
		idx, ok := weekdayIndexes[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			continue
		}
		parsed[idx] = sanitizeDay(day)
	}

	sundayFallback, hasSunday := parsed[0]
	for i := 0; i < 7; i++ {
		if day, ok := parsed[i]; ok {
			weekly[i] = day
		} else if hasSunday {
			weekly[i] = sundayFallback
		}
	}
	return weekly
}

func sanitizeDay(day models.DayHours) models.DayHours {
	def := defaultDay()
	if day.Open == "" {
		day.Open = def.Open
	}
	if day.Close == "" {
		day.Close = def.Close
	}
	if day.MaxCovers < 1 {
		day.MaxCovers = def.MaxCovers
	}
	return day
}

func parseDateOverrides(raw string) map[string]models.DateOverride {
	out := map[string]models.DateOverride{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]models.DateOverride{}
	}
	return out
}

func parseDepositPolicy(raw string) models.DepositPolicy {
	policy := DefaultDepositPolicy()
	if raw == "" {
		return policy
	}
	if err := json.Unmarshal([]byte(raw), &policy); err != nil {
		return DefaultDepositPolicy()
	}
	return clampDeposit(policy)
}

func clampDeposit(p models.DepositPolicy) models.DepositPolicy {
	if p.AmountCents < 0 {
		p.AmountCents = 0
	}
	if p.MinParty < 1 {
		p.MinParty = 1
	}
	return p
}

func parseSpecialRules(raw string) map[string]models.SpecialDepositRule {
	out := map[string]models.SpecialDepositRule{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]models.SpecialDepositRule{}
	}
	for date, rule := range out {
		if rule.AmountCents < 0 {
			rule.AmountCents = 0
		}
		if rule.MinParty < 1 {
			rule.MinParty = 1
		}
		out[date] = rule
	}
	return out
}

func parseDiningDurations(raw string) models.DiningDurations {
	durations := DefaultDiningDurations()
	if raw == "" {
		return durations
	}
	var stored models.DiningDurations
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return durations
	}
	for size, mins := range stored {
		if mins > 0 {
			durations[size] = mins
		}
	}
	return durations
}

func (s *Store) parseBookingSettings(raw string) models.BookingSettings {
	booking := models.BookingSettings{
		SlotIntervalMinutes:      s.defaultInterval,
		LastSeatingBufferMinutes: s.defaultBuffer,
		TurnTimeWindowDays:       7,
	}
	if raw == "" {
		return booking
	}
	var stored models.BookingSettings
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return booking
	}
	if stored.SlotIntervalMinutes > 0 {
		booking.SlotIntervalMinutes = stored.SlotIntervalMinutes
	}
	if stored.LastSeatingBufferMinutes >= 0 {
		booking.LastSeatingBufferMinutes = stored.LastSeatingBufferMinutes
	}
	if stored.TurnTimeWindowDays > 0 {
		booking.TurnTimeWindowDays = stored.TurnTimeWindowDays
	}
	return booking
}

func defaultDay() models.DayHours {
	return models.DayHours{Open: "17:00", Close: "22:00", MaxCovers: 50}
}

// DefaultWeeklySchedule is used for tenants with no stored schedule:
// open every day with the default dinner window.
func DefaultWeeklySchedule() models.WeeklySchedule {
	var weekly models.WeeklySchedule
	for i := range weekly {
		weekly[i] = defaultDay()
	}
	return weekly
}

// DefaultDepositPolicy disables deposits until configured.
func DefaultDepositPolicy() models.DepositPolicy {
	return models.DepositPolicy{Enabled: false, MinParty: 1}
}

// DefaultDiningDurations covers party sizes 1 through 8; the size-8 entry
// doubles as the fallback for larger parties.
func DefaultDiningDurations() models.DiningDurations {
	return models.DiningDurations{
		"1": 90, "2": 90,
		"3": 105, "4": 105,
		"5": 120, "6": 120, "7": 120, "8": 120,
	}
}
