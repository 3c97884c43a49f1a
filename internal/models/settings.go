/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// RestaurantSetting stores one per-tenant configuration blob as a JSON
// string. The stored value is loosely typed on purpose: malformed or
// partial JSON degrades to defaults at parse time instead of failing
// (see internal/settings).
type RestaurantSetting struct {
	RestaurantID string `gorm:"type:uuid;primaryKey"`
	Key          string `gorm:"type:varchar(64);primaryKey"`
	Value        string `gorm:"type:text"`
	UpdatedAt    time.Time
}

// Setting keys.
const (
	SettingWeeklySchedule  = "weekly_schedule"
	SettingDateOverrides   = "date_overrides"
	SettingDepositPolicy   = "deposit_policy"
	SettingSpecialDeposits = "special_deposit_rules"
	SettingDiningDurations = "dining_durations"
	SettingBooking         = "booking"
)

// DayHours is the operating window for one weekday.
type DayHours struct {
	Closed    bool   `json:"closed"`
	Open      string `json:"open"`
	Close     string `json:"close"`
	MaxCovers int    `json:"max_covers"`
}

// WeeklySchedule holds one DayHours per weekday, indexed 0=Sunday through
// 6=Saturday.
type WeeklySchedule [7]DayHours

// DateOverride is a date-specific exception to the weekly schedule.
// Nil fields inherit from the weekday default; Closed=true closes the
// date unconditionally.
type DateOverride struct {
	Closed    *bool   `json:"closed,omitempty"`
	Open      *string `json:"open,omitempty"`
	Close     *string `json:"close,omitempty"`
	MaxCovers *int    `json:"max_covers,omitempty"`
}

// DepositPolicy is the venue-wide deposit gate.
type DepositPolicy struct {
	Enabled     bool   `json:"enabled"`
	AmountCents int64  `json:"amount_cents"`
	MinParty    int    `json:"min_party"`
	Message     string `json:"message"`
}

// SpecialDepositRule overrides the global deposit policy for one date,
// either suppressing deposits entirely or forcing distinct terms.
type SpecialDepositRule struct {
	Enabled         bool   `json:"enabled"`
	RequiresDeposit bool   `json:"requires_deposit"`
	AmountCents     int64  `json:"amount_cents"`
	MinParty        int    `json:"min_party"`
	Message         string `json:"message"`
	Label           string `json:"label"`
}

// DiningDurations maps party size (stringified, matching the stored JSON
// shape) to expected dining minutes. The "8" entry doubles as the
// fallback for unmapped sizes.
type DiningDurations map[string]int

// BookingSettings are the slot generation knobs.
type BookingSettings struct {
	SlotIntervalMinutes      int `json:"slot_interval_minutes"`
	LastSeatingBufferMinutes int `json:"last_seating_buffer_minutes"`
	TurnTimeWindowDays       int `json:"turn_time_window_days"`
}
