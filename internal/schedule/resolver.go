/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package schedule resolves the effective operating window for a concrete
// calendar date from the weekly defaults and an optional date override.
package schedule

import (
	"time"

	"github.com/seatwise/seatwise/internal/models"
)

// Effective is the resolved daily schedule for one date.
type Effective struct {
	Closed    bool   `json:"closed"`
	Open      string `json:"open"`
	Close     string `json:"close"`
	MaxCovers int    `json:"max_covers"`
}

// Resolve merges the weekday default for date with an optional override.
// The override's closed flag closes the date unconditionally; other present
// fields win field-by-field, absent fields inherit. The weekday is the
// date's local calendar day (0=Sunday through 6=Saturday). Pure function,
// no failure modes.
func Resolve(weekly models.WeeklySchedule, override *models.DateOverride, date time.Time) Effective {
	day := weekly[int(date.Weekday())]

	eff := Effective{
		Closed:    day.Closed,
		Open:      day.Open,
		Close:     day.Close,
		MaxCovers: day.MaxCovers,
	}

	if override == nil {
		return eff
	}

	if override.Closed != nil {
		eff.Closed = *override.Closed
		if eff.Closed {
			// Open/Close/MaxCovers stay as inert carry-over values.
			return eff
		}
	}
	if override.Open != nil && *override.Open != "" {
		eff.Open = *override.Open
	}
	if override.Close != nil && *override.Close != "" {
		eff.Close = *override.Close
	}
	if override.MaxCovers != nil && *override.MaxCovers > 0 {
		eff.MaxCovers = *override.MaxCovers
	}

	return eff
}
