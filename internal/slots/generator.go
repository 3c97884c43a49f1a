/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package slots enumerates bookable time slots for one date, tagging each
// with availability based on capacity overlap against held reservations.
package slots

import (
	"fmt"

	"github.com/seatwise/seatwise/internal/models"
	"github.com/seatwise/seatwise/internal/schedule"
)

// DefaultDiningMinutes is the last-resort dining duration when neither the
// requested party size nor the size-8 fallback is configured.
const DefaultDiningMinutes = 90

// fallbackSizeKey is the duration-table entry that covers unmapped sizes.
const fallbackSizeKey = "8"

// ReasonFullyBooked marks a slot whose capacity is exhausted.
const ReasonFullyBooked = "fully_booked"

// Slot is one bookable start time. Ephemeral, computed per request.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Footprint is the capacity-relevant projection of a held reservation.
// Start and End are minutes since midnight; the occupied interval is
// closed-open [Start, End).
type Footprint struct {
	ReservationID string
	Start         int
	End           int
	PartySize     int
}

// Params are the inputs to one slot generation run.
type Params struct {
	PartySize             int
	Schedule              schedule.Effective
	Durations             models.DiningDurations
	SlotIntervalMinutes   int
	LastSeatingBufferMins int
	Footprints            []Footprint
	ExcludeReservationID  string
}

// Generate enumerates slots between open and the last seating time at the
// configured interval. A slot is available when the covers of every
// overlapping reservation plus the requested party still fit under the
// day's max covers. Closed days, inverted hours and a buffer that
// eliminates the whole window all yield an empty list, not an error.
func Generate(p Params) []Slot {
	if p.Schedule.Closed {
		return nil
	}

	openMin, ok := ParseClock(p.Schedule.Open)
	if !ok {
		return nil
	}
	closeMin, ok := ParseClock(p.Schedule.Close)
	if !ok || closeMin <= openMin {
		return nil
	}

	interval := p.SlotIntervalMinutes
	if interval <= 0 {
		interval = 30
	}

	duration := DurationFor(p.Durations, p.PartySize)
	latestStart := closeMin - p.LastSeatingBufferMins
	if latestStart < openMin {
		return nil
	}

	var out []Slot
	for start := openMin; start <= latestStart; start += interval {
		end := start + duration

		covers := 0
		for _, fp := range p.Footprints {
			if p.ExcludeReservationID != "" && fp.ReservationID == p.ExcludeReservationID {
				continue
			}
			// Closed-open overlap: a reservation ending exactly at the
			// slot start does not block it, nor does one starting
			// exactly at the slot's end.
			if fp.Start < end && fp.End > start {
				covers += fp.PartySize
			}
		}

		slot := Slot{Time: FormatClock(start)}
		if covers+p.PartySize <= p.Schedule.MaxCovers {
			slot.Available = true
		} else {
			slot.Reason = ReasonFullyBooked
		}
		out = append(out, slot)
	}

	return out
}

// DurationFor looks up dining minutes for a party size, falling back to
// the size-8 entry and then to DefaultDiningMinutes.
func DurationFor(durations models.DiningDurations, partySize int) int {
	if d, ok := durations[fmt.Sprintf("%d", partySize)]; ok && d > 0 {
		return d
	}
	if d, ok := durations[fallbackSizeKey]; ok && d > 0 {
		return d
	}
	return DefaultDiningMinutes
}

// ParseClock converts HH:MM to minutes since midnight.
func ParseClock(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' ||
		s[3] < '0' || s[3] > '9' || s[4] < '0' || s[4] > '9' {
		return 0, false
	}
	if h > 23 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// FormatClock converts minutes since midnight to HH:MM.
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}
