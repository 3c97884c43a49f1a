/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package deposit decides whether a deposit gate applies to a booking
// request, merging the venue-wide policy with an optional per-date rule.
package deposit

import "github.com/seatwise/seatwise/internal/models"

// Source identifies which policy produced a resolution.
type Source string

const (
	SourceGlobal  Source = "global"
	SourceSpecial Source = "special"
)

// Resolution is the concrete deposit decision for one date and party size.
type Resolution struct {
	Required    bool   `json:"required"`
	AmountCents int64  `json:"amount_cents"`
	MinParty    int    `json:"min_party"`
	Message     string `json:"message"`
	Source      Source `json:"source"`
	Label       string `json:"label,omitempty"`
}

// Resolve merges the global policy with an optional special rule for the
// date. An enabled special rule either suppresses deposits for the date
// outright or replaces the amount, party threshold and message. The final
// requirement is enabled AND amount > 0 AND partySize >= minParty.
//
// Numeric fields are assumed clamped (amount >= 0, minParty >= 1) by the
// settings layer before this runs. Pure function, no failure modes.
func Resolve(global models.DepositPolicy, special *models.SpecialDepositRule, partySize int) Resolution {
	enabled := global.Enabled
	res := Resolution{
		AmountCents: global.AmountCents,
		MinParty:    global.MinParty,
		Message:     global.Message,
		Source:      SourceGlobal,
	}

	if special != nil && special.Enabled {
		if special.RequiresDeposit {
			enabled = true
			res.AmountCents = special.AmountCents
			res.MinParty = special.MinParty
			res.Message = special.Message
			res.Source = SourceSpecial
			res.Label = special.Label
		} else {
			// Deposits explicitly suppressed for this date, even if
			// globally on.
			enabled = false
		}
	}

	res.Required = enabled && res.AmountCents > 0 && partySize >= res.MinParty
	return res
}
