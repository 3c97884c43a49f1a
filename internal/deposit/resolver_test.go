/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package deposit

import (
	"testing"

	"github.com/seatwise/seatwise/internal/models"
)

func TestResolveGlobalPolicy(t *testing.T) {
	global := models.DepositPolicy{
		Enabled:     true,
		AmountCents: 2500,
		MinParty:    6,
		Message:     "Parties of 6 or more require a deposit.",
	}

	tests := []struct {
		name         string
		partySize    int
		wantRequired bool
	}{
		{"below threshold", 4, false},
		{"at threshold", 6, true},
		{"above threshold", 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(global, nil, tt.partySize)
			if res.Required != tt.wantRequired {
				t.Errorf("Required = %v, want %v", res.Required, tt.wantRequired)
			}
			if res.Source != SourceGlobal {
				t.Errorf("Source = %s, want global", res.Source)
			}
		})
	}
}

func TestResolveDisabledGlobalNeverRequires(t *testing.T) {
	global := models.DepositPolicy{Enabled: false, AmountCents: 5000, MinParty: 1}

	for _, size := range []int{1, 4, 12} {
		if res := Resolve(global, nil, size); res.Required {
			t.Errorf("party %d: disabled policy must not require a deposit", size)
		}
	}
}

func TestResolveZeroAmountNeverRequires(t *testing.T) {
	global := models.DepositPolicy{Enabled: true, AmountCents: 0, MinParty: 1}
	if res := Resolve(global, nil, 8); res.Required {
		t.Error("zero amount must not require a deposit")
	}
}

func TestResolveSpecialRuleForcesDeposit(t *testing.T) {
	// Global deposits off; New Year's Eve forces one for every party.
	global := models.DepositPolicy{Enabled: false}
	special := &models.SpecialDepositRule{
		Enabled:         true,
		RequiresDeposit: true,
		AmountCents:     5000,
		MinParty:        1,
		Message:         "NYE bookings require a $50 deposit.",
		Label:           "New Year's Eve",
	}

	res := Resolve(global, special, 1)
	if !res.Required {
		t.Fatal("special rule must force the deposit on")
	}
	if res.AmountCents != 5000 || res.MinParty != 1 {
		t.Fatalf("special terms not applied: %+v", res)
	}
	if res.Source != SourceSpecial || res.Label != "New Year's Eve" {
		t.Fatalf("source/label not carried: %+v", res)
	}
}

func TestResolveSpecialRuleSuppressesDeposit(t *testing.T) {
	global := models.DepositPolicy{Enabled: true, AmountCents: 2500, MinParty: 1}
	special := &models.SpecialDepositRule{Enabled: true, RequiresDeposit: false}

	if res := Resolve(global, special, 8); res.Required {
		t.Error("special rule with requires_deposit=false must suppress the global gate")
	}
}

func TestResolveDisabledSpecialRuleIsIgnored(t *testing.T) {
	global := models.DepositPolicy{Enabled: true, AmountCents: 2500, MinParty: 2}
	special := &models.SpecialDepositRule{
		Enabled:         false,
		RequiresDeposit: true,
		AmountCents:     9900,
	}

	res := Resolve(global, special, 4)
	if !res.Required || res.AmountCents != 2500 {
		t.Fatalf("disabled special rule must fall through to global: %+v", res)
	}
	if res.Source != SourceGlobal {
		t.Errorf("Source = %s, want global", res.Source)
	}
}
