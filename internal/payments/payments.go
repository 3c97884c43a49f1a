/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package payments abstracts the card processor used to hold booking
// deposits. The engine only ever asks for a hold and a release; capture
// and refund flows belong to the processor's own dashboard/webhooks.
package payments

import "context"

// HoldRequest describes a deposit hold for one reservation.
type HoldRequest struct {
	ReservationID string
	RestaurantID  string
	AmountCents   int64
	Currency      string
	GuestEmail    string
	Description   string
}

// Hold is the processor-side record of a placed hold.
type Hold struct {
	Reference   string
	AmountCents int64
	Status      string
}

// Processor places and releases deposit holds.
type Processor interface {
	PlaceHold(ctx context.Context, req HoldRequest) (*Hold, error)
	ReleaseHold(ctx context.Context, reference string) error
}

// NoopProcessor records deposits without charging. Used when no processor
// key is configured (development, or venues that collect deposits on
// arrival).
type NoopProcessor struct{}

// PlaceHold returns a synthetic hold reference.
func (NoopProcessor) PlaceHold(_ context.Context, req HoldRequest) (*Hold, error) {
	return &Hold{
		Reference:   "manual:" + req.ReservationID,
		AmountCents: req.AmountCents,
		Status:      "recorded",
	}, nil
}

// ReleaseHold is a no-op.
func (NoopProcessor) ReleaseHold(context.Context, string) error { return nil }
