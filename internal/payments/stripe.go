/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package payments

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

// StripeProcessor places deposit holds as manual-capture PaymentIntents.
type StripeProcessor struct {
	logger zerolog.Logger
}

// NewStripeProcessor configures the global Stripe client key and returns
// the processor.
func NewStripeProcessor(secretKey string, logger zerolog.Logger) *StripeProcessor {
	stripe.Key = secretKey
	return &StripeProcessor{
		logger: logger.With().Str("component", "payments").Logger(),
	}
}

// PlaceHold creates an uncaptured PaymentIntent for the deposit amount.
// The funds are authorized now and captured only if the party no-shows,
// per the venue's policy.
func (p *StripeProcessor) PlaceHold(ctx context.Context, req HoldRequest) (*Hold, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.AmountCents),
		Currency:      stripe.String(req.Currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		Description:   stripe.String(req.Description),
		ReceiptEmail:  stripe.String(req.GuestEmail),
	}
	params.Context = ctx
	params.AddMetadata("reservation_id", req.ReservationID)
	params.AddMetadata("restaurant_id", req.RestaurantID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	p.logger.Info().
		Str("reservation", req.ReservationID).
		Int64("amount_cents", req.AmountCents).
		Str("intent", pi.ID).
		Msg("deposit hold placed")

	return &Hold{
		Reference:   pi.ID,
		AmountCents: req.AmountCents,
		Status:      string(pi.Status),
	}, nil
}

// ReleaseHold cancels the PaymentIntent, releasing the authorization.
func (p *StripeProcessor) ReleaseHold(ctx context.Context, reference string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := paymentintent.Cancel(reference, params); err != nil {
		return fmt.Errorf("cancel payment intent %s: %w", reference, err)
	}
	p.logger.Info().Str("intent", reference).Msg("deposit hold released")
	return nil
}
