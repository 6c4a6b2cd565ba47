package processor

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeProcessor implements Processor against the Stripe API.
type StripeProcessor struct {
	webhookSecret string
}

func NewStripeProcessor(secretKey, webhookSecret string) *StripeProcessor {
	stripe.Key = secretKey
	return &StripeProcessor{webhookSecret: webhookSecret}
}

func (p *StripeProcessor) CreateIntent(ctx context.Context, in CreateIntentParams) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(in.AmountMinor),
		Currency:    stripe.String(in.Currency),
		Description: stripe.String(in.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	return paymentintent.New(params)
}

func (p *StripeProcessor) RetrieveIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	return paymentintent.Get(id, params)
}

func (p *StripeProcessor) CreateRefund(ctx context.Context, intentID string) (*stripe.Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
	}
	params.Context = ctx
	return refund.New(params)
}

var ErrNoWebhookSecret = errors.New("webhook secret not configured")

// VerifyWebhook must receive the exact request bytes; the signature is computed
// over them.
func (p *StripeProcessor) VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	if p.webhookSecret == "" {
		return stripe.Event{}, ErrNoWebhookSecret
	}
	return webhook.ConstructEvent(payload, sigHeader, p.webhookSecret)
}
