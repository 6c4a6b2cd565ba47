package processor

import (
	"context"

	"github.com/stripe/stripe-go/v76"
)

// CreateIntentParams carries everything the processor needs to open an
// authorization. AmountMinor is in the smallest currency unit; the caller owns
// the major/minor conversion.
type CreateIntentParams struct {
	AmountMinor int64
	Currency    string
	Description string
	Metadata    map[string]string
}

// Processor is the payment-processor boundary. Implementations talk to the
// external API; tests substitute a stub.
type Processor interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*stripe.PaymentIntent, error)
	RetrieveIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	// CreateRefund refunds the full remaining amount of the given intent.
	CreateRefund(ctx context.Context, intentID string) (*stripe.Refund, error)
	// VerifyWebhook authenticates raw webhook bytes against the signature
	// header and returns the typed event. It fails closed when no webhook
	// secret is configured.
	VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error)
}
