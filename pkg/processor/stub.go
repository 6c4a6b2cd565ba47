package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/stripe/stripe-go/v76"
)

// StubProcessor is an in-memory processor for development and tests; no money
// moves and every intent succeeds on retrieval.
type StubProcessor struct {
	mu      sync.Mutex
	intents map[string]*stripe.PaymentIntent
}

func NewStubProcessor() *StubProcessor {
	return &StubProcessor{intents: make(map[string]*stripe.PaymentIntent)}
}

func (p *StubProcessor) CreateIntent(ctx context.Context, in CreateIntentParams) (*stripe.PaymentIntent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := fmt.Sprintf("pi_stub_%d", time.Now().UnixNano())
	pi := &stripe.PaymentIntent{
		ID:           id,
		Amount:       in.AmountMinor,
		Status:       stripe.PaymentIntentStatusSucceeded,
		ClientSecret: id + "_secret",
		Metadata:     in.Metadata,
	}
	p.intents[id] = pi
	return pi, nil
}

func (p *StubProcessor) RetrieveIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pi, ok := p.intents[id]
	if !ok {
		return nil, fmt.Errorf("stub: no such intent %s", id)
	}
	return pi, nil
}

func (p *StubProcessor) CreateRefund(ctx context.Context, intentID string) (*stripe.Refund, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pi, ok := p.intents[intentID]
	if !ok {
		return nil, fmt.Errorf("stub: no such intent %s", intentID)
	}
	return &stripe.Refund{
		ID:     fmt.Sprintf("re_stub_%d", time.Now().UnixNano()),
		Amount: pi.Amount,
		Status: stripe.RefundStatusSucceeded,
	}, nil
}

// VerifyWebhook on the stub trusts the payload and skips signature checks.
func (p *StubProcessor) VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	var ev stripe.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return stripe.Event{}, err
	}
	return ev, nil
}
