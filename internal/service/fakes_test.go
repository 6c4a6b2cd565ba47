package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"counsel/internal/domain"
	"counsel/internal/models"
	"counsel/internal/repository"
	"counsel/pkg/processor"

	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"
)

type fakePaymentStore struct {
	mu            sync.Mutex
	byID          map[string]*models.Payment
	order         []string // insertion order, oldest first
	createErr     error
	lookupErr     error
	lastListLimit int
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{byID: map[string]*models.Payment{}}
}

func (f *fakePaymentStore) Create(p *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.byID {
		if existing.StripePaymentIntentID == p.StripePaymentIntentID {
			return repository.ErrDuplicateIntent
		}
	}
	cp := *p
	f.byID[p.ID] = &cp
	f.order = append(f.order, p.ID)
	return nil
}

func (f *fakePaymentStore) GetByID(id string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentStore) GetByIntentRef(ref string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, p := range f.byID {
		if p.StripePaymentIntentID == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ListByUser mirrors the repository contract: newest first, capped at limit.
func (f *fakePaymentStore) ListByUser(userID uint, limit int) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastListLimit = limit
	var out []models.Payment
	for i := len(f.order) - 1; i >= 0 && len(out) < limit; i-- {
		if p := f.byID[f.order[i]]; p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePaymentStore) MarkRefunded(id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok || p.Status != domain.PaymentStatusCompleted {
		return false, nil
	}
	p.Status = domain.PaymentStatusRefunded
	return true, nil
}

func (f *fakePaymentStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

func (f *fakePaymentStore) byIntent(ref string) *models.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if p.StripePaymentIntentID == ref {
			cp := *p
			return &cp
		}
	}
	return nil
}

type fakeUserStore struct {
	users map[uint]*models.User
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	f := &fakeUserStore{users: map[uint]*models.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserStore) Create(u *models.User) error {
	u.ID = uint(len(f.users) + 1)
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserStore) GetByID(id uint) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserStore) GetByEmail(email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// fakeProcessor returns canned intents and refunds without any network.
type fakeProcessor struct {
	intents    map[string]*stripe.PaymentIntent
	createErr  error
	refundErr  error
	refundID   string
	lastCreate processor.CreateIntentParams
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{intents: map[string]*stripe.PaymentIntent{}, refundID: "re_test_1"}
}

func (f *fakeProcessor) CreateIntent(ctx context.Context, in processor.CreateIntentParams) (*stripe.PaymentIntent, error) {
	f.lastCreate = in
	if f.createErr != nil {
		return nil, f.createErr
	}
	id := fmt.Sprintf("pi_test_%d", len(f.intents)+1)
	pi := &stripe.PaymentIntent{
		ID:           id,
		Amount:       in.AmountMinor,
		Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
		ClientSecret: id + "_secret",
		Metadata:     in.Metadata,
	}
	f.intents[id] = pi
	return pi, nil
}

func (f *fakeProcessor) RetrieveIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	pi, ok := f.intents[id]
	if !ok {
		return nil, errors.New("no such intent")
	}
	return pi, nil
}

func (f *fakeProcessor) CreateRefund(ctx context.Context, intentID string) (*stripe.Refund, error) {
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	return &stripe.Refund{ID: f.refundID, Status: stripe.RefundStatusSucceeded}, nil
}

func (f *fakeProcessor) VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	return stripe.Event{}, errors.New("not used in tests")
}
