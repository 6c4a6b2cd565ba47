package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"counsel/internal/domain"
	"counsel/internal/models"
	"counsel/pkg/processor"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"
)

// PaymentService owns the user-facing payment lifecycle: opening intents with
// the processor, the synchronous confirmation path, history, and user-initiated
// refunds. Amounts are in major units everywhere except on the processor call
// itself.
type PaymentService struct {
	proc     processor.Processor
	payments PaymentStore
	users    UserStore
}

func NewPaymentService(proc processor.Processor, payments PaymentStore, users UserStore) *PaymentService {
	return &PaymentService{proc: proc, payments: payments, users: users}
}

type CreateIntentInput struct {
	Amount         decimal.Decimal
	Currency       string
	ConsultationID string
	Description    string
}

type CreateIntentResult struct {
	PaymentIntentID string
	ClientSecret    string
}

func (s *PaymentService) CreateIntent(ctx context.Context, userID uint, in CreateIntentInput) (*CreateIntentResult, error) {
	if in.Amount.LessThan(domain.MinPaymentAmount) {
		return nil, domain.ValidationError(fmt.Sprintf("minimum payment amount is %s", domain.MinPaymentAmount.StringFixed(2)))
	}

	currency := strings.ToLower(in.Currency)
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	description := in.Description
	if description == "" {
		description = "Legal consultation payment"
	}

	metadata := map[string]string{
		domain.MetaUserID: strconv.FormatUint(uint64(userID), 10),
	}
	if in.ConsultationID != "" {
		metadata[domain.MetaConsultationID] = in.ConsultationID
	}

	pi, err := s.proc.CreateIntent(ctx, processor.CreateIntentParams{
		AmountMinor: toMinorUnits(in.Amount),
		Currency:    currency,
		Description: description,
		Metadata:    metadata,
	})
	if err != nil {
		log.Printf("[Payments] create intent failed for user %d: %v", userID, err)
		return nil, domain.PaymentError("failed to create payment intent", err)
	}
	return &CreateIntentResult{PaymentIntentID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// ConfirmPayment re-fetches the intent from the processor (never the local
// ledger) and enforces ownership and terminal success before reporting the
// amount back. When a consultation id is supplied the ledger row is written
// opportunistically: confirmation can race ahead of the webhook, and a failed
// write here must not fail the confirmation.
func (s *PaymentService) ConfirmPayment(ctx context.Context, userID uint, intentID, consultationID string) (decimal.Decimal, error) {
	pi, err := s.proc.RetrieveIntent(ctx, intentID)
	if err != nil {
		log.Printf("[Payments] retrieve intent %s failed: %v", intentID, err)
		return decimal.Zero, domain.PaymentError("failed to confirm payment", err)
	}

	if pi.Metadata[domain.MetaUserID] != strconv.FormatUint(uint64(userID), 10) {
		return decimal.Zero, domain.PaymentError("not authorized to confirm this payment", nil)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return decimal.Zero, domain.PaymentError(fmt.Sprintf("payment not completed. Status: %s", pi.Status), nil)
	}

	amount := fromMinorUnits(pi.Amount)

	if consultationID != "" {
		switch _, err := s.payments.GetByIntentRef(pi.ID); {
		case errors.Is(err, gorm.ErrRecordNotFound):
			p := paymentFromIntent(userID, pi.ID, amount, string(pi.Currency), pi.Metadata)
			if err := s.payments.Create(p); err != nil {
				// Confirmation raced the webhook, or the write failed; either
				// way the money moved, so only log.
				log.Printf("[Payments] opportunistic ledger write for intent %s failed: %v", pi.ID, err)
			}
		case err != nil:
			log.Printf("[Payments] ledger lookup for intent %s failed, skipping opportunistic write: %v", pi.ID, err)
		}
	}
	return amount, nil
}

type RefundResult struct {
	RefundID string
	Amount   decimal.Decimal
}

func (s *PaymentService) Refund(ctx context.Context, userID uint, paymentID string) (*RefundResult, error) {
	p, err := s.payments.GetByID(paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundError("payment not found")
		}
		return nil, err
	}

	if p.UserID != userID {
		return nil, domain.PaymentError("not authorized to refund this payment", nil)
	}
	if p.Status != domain.PaymentStatusCompleted {
		return nil, domain.PaymentError("only completed payments can be refunded", nil)
	}
	if p.StripePaymentIntentID == "" {
		return nil, domain.PaymentError("payment has no processor reference", nil)
	}

	// Ledger stays untouched when the processor rejects the refund.
	ref, err := s.proc.CreateRefund(ctx, p.StripePaymentIntentID)
	if err != nil {
		log.Printf("[Payments] refund of payment %s failed at processor: %v", p.ID, err)
		return nil, domain.PaymentError("refund processing failed", err)
	}

	ok, err := s.payments.MarkRefunded(p.ID)
	if err != nil {
		log.Printf("[Payments] refund %s succeeded at processor but ledger update failed: %v", ref.ID, err)
		return nil, err
	}
	if !ok {
		// A racing refund (or the charge.refunded webhook) transitioned first.
		log.Printf("[Payments] payment %s already marked refunded", p.ID)
	}
	return &RefundResult{RefundID: ref.ID, Amount: p.Amount}, nil
}

// History returns the caller's payments, newest first, capped at 50.
func (s *PaymentService) History(userID uint) ([]models.Payment, error) {
	return s.payments.ListByUser(userID, 50)
}

// toMinorUnits converts a major-unit amount to the processor's smallest
// currency unit, rounding halves up. The inverse is fromMinorUnits; together
// they are the only place the x100 boundary conversion happens.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func fromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Shift(-2)
}

func paymentFromIntent(userID uint, intentID string, amount decimal.Decimal, currency string, metadata map[string]string) *models.Payment {
	summary := metadata[domain.MetaConsultationSummary]
	if summary == "" {
		summary = domain.DefaultConsultationSummary
	}
	category := metadata[domain.MetaCategory]
	if category == "" {
		category = domain.DefaultCategory
	}
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return &models.Payment{
		ID:                    uuid.NewString(),
		UserID:                userID,
		StripePaymentIntentID: intentID,
		Amount:                amount,
		Currency:              currency,
		Status:                domain.PaymentStatusCompleted,
		ConsultationSummary:   summary,
		Category:              category,
	}
}
